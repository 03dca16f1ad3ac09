package shorelib

import "math"

// 可分离高斯平滑滤波器，水平垂直两趟一维卷积
type gaussFilter struct {
	kernel []float64
	radius int
}

// 核半径取ceil(3σ)，最小为1，边缘像素按最近值复制补齐
func newGaussFilter(sigma float64) *gaussFilter {
	r := int(math.Ceil(3 * sigma))
	if r < 1 {
		r = 1
	}
	k := make([]float64, 2*r+1)
	sum := 0.0
	for i := -r; i <= r; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+r] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return &gaussFilter{kernel: k, radius: r}
}

func (f *gaussFilter) Margin() int {
	return f.radius
}

func (f *gaussFilter) Apply(src *Tile) (ret *Tile) {
	r := f.radius
	mid := NewTile(src.Rect)
	for y := src.Y; y < src.Bottom(); y++ {
		for x := src.X; x < src.Right(); x++ {
			acc := 0.0
			for k := -r; k <= r; k++ {
				acc += f.kernel[k+r] * src.AtClamped(x+k, y)
			}
			mid.Set(x, y, acc)
		}
	}
	ret = NewTile(src.Rect)
	for y := src.Y; y < src.Bottom(); y++ {
		for x := src.X; x < src.Right(); x++ {
			acc := 0.0
			for k := -r; k <= r; k++ {
				acc += f.kernel[k+r] * mid.AtClamped(x, y+k)
			}
			ret.Set(x, y, acc)
		}
	}
	return
}
