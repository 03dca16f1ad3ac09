package shorelib

import "math"

// 控制点间隔ε，用于错开相邻断点（float32精度量级）
const lutBreakEpsilon = 1e-7

// 插值查找表滤波器：对指数值做分段线性映射，输出陆地/临界/水体编码
// 控制表在构建时生成一次，所有瓦片共用，保证分块计算结果一致
type lutFilter struct {
	xs []float64
	ys []float64
}

// 按阈值与容差构建控制点表
// tolerance>0: [0,lo1]→land，[lo2,hi1]→marginal，[hi2,1]→water，断点间线性插值
// tolerance==0: 临界带收拢，只输出land与water
func newLutFilter(threshold, tolerance float64, water, marginal, land uint8) *lutFilter {
	lo1 := threshold - tolerance
	lo2 := lo1 + lutBreakEpsilon
	hi1 := threshold + tolerance
	hi2 := hi1 + lutBreakEpsilon
	f := &lutFilter{}
	if tolerance == 0 {
		f.add(0, float64(land))
		f.add(lo1, float64(land))
		f.add(lo2, float64(water))
		f.add(1, float64(water))
	} else {
		f.add(0, float64(land))
		f.add(lo1, float64(land))
		f.add(lo2, float64(marginal))
		f.add(hi1, float64(marginal))
		f.add(hi2, float64(water))
		f.add(1, float64(water))
	}
	return f
}

// 控制点横坐标必须严格递增，失序的点丢弃
func (f *lutFilter) add(x, y float64) {
	if n := len(f.xs); n > 0 && x <= f.xs[n-1] {
		return
	}
	f.xs = append(f.xs, x)
	f.ys = append(f.ys, y)
}

func (f *lutFilter) Margin() int {
	return 0
}

func (f *lutFilter) Apply(src *Tile) (ret *Tile) {
	ret = NewTile(src.Rect)
	for i, v := range src.Data {
		ret.Data[i] = f.lookup(v)
	}
	return
}

// NaN与下越界取首控制点，上越界取末控制点
func (f *lutFilter) lookup(v float64) float64 {
	n := len(f.xs)
	if math.IsNaN(v) || v <= f.xs[0] {
		return f.ys[0]
	}
	if v >= f.xs[n-1] {
		return f.ys[n-1]
	}
	for i := 1; i < n; i++ {
		if v <= f.xs[i] {
			t := (v - f.xs[i-1]) / (f.xs[i] - f.xs[i-1])
			return f.ys[i-1] + t*(f.ys[i]-f.ys[i-1])
		}
	}
	return f.ys[n-1]
}
