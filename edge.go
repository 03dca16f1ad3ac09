package shorelib

import "math"

// Roberts交叉梯度边缘检测，输出梯度幅值
type robertsFilter struct{}

func (robertsFilter) Margin() int {
	return 1
}

func (robertsFilter) Apply(src *Tile) (ret *Tile) {
	ret = NewTile(src.Rect)
	for y := src.Y; y < src.Bottom(); y++ {
		for x := src.X; x < src.Right(); x++ {
			gx := src.AtClamped(x, y) - src.AtClamped(x+1, y+1)
			gy := src.AtClamped(x+1, y) - src.AtClamped(x, y+1)
			ret.Set(x, y, math.Sqrt(gx*gx+gy*gy))
		}
	}
	return
}
