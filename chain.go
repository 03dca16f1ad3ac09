package shorelib

// 瓦片滤波器，Margin为计算一个输出像素所需的邻域半径
type tileFilter interface {
	Apply(src *Tile) *Tile
	Margin() int
}

// 指数计算之后的串联滤波链，margin为各级半径之和
type procChain struct {
	filters []tileFilter
	margin  int
}

func newProcChain(filters ...tileFilter) (c *procChain) {
	c = &procChain{filters: filters}
	for _, f := range filters {
		c.margin += f.Margin()
	}
	return
}

func (c *procChain) Run(t *Tile) *Tile {
	for _, f := range c.filters {
		t = f.Apply(t)
	}
	return t
}
