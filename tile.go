package shorelib

// 像素空间矩形，X/Y为左上角
type Rect struct {
	X, Y, W, H int
}

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func (r Rect) Right() int {
	return r.X + r.W
}

func (r Rect) Bottom() int {
	return r.Y + r.H
}

// 判断r是否完全落在s内
func (r Rect) In(s Rect) bool {
	return r.X >= s.X && r.Y >= s.Y && r.Right() <= s.Right() && r.Bottom() <= s.Bottom()
}

// 四周外扩m个像素
func (r Rect) Grow(m int) Rect {
	return Rect{r.X - m, r.Y - m, r.W + 2*m, r.H + 2*m}
}

// 与s求交，无交集时返回空矩形
func (r Rect) Intersect(s Rect) Rect {
	x1 := maxi(r.X, s.X)
	y1 := maxi(r.Y, s.Y)
	x2 := mini(r.Right(), s.Right())
	y2 := mini(r.Bottom(), s.Bottom())
	return Rect{x1, y1, x2 - x1, y2 - y1}
}

// 数据瓦片：带像素空间位置的浮点栅格块，行优先存储
type Tile struct {
	Rect
	Data []float64
}

func NewTile(r Rect) *Tile {
	return &Tile{Rect: r, Data: make([]float64, r.W*r.H)}
}

// 按绝对像素坐标取值
func (t *Tile) At(x, y int) float64 {
	return t.Data[(y-t.Y)*t.W+(x-t.X)]
}

func (t *Tile) Set(x, y int, v float64) {
	t.Data[(y-t.Y)*t.W+(x-t.X)] = v
}

// 邻域取值，超出瓦片范围时按边缘复制
func (t *Tile) AtClamped(x, y int) float64 {
	return t.At(clampi(x, t.X, t.Right()-1), clampi(y, t.Y, t.Bottom()-1))
}

// 裁出子区域瓦片，r必须落在t内
func (t *Tile) Crop(r Rect) *Tile {
	if r == t.Rect {
		return t
	}
	out := NewTile(r)
	for y := r.Y; y < r.Bottom(); y++ {
		copy(out.Data[(y-r.Y)*r.W:][:r.W], t.Data[(y-t.Y)*t.W+(r.X-t.X):][:r.W])
	}
	return out
}

// 内存波段数据源
type MemBandSource struct {
	W, H int
	Data []float64
}

func (m *MemBandSource) Size() (x, y int) {
	return m.W, m.H
}

func (m *MemBandSource) ReadWindow(win Rect, buf []float64) error {
	if !win.In(Rect{0, 0, m.W, m.H}) || len(buf) < win.W*win.H {
		return ErrBadRegion
	}
	for y := 0; y < win.H; y++ {
		copy(buf[y*win.W:][:win.W], m.Data[(win.Y+y)*m.W+win.X:][:win.W])
	}
	return nil
}

func maxi(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func mini(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
