package shorelib

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
)

// 构造一对索引值为i/(w*h)斜坡的内存波段
func rampBands(w, h int) []BandSource {
	b0 := &MemBandSource{W: w, H: h, Data: make([]float64, w*h)}
	b1 := &MemBandSource{W: w, H: h, Data: make([]float64, w*h)}
	for i := range b0.Data {
		v := float64(i) / float64(w*h)
		b0.Data[i] = v
		b1.Data[i] = 1 - v
	}
	return []BandSource{b0, b1}
}

func newTestTool(t *testing.T, opts Options, srcs ...BandSource) *ShorelineTool {
	g := NewShorelineTool(t.TempDir())
	if err := g.Initialize(opts); err != nil {
		t.Fatal(err)
	}
	g.SetInputs(srcs...)
	if err := g.InitProcessingChain(); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestClassifyConstantIndex(t *testing.T) {
	b0 := &MemBandSource{W: 8, H: 8, Data: make([]float64, 64)}
	b1 := &MemBandSource{W: 8, H: 8, Data: make([]float64, 64)}
	for i := 0; i < 64; i++ {
		b0.Data[i] = 1
		b1.Data[i] = 1
	}
	g := newTestTool(t, Options{}, b0, b1)
	tile, err := g.GetTile(Rect{0, 0, 8, 8})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range tile.Data {
		if v != float64(DEFAULT_LAND_VALUE) {
			t.Fatalf("index 0.5 under default threshold should be land, got %v", v)
		}
	}
}

func TestClassifyRamp(t *testing.T) {
	vals := []float64{0.1, 0.3, 0.5, 0.539, 0.545, 0.55, 0.559, 0.5601, 0.8, 2}
	w := len(vals)
	b0 := &MemBandSource{W: w, H: 1, Data: make([]float64, w)}
	b1 := &MemBandSource{W: w, H: 1, Data: make([]float64, w)}
	for i, v := range vals {
		b0.Data[i] = v
		b1.Data[i] = 1 - v
	}
	g := newTestTool(t, Options{SMOOTHING_KW: "0"}, b0, b1)
	tile, err := g.GetTile(Rect{0, 0, w, 1})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0, 0, 0, 128, 128, 128, 255, 255, 255}
	for i := range want {
		if tile.Data[i] != want[i] {
			t.Fatalf("index %v classified as %v, want %v", vals[i], tile.Data[i], want[i])
		}
	}
}

func TestZeroToleranceBinary(t *testing.T) {
	g := newTestTool(t, Options{TOLERANCE_KW: "0", SMOOTHING_KW: "0"}, rampBands(16, 4)...)
	tile, err := g.GetTile(Rect{0, 0, 16, 4})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range tile.Data {
		if v != float64(DEFAULT_LAND_VALUE) && v != float64(DEFAULT_WATER_VALUE) {
			t.Fatalf("pixel %d got %v, expect binary output", i, v)
		}
	}
}

func TestColorCoding(t *testing.T) {
	b0 := &MemBandSource{W: 2, H: 1, Data: []float64{1, 3}}
	b1 := &MemBandSource{W: 2, H: 1, Data: []float64{1, 1}}
	// 色值序为 水体 临界 陆地
	g := newTestTool(t, Options{COLOR_CODING_KW: "30 20 10", SMOOTHING_KW: "0"}, b0, b1)
	tile, err := g.GetTile(Rect{0, 0, 2, 1})
	if err != nil {
		t.Fatal(err)
	}
	if tile.Data[0] != 10 || tile.Data[1] != 30 {
		t.Fatal(tile.Data)
	}
}

func TestSkipThresholdRawIndex(t *testing.T) {
	g := newTestTool(t, Options{THRESHOLD_KW: THRESHOLD_SKIP, SMOOTHING_KW: "0"}, rampBands(8, 4)...)
	tile, err := g.GetTile(Rect{0, 0, 8, 4})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range tile.Data {
		if want := float64(i) / 32; math.Abs(v-want) > 1e-15 {
			t.Fatalf("pixel %d got %v, want %v", i, v, want)
		}
	}
}

func TestAweiFourBands(t *testing.T) {
	mk := func(v float64) *MemBandSource {
		return &MemBandSource{W: 2, H: 2, Data: []float64{v, v, v, v}}
	}
	g := newTestTool(t, Options{ALGORITHM_KW: "awei", THRESHOLD_KW: THRESHOLD_SKIP, SMOOTHING_KW: "0"},
		mk(0.3), mk(0.2), mk(0.4), mk(0.1))
	tile, err := g.GetTile(Rect{0, 0, 2, 2})
	if err != nil {
		t.Fatal(err)
	}
	want := 4*(0.3+0.2) - 0.25*0.4 - 2.75*0.1
	for _, v := range tile.Data {
		if math.Abs(v-want) > 1e-12 {
			t.Fatalf("got %v, want %v", v, want)
		}
	}
}

func TestEdgeModeGradient(t *testing.T) {
	w, h := 8, 6
	b0 := &MemBandSource{W: w, H: h, Data: make([]float64, w*h)}
	b1 := &MemBandSource{W: w, H: h, Data: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b0.Data[y*w+x] = float64(x)
			b1.Data[y*w+x] = 1 - float64(x)
		}
	}
	g := newTestTool(t, Options{DO_EDGE_DETECT_KW: "true", SMOOTHING_KW: "0"}, b0, b1)
	tile, err := g.GetTile(Rect{0, 0, w, h})
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := tile.At(x, y)
			if x == w-1 {
				if v != 0 {
					t.Fatalf("right column got %v", v)
				}
			} else if math.Abs(v-math.Sqrt2) > 1e-12 {
				t.Fatalf("at %d,%d got %v", x, y, v)
			}
		}
	}
}

func TestGetTileIdempotent(t *testing.T) {
	g := newTestTool(t, Options{}, rampBands(16, 16)...)
	r := Rect{3, 2, 9, 11}
	t1, err := g.GetTile(r)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := g.GetTile(r)
	if err != nil {
		t.Fatal(err)
	}
	for i := range t1.Data {
		if t1.Data[i] != t2.Data[i] {
			t.Fatalf("pixel %d differs between identical requests", i)
		}
	}
}

func TestTilingInvariance(t *testing.T) {
	g := newTestTool(t, Options{SMOOTHING_KW: "0.8"}, rampBands(16, 16)...)
	whole, err := g.GetTile(Rect{0, 0, 16, 16})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range TileRegions(16, 16, 8) {
		part, err := g.GetTile(r)
		if err != nil {
			t.Fatal(err)
		}
		for y := r.Y; y < r.Bottom(); y++ {
			for x := r.X; x < r.Right(); x++ {
				if part.At(x, y) != whole.At(x, y) {
					t.Fatalf("tile %v differs from whole image at %d,%d", r, x, y)
				}
			}
		}
	}
}

func TestGetTileConcurrent(t *testing.T) {
	g := newTestTool(t, Options{}, rampBands(32, 32)...)
	r := Rect{4, 4, 20, 20}
	want, err := g.GetTile(r)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for n := 0; n < 16; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, e := g.GetTile(r)
			if e != nil {
				t.Error(e)
				return
			}
			for i := range want.Data {
				if got.Data[i] != want.Data[i] {
					t.Errorf("pixel %d differs in concurrent request", i)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestRunTilesMatchesWhole(t *testing.T) {
	g := newTestTool(t, Options{TILE_SIZE_KW: "6", SMOOTHING_KW: "0.5"}, rampBands(20, 14)...)
	view := g.aoi.ViewRect
	sink := &memSink{full: NewTile(view)}
	if err := g.runTiles(sink, view); err != nil {
		t.Fatal(err)
	}
	whole, err := g.GetTile(view)
	if err != nil {
		t.Fatal(err)
	}
	for i := range whole.Data {
		if sink.full.Data[i] != whole.Data[i] {
			t.Fatalf("tiled output differs at %d", i)
		}
	}
}

func TestInitErrors(t *testing.T) {
	cases := []struct {
		opts Options
		want error
	}{
		{Options{THRESHOLD_KW: "1.5"}, ErrInvalidConfig},
		{Options{THRESHOLD_KW: "abc"}, ErrInvalidConfig},
		{Options{TOLERANCE_KW: "-0.1"}, ErrInvalidConfig},
		{Options{SMOOTHING_KW: "-1"}, ErrInvalidConfig},
		{Options{ALGORITHM_KW: "mndwi"}, ErrUnsupportedConfig},
		{Options{COLOR_CODING_KW: "0 128"}, ErrInvalidConfig},
		{Options{COLOR_CODING_KW: "0 128 999"}, ErrInvalidConfig},
		{Options{DO_EDGE_DETECT_KW: "maybe"}, ErrInvalidConfig},
		{Options{TILE_SIZE_KW: "0"}, ErrInvalidConfig},
		{Options{MIN_WATER_PX_KW: "-2"}, ErrInvalidConfig},
		{Options{OUTPUT_FILE_KW: "out.tif"}, ErrInvalidConfig},
	}
	for _, c := range cases {
		g := NewShorelineTool(t.TempDir())
		if err := g.Initialize(c.opts); err != c.want {
			t.Fatalf("opts %v: got %v, want %v", c.opts, err, c.want)
		}
	}
}

func TestChainErrors(t *testing.T) {
	g := NewShorelineTool(t.TempDir())
	if err := g.Initialize(Options{SENSOR_ID_KW: "ls9"}); err != nil {
		t.Fatal(err)
	}
	g.SetInputs(rampBands(4, 4)...)
	if err := g.InitProcessingChain(); err != ErrUnsupportedConfig {
		t.Fatalf("sensor: %v", err)
	}

	g = NewShorelineTool(t.TempDir())
	if err := g.Initialize(Options{ALGORITHM_KW: "awei"}); err != nil {
		t.Fatal(err)
	}
	g.SetInputs(rampBands(4, 4)...)
	if err := g.InitProcessingChain(); err != ErrInsufficientInputs {
		t.Fatalf("bands: %v", err)
	}

	g = NewShorelineTool(t.TempDir())
	if err := g.Initialize(Options{}); err != nil {
		t.Fatal(err)
	}
	g.SetInputs(&MemBandSource{W: 4, H: 4, Data: make([]float64, 16)},
		&MemBandSource{W: 5, H: 4, Data: make([]float64, 20)})
	if err := g.InitProcessingChain(); err != ErrBandSizeMismatch {
		t.Fatalf("size: %v", err)
	}
}

func TestGetTileErrors(t *testing.T) {
	g := NewShorelineTool(t.TempDir())
	if _, err := g.GetTile(Rect{0, 0, 4, 4}); err != ErrChainNotReady {
		t.Fatalf("chain not ready: %v", err)
	}
	g = newTestTool(t, Options{}, rampBands(8, 8)...)
	if _, err := g.GetTile(Rect{4, 4, 8, 8}); err != ErrBadRegion {
		t.Fatalf("out of raster: %v", err)
	}
	if _, err := g.GetTile(Rect{0, 0, 0, 4}); err != ErrBadRegion {
		t.Fatalf("empty region: %v", err)
	}
}

func TestOutputNaming(t *testing.T) {
	g := NewShorelineTool(t.TempDir())
	if err := g.Initialize(Options{OUTPUT_FILE_KW: "/data/out/shore.json"}); err != nil {
		t.Fatal(err)
	}
	if g.vectorFile != "/data/out/shore.json" || g.productFile != "/data/out/shore.tif" {
		t.Fatal(g.productFile, g.vectorFile)
	}

	g = NewShorelineTool(t.TempDir())
	if err := g.Initialize(Options{}); err != nil {
		t.Fatal(err)
	}
	if g.vectorFile != "" || !strings.HasSuffix(g.productFile, FILE_EXT_TIF) ||
		!strings.Contains(g.productFile, "temp_shoreline_") {
		t.Fatal(g.productFile)
	}

	g = NewShorelineTool(t.TempDir())
	if err := g.Initialize(Options{DO_EDGE_DETECT_KW: "true", OUTPUT_FILE_KW: "/data/out/edge.tif"}); err != nil {
		t.Fatal(err)
	}
	if g.productFile != "/data/out/edge.tif" || g.vectorFile != "" {
		t.Fatal(g.productFile, g.vectorFile)
	}
}

func TestFinalize(t *testing.T) {
	g := NewShorelineTool(t.TempDir())
	if err := g.Initialize(Options{OUTPUT_FILE_KW: "shore.json"}); err != nil {
		t.Fatal(err)
	}
	var ret RunProduct
	degraded, err := g.finalize(&ret)
	if err != nil || !degraded {
		t.Fatal("missing vectorizer should degrade:", degraded, err)
	}

	fv := &fakeVec{execErr: errors.New("mock failure")}
	g.SetVectorizer(fv)
	degraded, err = g.finalize(&ret)
	if err != nil || !degraded || !fv.ran {
		t.Fatal("failing vectorizer should degrade:", degraded, err)
	}

	fv = &fakeVec{initErr: errors.New("mock failure")}
	g.SetVectorizer(fv)
	degraded, err = g.finalize(&ret)
	if err != nil || !degraded || fv.ran {
		t.Fatal("failing init should degrade:", degraded, err)
	}

	fv = &fakeVec{}
	g.SetVectorizer(fv)
	ret = RunProduct{}
	degraded, err = g.finalize(&ret)
	if err != nil || degraded || ret.VectorFile != "shore.json" {
		t.Fatal(degraded, err, ret.VectorFile)
	}
	if fv.cfg.ImageFile != g.productFile || fv.cfg.Mode != VEC_MODE_POLYGON {
		t.Fatal(fv.cfg)
	}
}

// 未指定输出文件时矢量成果走控制台流，产品保持临时栅格
func TestFinalizeConsole(t *testing.T) {
	g := NewShorelineTool(t.TempDir())
	if err := g.Initialize(Options{}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	g.SetConsole(&buf)
	fv := &fakeVec{}
	g.SetVectorizer(fv)
	var ret RunProduct
	degraded, err := g.finalize(&ret)
	if err != nil || degraded || ret.VectorFile != "" {
		t.Fatal(degraded, err, ret.VectorFile)
	}
	if !fv.ran || fv.cfg.OutputFile != "" || fv.cfg.Console != &buf {
		t.Fatal(fv.cfg)
	}
}

func TestFinalizeEdgeMode(t *testing.T) {
	g := NewShorelineTool(t.TempDir())
	if err := g.Initialize(Options{DO_EDGE_DETECT_KW: "true"}); err != nil {
		t.Fatal(err)
	}
	fv := &fakeVec{}
	g.SetVectorizer(fv)
	var ret RunProduct
	degraded, err := g.finalize(&ret)
	if err != nil || degraded || fv.ran {
		t.Fatal("edge mode must not vectorize:", degraded, err, fv.ran)
	}
}

type memSink struct {
	mu   sync.Mutex
	full *Tile
}

func (s *memSink) WriteTile(t *Tile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for y := t.Y; y < t.Bottom(); y++ {
		for x := t.X; x < t.Right(); x++ {
			s.full.Set(x, y, t.At(x, y))
		}
	}
	return nil
}

type fakeVec struct {
	cfg     VectorizeConfig
	initErr error
	execErr error
	ran     bool
}

func (f *fakeVec) Initialize(cfg VectorizeConfig) error {
	f.cfg = cfg
	return f.initErr
}

func (f *fakeVec) Execute() error {
	f.ran = true
	return f.execErr
}
