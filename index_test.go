package shorelib

import "testing"

func TestParseAlgorithm(t *testing.T) {
	if alg, err := ParseAlgorithm("ndwi"); err != nil || alg != NDWI || alg.BandCount() != 2 {
		t.Fatal(alg, err)
	}
	if alg, err := ParseAlgorithm("awei"); err != nil || alg != AWEI || alg.BandCount() != 4 {
		t.Fatal(alg, err)
	}
	if _, err := ParseAlgorithm("mndwi"); err != ErrUnsupportedConfig {
		t.Fatalf("expect unsupported, got %v", err)
	}
}

func TestNdwiEval(t *testing.T) {
	r := Rect{0, 0, 2, 2}
	b0 := NewTile(r)
	b1 := NewTile(r)
	copy(b0.Data, []float64{2, 1, 0, 3})
	copy(b1.Data, []float64{2, 3, 0, -3})
	out := NDWI.Eval([]*Tile{b0, b1})
	want := []float64{0.5, 0.25, 0, 0} // 后两个像素分母为零
	for i := range want {
		if out.Data[i] != want[i] {
			t.Fatalf("got %v", out.Data)
		}
	}
}

func TestAweiEval(t *testing.T) {
	r := Rect{0, 0, 1, 1}
	mk := func(v float64) *Tile {
		b := NewTile(r)
		b.Data[0] = v
		return b
	}
	out := AWEI.Eval([]*Tile{mk(1), mk(2), mk(4), mk(8)})
	if want := 4*(1.0+2.0) - 0.25*4 - 2.75*8; out.Data[0] != want {
		t.Fatalf("got %v, want %v", out.Data[0], want)
	}
}
