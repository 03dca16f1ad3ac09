package shorelib

import (
	"math"
	"testing"
)

func TestGaussKernel(t *testing.T) {
	f := newGaussFilter(0.2)
	if f.radius != 1 || f.Margin() != 1 {
		t.Fatalf("radius got %d", f.radius)
	}
	sum := 0.0
	for _, k := range f.kernel {
		sum += k
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("kernel sum %v", sum)
	}
	if f2 := newGaussFilter(2); f2.radius != 6 {
		t.Fatalf("radius got %d", f2.radius)
	}
}

func TestGaussConstantField(t *testing.T) {
	f := newGaussFilter(0.8)
	src := NewTile(Rect{0, 0, 8, 8})
	for i := range src.Data {
		src.Data[i] = 3
	}
	out := f.Apply(src)
	for i, v := range out.Data {
		if math.Abs(v-3) > 1e-9 {
			t.Fatalf("pixel %d drift: %v", i, v)
		}
	}
}

func TestGaussSymmetry(t *testing.T) {
	f := newGaussFilter(0.5)
	src := NewTile(Rect{0, 0, 9, 9})
	src.Set(4, 4, 1)
	out := f.Apply(src)
	if out.At(3, 4) != out.At(5, 4) || out.At(4, 3) != out.At(4, 5) || out.At(3, 4) != out.At(4, 3) {
		t.Fatal("impulse response not symmetric")
	}
	if out.At(4, 4) <= out.At(3, 4) {
		t.Fatal("impulse peak not at center")
	}
}
