package shorelib

import (
	"math"
	"testing"
)

// 无区划配置时感兴趣区覆盖整幅影像
func TestResolveAOIDefault(t *testing.T) {
	g := newTestTool(t, Options{}, rampBands(12, 7)...)
	if g.aoi.ViewRect != (Rect{W: 12, H: 7}) {
		t.Fatal(g.aoi.ViewRect)
	}
	if g.aoi.ZoneWkt != "" || len(g.aoi.ZoneGeo) != 0 || g.aoi.ZoneName != "" {
		t.Fatal("zone should stay empty without aoi options")
	}
}

func TestSpanHasNans(t *testing.T) {
	if spanHasNans([4]float64{1, 2, 3, 4}) {
		t.Fatal("clean span flagged")
	}
	if !spanHasNans([4]float64{1, math.NaN(), 3, 4}) {
		t.Fatal("NaN span missed")
	}
}

func TestSpanToWkt(t *testing.T) {
	want := "POLYGON((1.000000 3.000000, 1.000000 4.000000, 2.000000 4.000000, 2.000000 3.000000, 1.000000 3.000000))"
	if got := SpanToWkt([4]float64{1, 2, 3, 4}); got != want {
		t.Fatal(got)
	}
}
