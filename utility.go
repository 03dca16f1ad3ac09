package shorelib

import "math"

const (
	degToRad = math.Pi / 180

	xr = 20037508.34 / 180
	yr = xr / degToRad
	tr = degToRad / 2
)

func Convert4326To3857(lon, lat float64) (lonIn3857, latIn3857 float64) {
	lonIn3857 = lon * xr
	latIn3857 = math.Log(math.Tan((90+lat)*tr)) * yr
	return
}

func Convert3857To4326(lonIn3857, latIn3857 float64) (lon, lat float64) {
	lon = lonIn3857 / xr
	lat = math.Atan(math.Pow(math.E, latIn3857/yr))/tr - 90
	return
}

// 估算经纬度范围按给定地面分辨率(米)成像时的像素尺寸
func ViewSizeForSpan(span [4]float64, gsd float64) (w, h int) {
	if gsd <= 0 {
		return
	}
	x1, y1 := Convert4326To3857(span[0], span[2])
	x2, y2 := Convert4326To3857(span[1], span[3])
	w = int(math.Ceil(math.Abs(x2-x1) / gsd))
	h = int(math.Ceil(math.Abs(y2-y1) / gsd))
	return
}

// 将视图平面按瓦片边长划分为若干互不重叠的区域，行优先次序，边缘瓦片取剩余部分
func TileRegions(w, h, size int) (ret []Rect) {
	if w <= 0 || h <= 0 || size <= 0 {
		return
	}
	full := Rect{W: w, H: h}
	nx := (w + size - 1) / size
	ny := (h + size - 1) / size
	ret = make([]Rect, 0, nx*ny)
	for ty := 0; ty < ny; ty++ {
		for tx := 0; tx < nx; tx++ {
			r := Rect{X: tx * size, Y: ty * size, W: size, H: size}
			ret = append(ret, r.Intersect(full))
		}
	}
	return
}
