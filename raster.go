package shorelib

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/wgdzlh/shorelib/log"

	gdal "github.com/airbusgeo/godal"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Dataset = gdal.Dataset

var registerOnce sync.Once

// godal需显式注册GDAL驱动
func registerDrivers() {
	registerOnce.Do(gdal.RegisterAll)
}

// 输入影像的地理参考：仿射参数与坐标系WKT
type geoRef struct {
	gt    [6]float64
	srWkt string
}

func (gr *geoRef) valid() bool {
	return gr.gt[1]*gr.gt[5]-gr.gt[2]*gr.gt[4] != 0
}

// 像素坐标转地理坐标
func (gr *geoRef) toGround(px, py float64) (x, y float64) {
	x = gr.gt[0] + px*gr.gt[1] + py*gr.gt[2]
	y = gr.gt[3] + px*gr.gt[4] + py*gr.gt[5]
	return
}

// 地理坐标转像素坐标（完整仿射逆变换）
func (gr *geoRef) toPixel(x, y float64) (px, py float64) {
	det := gr.gt[1]*gr.gt[5] - gr.gt[2]*gr.gt[4]
	dx, dy := x-gr.gt[0], y-gr.gt[3]
	px = (gr.gt[5]*dx - gr.gt[2]*dy) / det
	py = (gr.gt[1]*dy - gr.gt[4]*dx) / det
	return
}

// 地理范围四角映射出的像素外包矩形
func (gr *geoRef) viewRectOf(minX, minY, maxX, maxY float64) (r Rect) {
	x0, y0 := gr.toPixel(minX, minY)
	x1, y1 := gr.toPixel(minX, maxY)
	x2, y2 := gr.toPixel(maxX, minY)
	x3, y3 := gr.toPixel(maxX, maxY)
	left := math.Floor(math.Min(math.Min(x0, x1), math.Min(x2, x3)))
	top := math.Floor(math.Min(math.Min(y0, y1), math.Min(y2, y3)))
	right := math.Ceil(math.Max(math.Max(x0, x1), math.Max(x2, x3)))
	bottom := math.Ceil(math.Max(math.Max(y0, y1), math.Max(y2, y3)))
	r = Rect{X: int(left), Y: int(top), W: int(right - left), H: int(bottom - top)}
	return
}

// 平移仿射原点至子区域左上角
func (gr *geoRef) shifted(origin Rect) (out [6]float64) {
	out = gr.gt
	fx, fy := float64(origin.X), float64(origin.Y)
	out[0] = gr.gt[0] + fx*gr.gt[1] + fy*gr.gt[2]
	out[3] = gr.gt[3] + fx*gr.gt[4] + fy*gr.gt[5]
	return
}

// 像元边长（原生单位）
func (gr *geoRef) pixelSize() float64 {
	return math.Sqrt(gr.pixelArea())
}

// 像元面积（原生单位）
func (gr *geoRef) pixelArea() float64 {
	return math.Abs(gr.gt[1]*gr.gt[5] - gr.gt[2]*gr.gt[4])
}

// 单波段影像数据源（GDAL数据集句柄非线程安全，读取加锁）
type tifBandSource struct {
	band gdal.Band
	mu   *sync.Mutex
	w, h int
	path string
}

func (s *tifBandSource) Size() (x, y int) {
	return s.w, s.h
}

func (s *tifBandSource) ReadWindow(win Rect, buf []float64) (err error) {
	if !win.In(Rect{W: s.w, H: s.h}) || len(buf) < win.W*win.H {
		return ErrBadRegion
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.band.IO(gdal.IORead, win.X, win.Y, buf, win.W, win.H); err != nil {
		log.Error("read tif band failed", zap.String("tif", s.path), zap.Error(err))
		err = ErrTifReadFailed
	}
	return
}

// 打开输入影像波段：单幅多波段影像按波段序取用，多幅影像各取首波段
func (g *ShorelineTool) openRasterInputs(tifs []string, bandCnt int) (srcs []BandSource, err error) {
	registerDrivers()
	var (
		ds    *Dataset
		bands []gdal.Band
	)
	defer func() {
		if err != nil {
			g.closeDatasets()
		}
	}()
	if len(tifs) == 1 {
		if ds, err = g.openRaster(tifs[0]); err != nil {
			return
		}
		bands = ds.Bands()
		if len(bands) < bandCnt {
			log.Error(g.logTag+"tif bands not enough", zap.Int("bands", len(bands)), zap.Int("need", bandCnt))
			err = ErrInsufficientInputs
			return
		}
		mu := &sync.Mutex{}
		for i := 0; i < bandCnt; i++ {
			st := bands[i].Structure()
			srcs = append(srcs, &tifBandSource{band: bands[i], mu: mu, w: st.SizeX, h: st.SizeY, path: tifs[0]})
		}
		return
	}
	if len(tifs) < bandCnt {
		log.Error(g.logTag+"input tifs not enough", zap.Int("tifs", len(tifs)), zap.Int("need", bandCnt))
		err = ErrInsufficientInputs
		return
	}
	for i := 0; i < bandCnt; i++ {
		if ds, err = g.openRaster(tifs[i]); err != nil {
			return
		}
		bands = ds.Bands()
		if len(bands) == 0 {
			err = ErrWrongTif
			return
		}
		st := bands[0].Structure()
		srcs = append(srcs, &tifBandSource{band: bands[0], mu: &sync.Mutex{}, w: st.SizeX, h: st.SizeY, path: tifs[i]})
	}
	return
}

// 打开单幅影像并登记句柄，首幅影像的地理参考作为基准
func (g *ShorelineTool) openRaster(tif string) (ds *Dataset, err error) {
	ds, err = gdal.Open(tif, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open tif failed", zap.String("tif", tif), zap.Error(err))
		err = ErrInvalidTif
		return
	}
	g.dsGC = append(g.dsGC, ds)
	if g.geo == nil {
		ref := &geoRef{}
		if gt, e := ds.GeoTransform(); e == nil {
			ref.gt = gt
		}
		if sr := ds.SpatialRef(); sr != nil {
			ref.srWkt, _ = sr.WKT()
		}
		g.geo = ref
	}
	return
}

// 释放全部已打开的影像句柄
func (g *ShorelineTool) closeDatasets() {
	for _, ds := range g.dsGC {
		ds.Close()
	}
	g.dsGC = nil
}

// 分类产品写出器，按瓦片写入GTiff（LZW压缩，分块存储）
type rasterSink struct {
	ds     *Dataset
	band   gdal.Band
	mu     sync.Mutex
	origin Rect
	asByte bool
	path   string
}

func (g *ShorelineTool) newRasterSink(path string, view Rect, asByte bool) (sk *rasterSink, err error) {
	registerDrivers()
	dt := gdal.Float32
	if asByte {
		dt = gdal.Byte
	}
	ds, err := gdal.Create(gdal.GTiff, path, 1, dt, view.W, view.H, gdal.CreationOption("TILED=YES", "COMPRESS=LZW"))
	if err != nil {
		log.Error(g.logTag+"create product tif failed", zap.String("tif", path), zap.Error(err))
		err = ErrGdalDriverCreate
		return
	}
	if g.geo != nil && g.geo.valid() {
		if err = ds.SetGeoTransform(g.geo.shifted(view)); err != nil {
			ds.Close()
			return
		}
		if g.geo.srWkt != "" {
			var sr *gdal.SpatialRef
			if sr, err = gdal.NewSpatialRefFromWKT(g.geo.srWkt); err != nil {
				ds.Close()
				return
			}
			err = ds.SetSpatialRef(sr)
			sr.Close()
			if err != nil {
				ds.Close()
				return
			}
		}
	}
	sk = &rasterSink{ds: ds, band: ds.Bands()[0], origin: view, asByte: asByte, path: path}
	return
}

// 写入单个瓦片，坐标以产品视图原点为基准
func (sk *rasterSink) WriteTile(t *Tile) (err error) {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	if sk.asByte {
		buf := make([]byte, len(t.Data))
		for i, v := range t.Data {
			buf[i] = byte(clampf(math.Round(v), 0, 255))
		}
		return sk.band.IO(gdal.IOWrite, t.X-sk.origin.X, t.Y-sk.origin.Y, buf, t.W, t.H)
	}
	buf := make([]float32, len(t.Data))
	for i, v := range t.Data {
		buf[i] = float32(v)
	}
	return sk.band.IO(gdal.IOWrite, t.X-sk.origin.X, t.Y-sk.origin.Y, buf, t.W, t.H)
}

func (sk *rasterSink) Close() (err error) {
	return sk.ds.Close()
}

// 统计分类产品的像素组成（基于GDAL直方图）
func (g *ShorelineTool) productStats(tif string) (st *ZoneStats, err error) {
	registerDrivers()
	ds, err := gdal.Open(tif, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open product tif failed", zap.Error(err))
		err = ErrInvalidTif
		return
	}
	defer ds.Close()
	bands := ds.Bands()
	if len(bands) == 0 {
		err = ErrWrongTif
		return
	}
	h, err := bands[0].Histogram(gdal.Intervals(256, -0.5, 255.5))
	if err != nil {
		log.Error(g.logTag+"histogram failed", zap.Error(err))
		return
	}
	st = &ZoneStats{}
	if h.Len() == 256 {
		st.WaterPixels = h.Bucket(int(g.waterValue)).Count
		st.MarginalPixels = h.Bucket(int(g.marginalValue)).Count
		st.LandPixels = h.Bucket(int(g.landValue)).Count
	}
	if total := st.WaterPixels + st.MarginalPixels + st.LandPixels; total > 0 {
		st.WaterRatio = float64(st.WaterPixels) / float64(total)
	}
	log.Info(g.logTag+"product stats", zap.Uint64("water", st.WaterPixels),
		zap.Uint64("marginal", st.MarginalPixels), zap.Uint64("land", st.LandPixels))
	return
}

// 按区划矢量裁剪分类产品，并转为LZW压缩的最终GTiff
func (g *ShorelineTool) clipProductToZone(tif string, zone GdalGeo) (err error) {
	geoJson, err := g.WkbToGeoJSON(zone, UNIVERSAL_SRID)
	if err != nil {
		return
	}
	tmpGeoJson := filepath.Join(g.tmpDir, fmt.Sprintf(TMP_GEOJSON, uuid.NewString()))
	if err = os.WriteFile(tmpGeoJson, geoJson, os.ModePerm); err != nil {
		return
	}
	defer os.Remove(tmpGeoJson)
	registerDrivers()
	sds, err := gdal.Open(tif, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open product tif failed", zap.Error(err))
		err = ErrInvalidTif
		return
	}
	part := tif + "_part.tif"
	ods, err := gdal.Warp(part, []*Dataset{sds}, []string{"-cutline", tmpGeoJson, "-crop_to_cutline", "-overwrite"}) // 剪切影像
	sds.Close()
	if err != nil {
		log.Error(g.logTag+"failed to crop product", zap.Error(err))
		return
	}
	defer os.Remove(part)
	finalDs, err := ods.Translate(tif, []string{"-co", "compress=lzw"})
	ods.Close()
	if err != nil {
		log.Error(g.logTag+"failed to translate product", zap.Error(err))
		return
	}
	finalDs.Close()
	log.Info(g.logTag+"product clipped to zone", zap.String("tif", tif))
	return
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
