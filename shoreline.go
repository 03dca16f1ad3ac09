package shorelib

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/wgdzlh/shorelib/log"
	"github.com/wgdzlh/shorelib/utils"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 岸线提取工具：水体指数计算、阈值分类、平滑与边缘检测、分块产品写出及矢量化调度
type ShorelineTool struct {
	waterValue    uint8
	marginalValue uint8
	landValue     uint8
	sensor        string
	algorithm     IndexAlgorithm
	threshold     float64
	tolerance     float64
	smoothing     float64
	skipThreshold bool
	doEdgeDetect  bool
	clipToZone    bool
	tilePx        int
	vecSimplify   float64
	minWaterPx    int

	productFile string
	vectorFile  string
	inputFiles  []string
	aoiWkt      string
	aoiShp      string

	inputs  []BandSource
	chain   *procChain
	viewW   int
	viewH   int
	aoi     AOI
	geo     *geoRef
	dsGC    []*Dataset
	vec     Vectorizer
	console io.Writer

	refMap map[int]gdal.SpatialReference
	rLock  sync.Mutex
	tmpDir string
	logTag string
}

// 初始化岸线提取工具，tmpDir为可选的临时目录路径（未提供的话为当前目录）
func NewShorelineTool(tmpDir ...string) *ShorelineTool {
	g := &ShorelineTool{
		waterValue:    DEFAULT_WATER_VALUE,
		marginalValue: DEFAULT_MARGINAL_VALUE,
		landValue:     DEFAULT_LAND_VALUE,
		sensor:        SENSOR_LS8,
		algorithm:     NDWI,
		threshold:     DEFAULT_THRESHOLD,
		tolerance:     DEFAULT_TOLERANCE,
		smoothing:     DEFAULT_SMOOTHING,
		tilePx:        DEFAULT_TILE_SIZE,
		vecSimplify:   DEFAULT_VEC_SIMPLIFY,
		minWaterPx:    DEFAULT_MIN_WATER_PX,
		console:       os.Stdout,
		refMap:        map[int]gdal.SpatialReference{},
		logTag:        "ShorelineTool:",
	}
	if len(tmpDir) > 0 && tmpDir[0] != "" {
		g.tmpDir = tmpDir[0]
	}
	return g
}

// 按选项表配置工具。非法取值一律报错，空值保持默认，未知键忽略
func (g *ShorelineTool) Initialize(opts Options) (err error) {
	var outputFile string
	for key, value := range opts {
		if value == "" {
			continue
		}
		switch key {
		case ALGORITHM_KW:
			if g.algorithm, err = ParseAlgorithm(value); err != nil {
				return
			}
		case COLOR_CODING_KW:
			var water, marginal, land int
			codes := strings.Fields(value)
			if len(codes) != 3 {
				log.Error(g.logTag+"bad color coding", zap.String("value", value))
				return ErrInvalidConfig
			}
			if water, err = parseByte(codes[0]); err != nil {
				return
			}
			if marginal, err = parseByte(codes[1]); err != nil {
				return
			}
			if land, err = parseByte(codes[2]); err != nil {
				return
			}
			g.waterValue, g.marginalValue, g.landValue = uint8(water), uint8(marginal), uint8(land)
		case DO_EDGE_DETECT_KW:
			if g.doEdgeDetect, err = strconv.ParseBool(value); err != nil {
				err = ErrInvalidConfig
				return
			}
		case SENSOR_ID_KW:
			g.sensor = value
		case SMOOTHING_KW:
			if g.smoothing, err = parseNonNeg(value); err != nil {
				return
			}
		case THRESHOLD_KW:
			if value == THRESHOLD_SKIP {
				g.skipThreshold = true
				continue
			}
			if g.threshold, err = strconv.ParseFloat(value, 64); err != nil || g.threshold < 0 || g.threshold > 1 {
				log.Error(g.logTag+"bad threshold", zap.String("value", value))
				err = ErrInvalidConfig
				return
			}
		case TOLERANCE_KW:
			if g.tolerance, err = parseNonNeg(value); err != nil {
				return
			}
		case OUTPUT_FILE_KW:
			outputFile = value
		case INPUT_FILES_KW:
			g.inputFiles = g.inputFiles[:0]
			for _, f := range strings.Split(value, ",") {
				if f = strings.TrimSpace(f); f != "" {
					g.inputFiles = append(g.inputFiles, f)
				}
			}
		case AOI_WKT_KW:
			if err = g.CheckWkt(value, UNIVERSAL_SRID); err != nil {
				return
			}
			g.aoiWkt = value
		case AOI_SHP_KW:
			g.aoiShp = value
		case TILE_SIZE_KW:
			if g.tilePx, err = strconv.Atoi(value); err != nil || g.tilePx <= 0 {
				err = ErrInvalidConfig
				return
			}
		case CLIP_TO_ZONE_KW:
			if g.clipToZone, err = strconv.ParseBool(value); err != nil {
				err = ErrInvalidConfig
				return
			}
		case VEC_SIMPLIFY_KW:
			if g.vecSimplify, err = parseNonNeg(value); err != nil {
				return
			}
		case MIN_WATER_PX_KW:
			if g.minWaterPx, err = strconv.Atoi(value); err != nil || g.minWaterPx < 0 {
				err = ErrInvalidConfig
				return
			}
		default:
			log.Warn(g.logTag+"unknown option ignored", zap.String("key", key))
		}
	}
	if g.doEdgeDetect {
		g.productFile = outputFile
	} else {
		g.vectorFile = outputFile
		if g.vectorFile != "" {
			if strings.HasSuffix(g.vectorFile, FILE_EXT_TIF) {
				log.Error(g.logTag+"vector output must not be a tif", zap.String("out", g.vectorFile))
				return ErrInvalidConfig
			}
			g.productFile = utils.SwapExt(g.vectorFile, FILE_EXT_TIF)
		}
	}
	if g.productFile == "" {
		g.productFile = filepath.Join(g.tmpDir, fmt.Sprintf(TMP_PRODUCT, utils.GetNowTimeTag()))
	}
	log.Info(g.logTag+"tool initialized", zap.String("algorithm", g.algorithm.String()),
		zap.Float64("threshold", g.threshold), zap.Float64("tolerance", g.tolerance),
		zap.Bool("skip", g.skipThreshold), zap.Bool("edge", g.doEdgeDetect),
		zap.String("product", g.productFile), zap.String("vector", g.vectorFile))
	return
}

// 注入预先构建的波段数据源，优先于input_files中的影像路径
func (g *ShorelineTool) SetInputs(srcs ...BandSource) {
	g.inputs = srcs
}

// 注入矢量化执行器，未注入时产品定稿阶段将降级为仅输出栅格
func (g *ShorelineTool) SetVectorizer(v Vectorizer) {
	g.vec = v
}

// 重定向矢量成果的控制台输出流
func (g *ShorelineTool) SetConsole(w io.Writer) {
	g.console = w
}

// 构建处理链：就绪检查、指数计算级与分类/平滑/边缘级联，并解析感兴趣区
func (g *ShorelineTool) InitProcessingChain() (err error) {
	if g.sensor != SENSOR_LS8 {
		log.Error(g.logTag+"unsupported sensor", zap.String("sensor", g.sensor))
		return ErrUnsupportedConfig
	}
	need := g.algorithm.BandCount()
	if len(g.inputs) == 0 && len(g.inputFiles) > 0 {
		if g.inputs, err = g.openRasterInputs(g.inputFiles, need); err != nil {
			return
		}
	}
	if len(g.inputs) < need {
		log.Error(g.logTag+"not enough bands", zap.Int("got", len(g.inputs)), zap.Int("need", need))
		return ErrInsufficientInputs
	}
	g.inputs = g.inputs[:need]
	w, h := g.inputs[0].Size()
	for _, s := range g.inputs[1:] {
		if x, y := s.Size(); x != w || y != h {
			log.Error(g.logTag+"band size mismatch", zap.Int("w", x), zap.Int("h", y))
			return ErrBandSizeMismatch
		}
	}
	if w <= 0 || h <= 0 {
		return ErrWrongTif
	}
	g.viewW, g.viewH = w, h
	var filters []tileFilter
	if !g.skipThreshold && !g.doEdgeDetect {
		filters = append(filters, newLutFilter(g.threshold, g.tolerance, g.waterValue, g.marginalValue, g.landValue))
	}
	if g.smoothing > 0 {
		filters = append(filters, newGaussFilter(g.smoothing))
	}
	if g.doEdgeDetect {
		filters = append(filters, robertsFilter{})
	}
	g.chain = newProcChain(filters...)
	if err = g.resolveAOI(); err != nil {
		return
	}
	log.Info(g.logTag+"processing chain ready", zap.String("algorithm", g.algorithm.String()),
		zap.Int("stages", len(filters)+1), zap.Int("margin", g.chain.margin), zap.Any("view", g.aoi.ViewRect))
	return
}

func (g *ShorelineTool) fullRect() Rect {
	return Rect{W: g.viewW, H: g.viewH}
}

// 获取指定区域的处理结果瓦片
// 相同区域重复请求结果一致，分块请求与整幅请求逐像素一致，可多协程并发调用
func (g *ShorelineTool) GetTile(region Rect) (t *Tile, err error) {
	if g.chain == nil {
		return nil, ErrChainNotReady
	}
	full := g.fullRect()
	if region.Empty() || !region.In(full) {
		return nil, ErrBadRegion
	}
	ext := region.Grow(g.chain.margin).Intersect(full)
	bands := make([]*Tile, len(g.inputs))
	var eg errgroup.Group
	for i := range g.inputs {
		i := i
		eg.Go(func() error {
			bt := NewTile(ext)
			if e := g.inputs[i].ReadWindow(ext, bt.Data); e != nil {
				return e
			}
			bands[i] = bt
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return
	}
	t = g.chain.Run(g.algorithm.Eval(bands)).Crop(region)
	return
}

// 执行全流程：分块计算并写出分类产品，统计产品构成，再交由矢量化执行器输出矢量成果
func (g *ShorelineTool) Execute() (ret RunProduct, err error) {
	if g.chain == nil {
		err = ErrChainNotReady
		return
	}
	view := g.aoi.ViewRect
	asByte := !g.skipThreshold && !g.doEdgeDetect
	sink, err := g.newRasterSink(g.productFile, view, asByte)
	if err != nil {
		return
	}
	if err = g.runTiles(sink, view); err != nil {
		sink.Close()
		return
	}
	if err = sink.Close(); err != nil {
		return
	}
	if g.geo != nil && g.geo.valid() {
		ox, oy := g.geo.toGround(float64(view.X), float64(view.Y))
		log.Info(g.logTag+"product written", zap.String("tif", g.productFile),
			zap.Float64("originX", ox), zap.Float64("originY", oy))
	} else {
		log.Info(g.logTag+"product written", zap.String("tif", g.productFile))
	}
	ret.RasterFile = g.productFile
	if asByte {
		if ret.Stats, err = g.productStats(g.productFile); err != nil {
			return
		}
	}
	if g.clipToZone && len(g.aoi.ZoneGeo) > 0 {
		if err = g.clipProductToZone(g.productFile, g.aoi.ZoneGeo); err != nil {
			return
		}
	}
	ret.Degraded, err = g.finalize(&ret)
	return
}

// 按瓦片网格并发遍历感兴趣区并写出各瓦片
func (g *ShorelineTool) runTiles(sink TileSink, view Rect) (err error) {
	regions := TileRegions(view.W, view.H, g.tilePx)
	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())
	for _, r := range regions {
		r := r
		r.X += view.X
		r.Y += view.Y
		eg.Go(func() error {
			t, e := g.GetTile(r)
			if e != nil {
				return e
			}
			return sink.WriteTile(t)
		})
	}
	err = eg.Wait()
	return
}

// 产品定稿：分类产品转矢量，未指定矢量输出文件时成果写入控制台流
// 矢量化执行器缺失或执行失败时降级成功，仅保留栅格产品
func (g *ShorelineTool) finalize(ret *RunProduct) (degraded bool, err error) {
	if g.doEdgeDetect {
		log.Info(g.logTag + "edge mode, vector stage not applicable")
		return
	}
	if g.vec == nil {
		log.Warn(g.logTag+"vectorizer missing, only the thresholded image is available", zap.String("tif", g.productFile))
		degraded = true
		return
	}
	cfg := VectorizeConfig{
		ImageFile:  g.productFile,
		OutputFile: g.vectorFile,
		Mode:       VEC_MODE_POLYGON,
		Console:    g.console,
	}
	if err = g.vec.Initialize(cfg); err != nil {
		log.Warn(g.logTag+"vectorizer init failed, only the thresholded image is available", zap.Error(err))
		err = nil
		degraded = true
		return
	}
	if err = g.vec.Execute(); err != nil {
		log.Warn(g.logTag+"vectorize failed, only the thresholded image is available", zap.Error(err))
		err = nil
		degraded = true
		return
	}
	ret.VectorFile = g.vectorFile
	return
}

// 释放全部已打开的影像句柄
func (g *ShorelineTool) Close() {
	g.closeDatasets()
}

func parseByte(s string) (v int, err error) {
	if v, err = strconv.Atoi(s); err != nil || v < 0 || v > 255 {
		err = ErrInvalidConfig
	}
	return
}

func parseNonNeg(s string) (v float64, err error) {
	if v, err = strconv.ParseFloat(s, 64); err != nil || v < 0 {
		err = ErrInvalidConfig
	}
	return
}
