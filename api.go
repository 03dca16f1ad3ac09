package shorelib

import (
	"encoding/json"
	"io"
)

type AnyJson = json.RawMessage

type GdalGeo = []byte

// 工具选项，键名见config.go
type Options = map[string]string

// 波段数据源，按像素窗口读取单个波段
type BandSource interface {
	// 读取win窗口内的波段数据到buf（行优先，len(buf)≥win.W*win.H）
	ReadWindow(win Rect, buf []float64) error
	// 波段栅格尺寸
	Size() (x, y int)
}

// 分类瓦片写出端
type TileSink interface {
	WriteTile(t *Tile) error
}

// 矢量化插件配置
type VectorizeConfig struct {
	ImageFile  string    // 输入分类栅格
	OutputFile string    // 矢量输出路径，为空则写入Console
	Mode       string    // 追踪模式，目前仅"polygon"
	Console    io.Writer // 控制台输出流
}

// 栅格转矢量插件
type Vectorizer interface {
	Initialize(cfg VectorizeConfig) error
	Execute() error
}

// 分类统计
type ZoneStats struct {
	WaterPixels    uint64  `json:"water_pixels"`
	MarginalPixels uint64  `json:"marginal_pixels"`
	LandPixels     uint64  `json:"land_pixels"`
	WaterRatio     float64 `json:"water_ratio"`
}

// 运行产品
type RunProduct struct {
	RasterFile string     `json:"raster_file"`           // 分类栅格产品
	VectorFile string     `json:"vector_file,omitempty"` // 矢量产品，控制台输出时为空
	Degraded   bool       `json:"degraded"`              // 矢量化不可用，仅栅格产品有效
	Stats      *ZoneStats `json:"stats,omitempty"`       // 仅阈值分类模式下有值
}

// GeoJSON要素
type GeoFeature struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
	Geometry   AnyJson           `json:"geometry"`
}

// GeoJSON要素集
type GeoFeatureCollection struct {
	Type     string       `json:"type"`
	Features []GeoFeature `json:"features"`
}
