package shorelib

import (
	"encoding/json"
	"math"
	"os"
	"strings"

	"github.com/wgdzlh/shorelib/log"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// 基于GDAL的矢量化执行器，将分类产品转为水面矢量成果
type GdalVectorizer struct {
	t     *ShorelineTool
	cfg   VectorizeConfig
	ready bool
}

func NewGdalVectorizer(t *ShorelineTool) *GdalVectorizer {
	return &GdalVectorizer{t: t}
}

// 校验并缓存矢量化配置，mode目前仅支持polygon
// 输出路径为空时成果写入Console流，两者必须至少有一个
func (v *GdalVectorizer) Initialize(cfg VectorizeConfig) (err error) {
	if cfg.Mode != VEC_MODE_POLYGON {
		return ErrBadVecMode
	}
	if cfg.ImageFile == "" || cfg.OutputFile == "" && cfg.Console == nil {
		return ErrInvalidConfig
	}
	v.cfg = cfg
	v.ready = true
	return
}

// 执行矢量化：栅格转矢量、水面要素编组为GeoJSON FeatureCollection并写出
// 输出文件为shp时走shp导出，其余写GeoJSON文件；未指定输出文件时GeoJSON写入控制台
func (v *GdalVectorizer) Execute() (err error) {
	if !v.ready {
		return ErrVecNotReady
	}
	g := v.t
	log.Info(g.logTag+"start vectorize product", zap.String("tif", v.cfg.ImageFile), zap.String("out", v.cfg.OutputFile))
	wkbs, err := v.collectWaterWkbs()
	if err != nil {
		return
	}
	fc := GeoFeatureCollection{Type: GEOJSON_TYPE_FC, Features: make([]GeoFeature, 0, len(wkbs))}
	var geoJson AnyJson
	for _, wkb := range wkbs {
		if geoJson, err = g.WkbToGeoJSON(wkb, UNIVERSAL_SRID); err != nil {
			return
		}
		ft := GeoFeature{
			Type:       GEOJSON_TYPE_FEATURE,
			Properties: map[string]string{SHP_FIELD_CLASS: WATER_CLASS_NAME},
			Geometry:   geoJson,
		}
		if g.aoi.ZoneName != "" {
			ft.Properties[SHP_FIELD_NAME] = g.aoi.ZoneName
		}
		fc.Features = append(fc.Features, ft)
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return
	}
	switch {
	case v.cfg.OutputFile == "":
		if _, err = v.cfg.Console.Write(data); err != nil {
			return
		}
	case strings.HasSuffix(v.cfg.OutputFile, FILE_EXT_SHP):
		if err = g.WriteShorelineShapefile(v.cfg.OutputFile, UNIVERSAL_SRID, WATER_CLASS_NAME, g.aoi.ZoneName, wkbs...); err != nil {
			return
		}
	default:
		if err = os.WriteFile(v.cfg.OutputFile, data, os.ModePerm); err != nil {
			log.Error(g.logTag+"write vector file failed", zap.Error(err))
			return
		}
	}
	if len(g.aoi.ZoneGeo) > 0 && len(wkbs) > 0 {
		if ratio, e := g.WaterCoverageRatio(g.aoi.ZoneGeo, wkbs); e == nil {
			log.Info(g.logTag+"water coverage in zone", zap.Float32("ratio", ratio))
		}
	}
	log.Info(g.logTag+"vectorize done", zap.Int("features", len(fc.Features)))
	return
}

// 栅格转矢量并筛出水体面要素：碎斑过滤、孔洞清理、抽稀、区划裁剪后转为4326坐标系WKB
// 无地理参考的产品保持像素坐标输出
func (v *GdalVectorizer) collectWaterWkbs() (wkbs []GdalGeo, err error) {
	g := v.t
	sds, err := gdal.Open(v.cfg.ImageFile, gdal.ReadOnly)
	if err != nil {
		log.Error(g.logTag+"open product tif failed", zap.Error(err))
		err = ErrInvalidTif
		return
	}
	defer sds.Close()
	var (
		projWkt = sds.Projection()
		gt      = sds.GeoTransform()
		pixArea = math.Abs(gt[1]*gt[5] - gt[2]*gt[4])
		band    = sds.RasterBand(1)
		hasRef  = projWkt != ""
		ref     gdal.SpatialReference
	)
	if pixArea == 0 {
		pixArea = 1
	}
	if hasRef {
		if ref, err = g.refFromWkt(projWkt); err != nil {
			return
		}
	} else {
		ref = gdal.CreateSpatialReference("")
	}
	defer ref.Destroy()
	drv := gdal.OGRDriverByName(MEM_DRIVER_NAME)
	mds, ok := drv.Create("", nil)
	if !ok {
		err = ErrGdalDriverCreate
		return
	}
	defer mds.Destroy()
	layer := mds.CreateLayer("", ref, gdal.GT_Polygon, nil)
	if err = layer.CreateField(gdal.CreateFieldDefinition(SHP_FIELD_DN, gdal.FT_Integer), false); err != nil {
		return
	}
	if err = band.Polygonize(layer, 0); err != nil {
		log.Error(g.logTag+"polygonize failed", zap.Error(err))
		return
	}
	var (
		minArea = float64(g.minWaterPx) * pixArea
		pixSize = math.Sqrt(pixArea)
		simpTol = g.vecSimplify * pixSize
		buff    = VecBuffRatio * pixSize
		zone    = emptyGeometry
		t4326   gdal.SpatialReference
		feature *gdal.Feature
		geo     gdal.Geometry
		clean   gdal.Geometry
		wkb     []byte
		total   int
		gc      []destroyable
	)
	defer func() {
		for _, d := range gc {
			d.Destroy()
		}
	}()
	if hasRef {
		if t4326, err = g.getSridRef(UNIVERSAL_SRID); err != nil {
			return
		}
		if len(g.aoi.ZoneGeo) > 0 {
			if zone, err = g.parseWKB(g.aoi.ZoneGeo, t4326); err != nil {
				return
			}
			gc = append(gc, zone)
			if e := zone.TransformTo(ref); e != nil {
				log.Error(g.logTag+"zone transform failed", zap.Error(e))
				zone = emptyGeometry
			}
		}
	}
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		gc = append(gc, *feature)
		total++
		if feature.FieldAsInteger(0) != int(g.waterValue) {
			continue
		}
		geo = feature.StealGeometry()
		if geo.Area() < minArea { // 过滤碎斑
			geo.Destroy()
			continue
		}
		clean, err = g.cleanPolygon(geo, minArea, simpTol, buff)
		geo.Destroy()
		if err != nil {
			return
		}
		if clean.IsEmpty() { // 腐蚀后可能消失
			clean.Destroy()
			continue
		}
		if zone != emptyGeometry {
			clipped, kept := clipGeoToZone(clean, zone)
			clean.Destroy()
			if !kept {
				continue
			}
			clean = clipped
		}
		if hasRef {
			if err = clean.TransformTo(t4326); err != nil {
				log.Error(g.logTag+"vector transform failed", zap.Error(err))
				clean.Destroy()
				return
			}
		}
		wkb, err = clean.ToWKB()
		clean.Destroy()
		if err != nil {
			return
		}
		wkbs = append(wkbs, wkb)
	}
	log.Info(g.logTag+"water polygons collected", zap.Int("total", total), zap.Int("water", len(wkbs)))
	return
}
