package shorelib

import (
	"math"
	"os"
	"strings"

	"github.com/wgdzlh/shorelib/log"
	"github.com/wgdzlh/shorelib/utils"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

var (
	fieldNameGbk, _ = utils.Utf8StrToGbk(SHP_FIELD_NAME)
)

// 感兴趣区，区划矢量及其经纬度范围与视图像素范围
type AOI struct {
	GroundSpan [4]float64 // lon1, lon2, lat1, lat2
	ViewRect   Rect
	ZoneWkt    string
	ZoneGeo    GdalGeo
	ZoneName   string
}

// 解析感兴趣区：优先取aoi_wkt，其次aoi_shp（支持zip包），无区划时覆盖全图
func (g *ShorelineTool) resolveAOI() (err error) {
	full := g.fullRect()
	g.aoi = AOI{ViewRect: full}
	switch {
	case g.aoiWkt != "":
		g.aoi.ZoneWkt = g.aoiWkt
		if g.aoi.ZoneGeo, err = g.WktToWkb(g.aoiWkt, UNIVERSAL_SRID); err != nil {
			return
		}
	case g.aoiShp != "":
		if strings.HasSuffix(g.aoiShp, FILE_EXT_ZIP) {
			g.aoi.ZoneGeo, g.aoi.ZoneWkt, g.aoi.ZoneName, err = g.GetZoneFromShpZip(g.aoiShp)
		} else {
			g.aoi.ZoneGeo, g.aoi.ZoneWkt, g.aoi.ZoneName, err = g.GetZoneFromShpFile(g.aoiShp)
		}
		if err != nil {
			return
		}
		if g.aoi.ZoneName == "" {
			g.aoi.ZoneName = utils.GetFilenameWithoutExt(g.aoiShp)
		}
	default:
		return
	}
	if g.aoi.GroundSpan, err = g.GetWktSpan(g.aoi.ZoneWkt, UNIVERSAL_SRID); err != nil {
		return
	}
	if spanHasNans(g.aoi.GroundSpan) {
		log.Error(g.logTag+"aoi ground span not resolved", zap.Any("span", g.aoi.GroundSpan))
		err = ErrInvalidAOI
		return
	}
	var view Rect
	if view, err = g.GroundToView(g.aoi.GroundSpan); err != nil {
		return
	}
	if view = view.Intersect(full); view.Empty() {
		log.Error(g.logTag+"aoi outside raster", zap.Any("span", g.aoi.GroundSpan))
		err = ErrInvalidAOI
		return
	}
	g.aoi.ViewRect = view
	log.Info(g.logTag+"aoi resolved", zap.String("name", g.aoi.ZoneName), zap.Any("view", view))
	return
}

func spanHasNans(span [4]float64) bool {
	for _, v := range span {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// 将经纬度范围映射为像素视图范围（按输入影像的仿射参数与坐标系）
func (g *ShorelineTool) GroundToView(span [4]float64) (r Rect, err error) {
	if g.geo == nil || !g.geo.valid() {
		err = ErrNoGeoRef
		return
	}
	ref, err := g.getSridRef(UNIVERSAL_SRID)
	if err != nil {
		return
	}
	geo, err := g.parseWKT(SpanToWkt(span), ref)
	if err != nil {
		return
	}
	defer geo.Destroy()
	if g.geo.srWkt != "" {
		var tRef gdal.SpatialReference
		if tRef, err = g.refFromWkt(g.geo.srWkt); err != nil {
			return
		}
		defer tRef.Destroy()
		if err = geo.TransformTo(tRef); err != nil {
			log.Error(g.logTag+"span transform failed", zap.Error(err))
			return
		}
	}
	env := geo.Envelope()
	r = g.geo.viewRectOf(env.MinX(), env.MinY(), env.MaxX(), env.MaxY())
	return
}

// 按经纬度范围获取处理结果瓦片
func (g *ShorelineTool) GetGroundTile(span [4]float64) (t *Tile, err error) {
	view, err := g.GroundToView(span)
	if err != nil {
		return
	}
	if view = view.Intersect(g.aoi.ViewRect); view.Empty() {
		err = ErrBadRegion
		return
	}
	return g.GetTile(view)
}

// 从区划shp文件解析区划（自动检测同名cpg中标注的编码）
func (g *ShorelineTool) GetZoneFromShpFile(shp string) (wkb GdalGeo, wkt, name string, err error) {
	utf8 := false
	if enc, e := os.ReadFile(utils.SwapExt(shp, FILE_EXT_CPG)); e == nil && len(enc) > 0 {
		encStr := strings.ToUpper(strings.TrimSpace(string(enc)))
		utf8 = encStr == SHAPE_ENCODING || encStr == UTF8_ENC
	}
	return g.GetZoneFromShp(shp, utf8)
}

// 从zip压缩包中解析区划shp，非UTF-8编码的属性表先行转码
func (g *ShorelineTool) GetZoneFromShpZip(zipFile string) (wkb GdalGeo, wkt, name string, err error) {
	dir, err := utils.GetUniqSubDir(g.tmpDir)
	if err != nil {
		return
	}
	shp, utf8, err := utils.GetShpInZip(zipFile, dir)
	if err != nil {
		return
	}
	if !utf8 {
		if shp, err = g.EncodingShapefile(shp, ZH_ENC, true); err != nil {
			return
		}
		utf8 = true
	}
	if wkb, wkt, name, err = g.GetZoneFromShp(shp, utf8); err == nil && name == "" {
		name = utils.GetFilenameWithoutExt(zipFile)
	}
	return
}

// 从区划shp文件解析出合并后的区划矢量（4326坐标系）及区划名
func (g *ShorelineTool) GetZoneFromShp(shp string, utf8 bool) (wkb GdalGeo, wkt, name string, err error) {
	log.Info(g.logTag+"start parse zone shp", zap.String("shp", shp))
	mg, name, srid, pCnt, err := g.getZoneFromShp(shp, utf8)
	if err != nil {
		return
	}
	defer mg.Destroy()
	if pCnt == 0 {
		err = ErrGdalEmptyShp
		return
	}
	if wkb, err = mg.ToWKB(); err != nil {
		return
	}
	wkt, err = mg.ToWKT()
	log.Info(g.logTag+"got zone from shp", zap.String("shp", shp), zap.Int("srid", srid), zap.Int("cnt", pCnt), zap.String("name", name))
	return
}

// 读取区划shp，合并全部面要素并统一转为4326坐标系，同时提取name字段作为区划名
func (g *ShorelineTool) getZoneFromShp(shp string, utf8 bool) (mergedGeo gdal.Geometry, name string, srid, pCnt int, err error) {
	mergedGeo = gdal.Create(gdal.GT_MultiPolygon)
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Open(shp, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	var (
		layer = ds.LayerByIndex(0)
		trans gdal.CoordinateTransform
	)
	sRef := layer.SpatialReference()
	srid, err = g.getSrid(sRef)
	if err != nil {
		return
	}
	nameIdx := layer.Definition().FieldIndex(SHP_FIELD_NAME)
	if nameIdx < 0 {
		nameIdx = layer.Definition().FieldIndex(fieldNameGbk)
	}
	var (
		feature *gdal.Feature
		geo     gdal.Geometry
		gc      []destroyable
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	needTrans := srid != UNIVERSAL_SRID
	if needTrans {
		var tRef gdal.SpatialReference
		if tRef, err = g.getSridRef(UNIVERSAL_SRID); err != nil {
			return
		}
		trans = gdal.CreateCoordinateTransform(sRef, tRef)
		gc = append(gc, trans)
	}
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		gc = append(gc, *feature)
		if name == "" && nameIdx >= 0 {
			name = feature.FieldAsString(nameIdx)
			if name != "" && !utf8 {
				var e error
				if name, e = utils.GbkStrToUtf8(name); e != nil {
					log.Error(g.logTag+"err in trans-encoding zone name", zap.Int64("fid", feature.FID()), zap.Error(e))
					name = ""
				}
			}
			name = utils.PurifyForUtf8(name)
		}
		geo = feature.StealGeometry()
		if needTrans {
			if err = geo.Transform(trans); err != nil {
				return
			}
		}
		switch geo.Type() {
		case gdal.GT_Polygon:
			if err = mergedGeo.AddGeometryDirectly(geo); err != nil {
				return
			}
			continue
		case gdal.GT_MultiPolygon:
			for i, pn := 0, geo.GeometryCount(); i < pn; i++ {
				if err = mergedGeo.AddGeometryDirectly(geo.Geometry(0)); err != nil {
					return
				}
				if err = geo.RemoveGeometry(0, false); err != nil {
					return
				}
			}
		}
		geo.Destroy()
	}
	pCnt = mergedGeo.GeometryCount()
	if pCnt == 1 {
		geo = mergedGeo.Geometry(0)
		mergedGeo.RemoveGeometry(0, false)
		mergedGeo.Destroy()
		mergedGeo = geo
	}
	return
}
