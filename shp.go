package shorelib

import (
	"fmt"
	"strings"

	"github.com/wgdzlh/shorelib/log"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

func (g *ShorelineTool) getShpDriver(shp string, srid int) (ds gdal.DataSource, ref gdal.SpatialReference, layer gdal.Layer, err error) {
	log.Info(g.logTag+"output shp files", zap.String("shp", shp), zap.Int("srid", srid))
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Create(shp, nil)
	if !ok {
		err = ErrGdalDriverCreate
		return
	}
	if ref, err = g.getSridRef(srid); err != nil {
		return
	}
	layer = ds.CreateLayer("", ref, gdal.GT_Unknown, []string{ENCODING_OPTION})
	return
}

func (g *ShorelineTool) initShpLayer(layer gdal.Layer, fields ...string) (err error) {
	log.Info(g.logTag+"init shp layer", zap.Strings("fields", fields))
	for _, f := range fields {
		fd := gdal.CreateFieldDefinition(f, gdal.FT_String)
		fd.SetWidth(64)
		if err = layer.CreateField(fd, false); err != nil {
			return
		}
	}
	return
}

// 将岸线水面矢量写入shp，class与name字段对全部要素取相同值
func (g *ShorelineTool) WriteShorelineShapefile(shp string, srid int, className, zoneName string, gs ...GdalGeo) (err error) {
	ds, ref, layer, err := g.getShpDriver(shp, srid)
	if err != nil {
		return
	}
	defer ds.Destroy() // 生成shp文件 + 释放资源
	if err = g.initShpLayer(layer, SHP_FIELD_CLASS, SHP_FIELD_NAME); err != nil {
		return
	}
	var (
		def      = layer.Definition()
		classIdx = def.FieldIndex(SHP_FIELD_CLASS)
		nameIdx  = def.FieldIndex(SHP_FIELD_NAME)
		feature  gdal.Feature
		geo      gdal.Geometry
		valid    int
		e        error
		gc       = make([]destroyable, 0, len(gs))
	)
	for i, v := range gs {
		feature = def.Create()
		gc = append(gc, feature)
		if e = feature.SetFID(int64(i)); e != nil {
			log.Error(g.logTag+"err in set feature fid", zap.Error(e))
			continue
		}
		feature.SetFieldString(classIdx, className)
		if zoneName != "" {
			feature.SetFieldString(nameIdx, zoneName)
		}
		if geo, e = g.parseWKB(v, ref); e != nil {
			continue
		}
		if e = feature.SetGeometryDirectly(geo); e != nil {
			log.Error(g.logTag+"err in set geom of feature", zap.Error(e))
			continue
		}
		if e = layer.Create(feature); e != nil {
			log.Error(g.logTag+"err in create feature of layer", zap.Error(e))
			continue
		}
		valid++
	}
	for _, v := range gc {
		v.Destroy()
	}
	log.Info(g.logTag+"shoreline shp created", zap.String("shp", shp), zap.Int("total", len(gs)), zap.Int("valid", valid))
	return
}

// 转换整个shp文件的文本编码
func (g *ShorelineTool) EncodingShapefile(shp, cpg string, rmOld bool) (out string, err error) {
	if cpg == SHAPE_ENCODING || cpg == UTF8_ENC {
		out = shp
		return
	}
	// cpg为空，或者不为UTF-8的，都当作GBK编码处理
	sds, err := gdal.OpenEx(shp, gdal.OFVector, nil, []string{OO_ENCODING}, nil)
	if err != nil {
		log.Error(g.logTag+"open shp error", zap.Error(err))
		return
	}
	defer sds.Close()
	log.Info(g.logTag+"start encoding shp", zap.String("shp", shp), zap.String("cpg", cpg))
	prefix := strings.TrimSuffix(shp, FILE_EXT_SHP)
	out = prefix + fmt.Sprintf("_%s"+FILE_EXT_SHP, UTF8_ENC)
	dds, err := gdal.VectorTranslate(out, []gdal.Dataset{sds}, []string{"-lco", ENCODING_OPTION})
	if err != nil {
		log.Error(g.logTag + "VectorTranslate failed")
		return
	}
	dds.Close() // 生成转换后的shp文件

	if rmOld {
		if e := sds.Driver().DeleteDataset(shp); e != nil {
			log.Info(g.logTag+"delete old shp failed", zap.Error(e))
		}
	}
	log.Info(g.logTag+"end encoding shp", zap.String("shp", out))
	return
}
