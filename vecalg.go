package shorelib

import (
	"github.com/wgdzlh/shorelib/log"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

const (
	VecBuffRatio = 0.5 // 开运算缓冲半径与像元边长之比
	BuffQuadSegs = 12
)

// 清理单个水面多边形：去除面积小于阈值的内环孔洞，保持拓扑的抽稀，再以腐蚀+膨胀平滑锯齿边缘
// 孔洞面积、抽稀容差与缓冲半径均为该面所在坐标系的原生单位
func (g *ShorelineTool) cleanPolygon(geo gdal.Geometry, minHole, tol, buff float64) (ret gdal.Geometry, err error) {
	if minHole > 0 {
		if err = removeSmallHoles(geo, minHole); err != nil {
			log.Error(g.logTag+"remove holes failed", zap.Error(err))
			return
		}
	}
	var gc []destroyable
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	ret = geo.Clone()
	if tol > 0 {
		gc = append(gc, ret)
		ret = ret.SimplifyPreservingTopology(tol)
	}
	if buff > 0 {
		gc = append(gc, ret)
		ret = ret.Buffer(-buff, BuffQuadSegs) // 腐蚀
		gc = append(gc, ret)
		ret = ret.Buffer(buff, BuffQuadSegs) // 膨胀
	}
	return
}

// 去除面中面积小于阈值的孔洞，外环(序号0)始终保留
func removeSmallHoles(geo gdal.Geometry, minArea float64) (err error) {
	ng := geo.GeometryCount()
	for i := 1; i < ng; {
		if geo.Geometry(i).Area() < minArea {
			if err = geo.RemoveGeometry(i, true); err != nil {
				return
			}
			ng--
			continue
		}
		i++
	}
	return
}

// 聚合若干面要素为一个多面体，多面体入参逐子面展开，所有权随之转移
func mergeToMultiPolygon(gs []gdal.Geometry) (ret gdal.Geometry, err error) {
	ret = gdal.Create(gdal.GT_MultiPolygon)
	for _, sub := range gs {
		switch sub.Type() {
		case gdal.GT_Polygon:
			if err = ret.AddGeometryDirectly(sub); err != nil {
				ret.Destroy()
				ret = emptyGeometry
				return
			}
		case gdal.GT_MultiPolygon:
			for i, pn := 0, sub.GeometryCount(); i < pn; i++ {
				if err = ret.AddGeometryDirectly(sub.Geometry(0)); err != nil {
					ret.Destroy()
					ret = emptyGeometry
					return
				}
				if err = sub.RemoveGeometry(0, false); err != nil {
					return
				}
			}
			sub.Destroy()
		}
	}
	return
}

// 计算水面矢量集合在区划内的覆盖率（入参均为4326坐标系WKB）
func (g *ShorelineTool) WaterCoverageRatio(zone GdalGeo, waters []GdalGeo) (ratio float32, err error) {
	ref, err := g.getSridRef(UNIVERSAL_SRID)
	if err != nil {
		return
	}
	district, err := g.parseWKB(zone, ref)
	if err != nil {
		return
	}
	var (
		subGeo gdal.Geometry
		polys  = make([]gdal.Geometry, 0, len(waters))
		gc     = []destroyable{district}
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	for _, w := range waters {
		if subGeo, err = g.parseWKB(w, ref); err != nil {
			return
		}
		polys = append(polys, subGeo)
	}
	unionGeo, err := mergeToMultiPolygon(polys)
	if err != nil {
		return
	}
	gc = append(gc, unionGeo)
	districtArea := district.Area()
	if districtArea <= 0 {
		return
	}
	interGeo := district.Intersection(unionGeo)
	gc = append(gc, interGeo)
	ratio = float32(interGeo.Area() / districtArea)
	log.Info(g.logTag+"got water coverage ratio", zap.Float32("ratio", ratio))
	return
}

// 将面裁剪至区划范围内，不相交或裁剪结果退化时ok为false
func clipGeoToZone(geo, zone gdal.Geometry) (ret gdal.Geometry, ok bool) {
	if !geo.Intersects(zone) {
		return
	}
	ret = geo.Intersection(zone)
	switch ret.Type() {
	case gdal.GT_Polygon, gdal.GT_MultiPolygon:
		ok = !ret.IsEmpty()
	}
	if !ok && ret != emptyGeometry {
		ret.Destroy()
		ret = emptyGeometry
	}
	return
}
