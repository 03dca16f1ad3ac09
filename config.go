package shorelib

const (
	ALGORITHM_KW      = "algorithm"
	COLOR_CODING_KW   = "color_coding"
	DO_EDGE_DETECT_KW = "do_edge_detect"
	SENSOR_ID_KW      = "sensor"
	SMOOTHING_KW      = "smoothing"
	THRESHOLD_KW      = "threshold"
	TOLERANCE_KW      = "tolerance"
	OUTPUT_FILE_KW    = "output_file"
	INPUT_FILES_KW    = "input_files"
	AOI_WKT_KW        = "aoi_wkt"
	AOI_SHP_KW        = "aoi_shp"
	TILE_SIZE_KW      = "tile_size"
	CLIP_TO_ZONE_KW   = "clip_to_zone"
	VEC_SIMPLIFY_KW   = "vec_simplify"
	MIN_WATER_PX_KW   = "min_water_pixels"

	THRESHOLD_SKIP = "X" // 跳过阈值分类，直接输出水体指数

	SENSOR_LS8 = "ls8"

	DEFAULT_WATER_VALUE    = 255
	DEFAULT_MARGINAL_VALUE = 128
	DEFAULT_LAND_VALUE     = 0
	DEFAULT_THRESHOLD      = 0.55
	DEFAULT_TOLERANCE      = 0.01
	DEFAULT_SMOOTHING      = 0.2
	DEFAULT_TILE_SIZE      = 256
	DEFAULT_VEC_SIMPLIFY   = 1.0 // 像素
	DEFAULT_MIN_WATER_PX   = 2   // 像素

	FILE_EXT_SHP = ".shp"
	FILE_EXT_CPG = ".cpg"
	FILE_EXT_ZIP = ".zip"
	FILE_EXT_TIF = ".tif"

	SHAPE_ENCODING  = "UTF-8"
	UTF8_ENC        = "UTF8"
	ZH_ENC          = "GBK"
	SHP_DRIVER_NAME = "ESRI Shapefile"
	MEM_DRIVER_NAME = "Memory"
	ENCODING_OPTION = "ENCODING=" + SHAPE_ENCODING
	OO_ENCODING     = "ENCODING=" + ZH_ENC
	UNIVERSAL_SRID  = 4326

	SHP_FIELD_NAME  = "name"
	SHP_FIELD_CLASS = "class"
	SHP_FIELD_DN    = "DN"

	WATER_CLASS_NAME = "water"

	VEC_MODE_POLYGON = "polygon"

	GEOJSON_TYPE_FC      = "FeatureCollection"
	GEOJSON_TYPE_FEATURE = "Feature"

	TMP_GEOJSON = "geo_%s.json"
	TMP_PRODUCT = "temp_shoreline_%s" + FILE_EXT_TIF
)
