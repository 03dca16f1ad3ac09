package shorelib

import "errors"

var (
	ErrInvalidConfig      = errors.New("bad value for tool option")
	ErrUnsupportedConfig  = errors.New("sensor or algorithm not supported")
	ErrInsufficientInputs = errors.New("not enough input bands")
	ErrInvalidAOI         = errors.New("aoi not resolved")
	ErrChainNotReady      = errors.New("processing chain not built")
	ErrBadRegion          = errors.New("requested region outside raster")
	ErrBandSizeMismatch   = errors.New("input band sizes differ")
	ErrNoGeoRef           = errors.New("input rasters carry no georeference")
	ErrBadVecMode         = errors.New("unsupported vectorize mode")
	ErrVecNotReady        = errors.New("vectorizer not initialized")
	ErrGdalDriverCreate   = errors.New("gdal driver create err")
	ErrGdalDriverOpen     = errors.New("gdal driver open err")
	ErrGdalEmptyShp       = errors.New("gdal shp is empty")
	ErrVoidSrid           = errors.New("gdal shp with void srid")
	ErrInvalidWKT         = errors.New("invalid WKT")
	ErrInvalidTif         = errors.New("invalid tif")
	ErrWrongTif           = errors.New("malformed tif")
	ErrTifReadFailed      = errors.New("tif read failed")
)
