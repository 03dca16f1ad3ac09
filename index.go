package shorelib

// 水体指数算法
type IndexAlgorithm uint8

const (
	NDWI IndexAlgorithm = iota // in0/(in0+in1)
	AWEI                       // 4*(in0+in1) - 0.25*in2 - 2.75*in3
)

func ParseAlgorithm(name string) (alg IndexAlgorithm, err error) {
	switch name {
	case "ndwi":
		alg = NDWI
	case "awei":
		alg = AWEI
	default:
		err = ErrUnsupportedConfig
	}
	return
}

func (a IndexAlgorithm) String() string {
	if a == AWEI {
		return "awei"
	}
	return "ndwi"
}

// 算法所需的输入波段数
func (a IndexAlgorithm) BandCount() int {
	if a == AWEI {
		return 4
	}
	return 2
}

// 对一组同构波段瓦片逐像素计算水体指数，输出浮点指数瓦片
// NDWI分母为零的像素输出0，保证下游分类结果确定
func (a IndexAlgorithm) Eval(bands []*Tile) (ret *Tile) {
	ret = NewTile(bands[0].Rect)
	switch a {
	case NDWI:
		b0, b1 := bands[0].Data, bands[1].Data
		for i := range ret.Data {
			if den := b0[i] + b1[i]; den != 0 {
				ret.Data[i] = b0[i] / den
			}
		}
	case AWEI:
		b0, b1, b2, b3 := bands[0].Data, bands[1].Data, bands[2].Data, bands[3].Data
		for i := range ret.Data {
			ret.Data[i] = 4*(b0[i]+b1[i]) - 0.25*b2[i] - 2.75*b3[i]
		}
	}
	return
}
