package core

// PixelSource hands out colour data one byte at a time. Colour correction
// and dithering live behind this interface; the engine only walks forward
// through it and never rewinds.
type PixelSource interface {
	// Has reports whether at least n more pixels remain
	Has(n int) bool

	// LoadAndScale returns colour channel k (in output order) of the
	// current pixel
	LoadAndScale(k int) uint8

	// Advance moves to the next pixel
	Advance()

	// StepDither advances the dithering state, once per pixel
	StepDither()
}

// ColorOrder maps output position to the index inside an RGB triple
type ColorOrder [3]uint8

var (
	OrderRGB = ColorOrder{0, 1, 2}
	OrderRBG = ColorOrder{0, 2, 1}
	OrderGRB = ColorOrder{1, 0, 2}
	OrderGBR = ColorOrder{1, 2, 0}
	OrderBRG = ColorOrder{2, 0, 1}
	OrderBGR = ColorOrder{2, 1, 0}
)

// ParseColorOrder maps names like "grb" to an order
func ParseColorOrder(s string) (ColorOrder, bool) {
	switch s {
	case "", "rgb", "RGB":
		return OrderRGB, true
	case "rbg", "RBG":
		return OrderRBG, true
	case "grb", "GRB":
		return OrderGRB, true
	case "gbr", "GBR":
		return OrderGBR, true
	case "brg", "BRG":
		return OrderBRG, true
	case "bgr", "BGR":
		return OrderBGR, true
	}
	return OrderRGB, false
}

// PixelBuffer is a PixelSource over packed RGB bytes. It does no scaling;
// Reset rewinds it for the next frame without allocating.
type PixelBuffer struct {
	data  []byte
	order ColorOrder
	pos   int
}

// NewPixelBuffer wraps packed RGB data (3 bytes per pixel)
func NewPixelBuffer(rgb []byte, order ColorOrder) *PixelBuffer {
	return &PixelBuffer{data: rgb, order: order}
}

// Reset points the buffer at a new frame
func (p *PixelBuffer) Reset(rgb []byte) {
	p.data = rgb
	p.pos = 0
}

// Len returns the number of whole pixels in the frame
func (p *PixelBuffer) Len() int {
	return len(p.data) / 3
}

func (p *PixelBuffer) Has(n int) bool {
	return p.pos+3*n <= len(p.data)
}

func (p *PixelBuffer) LoadAndScale(k int) uint8 {
	return p.data[p.pos+int(p.order[k])]
}

func (p *PixelBuffer) Advance() {
	p.pos += 3
}

func (p *PixelBuffer) StepDither() {}

// colorOrders is indexed by the order byte of config_strip
var colorOrders = [...]ColorOrder{OrderRGB, OrderRBG, OrderGRB, OrderGBR, OrderBRG, OrderBGR}

// ColorOrderByIndex maps a wire order index to an order
func ColorOrderByIndex(i uint8) (ColorOrder, bool) {
	if int(i) >= len(colorOrders) {
		return OrderRGB, false
	}
	return colorOrders[i], true
}

// Index returns the wire index of an order
func (o ColorOrder) Index() uint8 {
	for i, c := range colorOrders {
		if c == o {
			return uint8(i)
		}
	}
	return 0
}
