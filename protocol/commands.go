package protocol

// ConfigStrip registers a strip with the firmware.
//
//	config_strip strip=%c pin=%u t1=%u t2=%u t3=%u order=%c
type ConfigStrip struct {
	Strip uint8
	Pin   uint32
	T1    uint32 // Nanoseconds
	T2    uint32
	T3    uint32
	Order uint8 // Index into the colour order table
}

// Encode writes the arguments
func (c *ConfigStrip) Encode(out OutputBuffer) {
	EncodeVLQUint(out, uint32(c.Strip))
	EncodeVLQUint(out, c.Pin)
	EncodeVLQUint(out, c.T1)
	EncodeVLQUint(out, c.T2)
	EncodeVLQUint(out, c.T3)
	EncodeVLQUint(out, uint32(c.Order))
}

// DecodeConfigStrip reads config_strip arguments
func DecodeConfigStrip(data *[]byte) (ConfigStrip, error) {
	var c ConfigStrip
	var v [6]uint32
	if err := decodeUints(data, v[:]); err != nil {
		return c, err
	}
	c.Strip = uint8(v[0])
	c.Pin = v[1]
	c.T1, c.T2, c.T3 = v[2], v[3], v[4]
	c.Order = uint8(v[5])
	return c, nil
}

// LoadPixels carries a slice of a strip's frame.
//
//	load_pixels strip=%c offset=%u data=%*s
type LoadPixels struct {
	Strip  uint8
	Offset uint32 // Byte offset into the frame
	Data   []byte // At most MaxPixelChunk bytes
}

// Encode writes the arguments
func (c *LoadPixels) Encode(out OutputBuffer) {
	EncodeVLQUint(out, uint32(c.Strip))
	EncodeVLQUint(out, c.Offset)
	EncodeVLQBytes(out, c.Data)
}

// DecodeLoadPixels reads load_pixels arguments. Data aliases the frame.
func DecodeLoadPixels(data *[]byte) (LoadPixels, error) {
	var c LoadPixels
	var v [2]uint32
	if err := decodeUints(data, v[:]); err != nil {
		return c, err
	}
	c.Strip = uint8(v[0])
	c.Offset = v[1]

	b, err := DecodeVLQBytes(data)
	if err != nil {
		return c, err
	}
	c.Data = b
	return c, nil
}

// Stats is the firmware's reply to get_stats.
//
//	stats cycles=%u completions=%u spurious=%u faults=%u errors=%u
type Stats struct {
	Cycles      uint32
	Completions uint32
	Spurious    uint32
	Faults      uint32
	Errors      uint32 // Link framing and command errors
}

// Encode writes the arguments
func (s *Stats) Encode(out OutputBuffer) {
	EncodeVLQUint(out, s.Cycles)
	EncodeVLQUint(out, s.Completions)
	EncodeVLQUint(out, s.Spurious)
	EncodeVLQUint(out, s.Faults)
	EncodeVLQUint(out, s.Errors)
}

// DecodeStats reads stats arguments
func DecodeStats(data *[]byte) (Stats, error) {
	var v [5]uint32
	if err := decodeUints(data, v[:]); err != nil {
		return Stats{}, err
	}
	return Stats{
		Cycles:      v[0],
		Completions: v[1],
		Spurious:    v[2],
		Faults:      v[3],
		Errors:      v[4],
	}, nil
}

func decodeUints(data *[]byte, out []uint32) error {
	for i := range out {
		v, err := DecodeVLQUint(data)
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}
