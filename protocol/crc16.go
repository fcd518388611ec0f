package protocol

// CRC16 is the CCITT checksum carried in every frame trailer, computed over
// the length byte, sequence byte and payload
func CRC16(data []byte) uint16 {
	return crc16Update(0xFFFF, data)
}

func crc16Update(crc uint16, data []byte) uint16 {
	for _, b := range data {
		b ^= uint8(crc)
		b ^= b << 4
		w := uint16(b)
		crc = (w<<8 | crc>>8) ^ (w >> 4) ^ (w << 3)
	}
	return crc
}

// appendTrailer adds the CRC of msg and the sync byte
func appendTrailer(msg []byte) []byte {
	crc := CRC16(msg)
	return append(msg, byte(crc>>8), byte(crc), MessageValueSync)
}
