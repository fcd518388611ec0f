// Package protocol implements the framed command link between the host and
// the LED firmware.
//
// Every message is
//
//	[len][seq][payload...][crc hi][crc lo][0x7E]
//
// where len counts the whole message, seq is 0x10 plus a 4-bit sequence
// number and the CRC covers len, seq and payload. The payload is a list of
// commands: a VLQ command id followed by VLQ arguments.
package protocol

// Version of the wire format
const Version = "1.0.0"

// Framing
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F

	// MessageMax sizes scratch buffers; one frame always fits
	MessageMax = MessageLengthMax
)

// Command ids. Host to firmware unless noted.
const (
	CmdReset       uint16 = 0
	CmdConfigStrip uint16 = 1
	CmdLoadPixels  uint16 = 2
	CmdShow        uint16 = 3
	CmdGetStats    uint16 = 4
	CmdStats       uint16 = 5 // Firmware to host
)

// MaxPixelChunk is the most pixel bytes one load_pixels command carries.
// Sixteen RGB pixels, leaving room for the header and arguments.
const MaxPixelChunk = 48

// NextSeq returns the sequence number that follows seq
func NextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}
