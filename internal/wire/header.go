package wire

import "chat262/internal/wireendian"

// Header is the fixed 8-byte preamble of every frame:
// version:u16, type:u16, body_len:u32, all little-endian.
type Header struct {
	Version uint16
	Type    MessageType
	BodyLen uint32
}

// Encode writes h into buf, which must be exactly HeaderSize bytes long.
func (h Header) Encode(buf []byte) {
	_ = buf[HeaderSize-1] // bounds check hint
	wireendian.PutUint16(buf[0:2], h.Version)
	wireendian.PutUint16(buf[2:4], uint16(h.Type))
	wireendian.PutUint32(buf[4:8], h.BodyLen)
}

// Bytes returns the HeaderSize-byte wire encoding of h.
func (h Header) Bytes() []byte {
	buf := make([]byte, HeaderSize)
	h.Encode(buf)
	return buf
}

// DecodeHeader parses a HeaderSize-byte buffer into a Header. The caller
// must supply exactly HeaderSize bytes; this function does not itself
// enforce that (the framed transport reads exactly HeaderSize bytes
// before calling it).
func DecodeHeader(buf []byte) Header {
	return Header{
		Version: wireendian.Uint16(buf[0:2]),
		Type:    MessageType(wireendian.Uint16(buf[2:4])),
		BodyLen: wireendian.Uint32(buf[4:8]),
	}
}
