// Package wireendian provides the fixed little-endian integer codec that
// every multi-byte field on the Chat262 wire traverses. It is a thin,
// total wrapper over encoding/binary.LittleEndian: Go's binary package
// always produces little-endian bytes regardless of host architecture, so
// unlike the original C implementation there is no runtime byte-order
// branch to take. The wrapper exists so the rest of the codec never
// imports encoding/binary directly and so the on-the-wire byte order is
// asserted in one place.
package wireendian

import "encoding/binary"

// PutUint16 writes v into buf[0:2] in little-endian order.
func PutUint16(buf []byte, v uint16) {
	binary.LittleEndian.PutUint16(buf, v)
}

// Uint16 reads a little-endian uint16 from buf[0:2].
func Uint16(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf)
}

// PutUint32 writes v into buf[0:4] in little-endian order.
func PutUint32(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// Uint32 reads a little-endian uint32 from buf[0:4].
func Uint32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

// PutUint64 writes v into buf[0:8] in little-endian order.
func PutUint64(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf, v)
}

// Uint64 reads a little-endian uint64 from buf[0:8].
func Uint64(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}
