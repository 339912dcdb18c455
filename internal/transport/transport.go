// Package transport implements the framed send/recv loop over a byte
// stream connection: read/write exactly the requested number of bytes,
// translating partial progress into looping, EOF into ErrConnectionClosed,
// and other I/O failures into a wrapped error. One request is ever
// in flight per connection — foreground and background callers share the
// same socket serially (see internal/poller).
package transport

import (
	"errors"
	"fmt"
	"io"

	"chat262/internal/wire"
)

// ErrConnectionClosed indicates the peer closed the connection (EOF)
// while a read was in progress.
var ErrConnectionClosed = errors.New("transport: connection closed")

// readFull reads exactly n bytes from r, looping over partial reads.
func readFull(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrConnectionClosed
		}
		return nil, fmt.Errorf("transport: read: %w", err)
	}
	return buf, nil
}

// writeFull writes all of data to w, looping over partial writes.
func writeFull(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrConnectionClosed
			}
			return fmt.Errorf("transport: write: %w", err)
		}
		data = data[n:]
	}
	return nil
}

// ReadFrame reads one frame (header then body) from r.
func ReadFrame(r io.Reader) (wire.Header, []byte, error) {
	hdrBytes, err := readFull(r, wire.HeaderSize)
	if err != nil {
		return wire.Header{}, nil, err
	}
	hdr := wire.DecodeHeader(hdrBytes)
	body, err := readFull(r, int(hdr.BodyLen))
	if err != nil {
		return wire.Header{}, nil, err
	}
	return hdr, body, nil
}

// WriteFrame writes one frame to w. hdr.BodyLen is overwritten with the
// actual length of body so callers cannot accidentally mismatch it.
func WriteFrame(w io.Writer, hdr wire.Header, body []byte) error {
	hdr.BodyLen = uint32(len(body))
	buf := make([]byte, wire.HeaderSize+len(body))
	hdr.Encode(buf[:wire.HeaderSize])
	copy(buf[wire.HeaderSize:], body)
	return writeFull(w, buf)
}
