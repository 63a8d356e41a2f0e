package live

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxPacketSize bounds a single framed packet
const MaxPacketSize = 1 << 16

// ReadPackets reads packets framed by a 2-byte big-endian length prefix and
// calls fn for each one. The slice passed to fn is reused. Returns nil at a
// clean end of stream.
func ReadPackets(r io.Reader, fn func(packet []byte) error) error {
	var header [2]byte
	buf := make([]byte, MaxPacketSize)

	for {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read packet header: %w", err)
		}

		size := int(binary.BigEndian.Uint16(header[:]))
		if size == 0 {
			continue
		}
		if _, err := io.ReadFull(r, buf[:size]); err != nil {
			return fmt.Errorf("truncated packet of %d bytes: %w", size, err)
		}
		if err := fn(buf[:size]); err != nil {
			return err
		}
	}
}

// WritePacket writes one length-prefixed packet
func WritePacket(w io.Writer, packet []byte) error {
	if len(packet) >= MaxPacketSize {
		return fmt.Errorf("packet of %d bytes exceeds the frame limit", len(packet))
	}
	var header [2]byte
	binary.BigEndian.PutUint16(header[:], uint16(len(packet)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(packet)
	return err
}
