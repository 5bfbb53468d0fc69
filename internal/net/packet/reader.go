package packet

import (
	"encoding/binary"
	"fmt"
)

// Reader reads fields written by Writer. Reads past the end return zero
// values; Err reports whether that happened.
type Reader struct {
	data  []byte
	off   int
	short bool
}

// NewReader reads a raw payload with no opcode byte.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// NewPacketReader reads a full packet, skipping the opcode byte.
func NewPacketReader(data []byte) *Reader {
	return &Reader{data: data, off: 1}
}

func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

// ReadC reads 1 unsigned byte.
func (r *Reader) ReadC() byte {
	if r.off >= len(r.data) {
		r.short = true
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

// ReadH reads 2 bytes as little-endian uint16.
func (r *Reader) ReadH() uint16 {
	if r.off+2 > len(r.data) {
		r.short = true
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

// ReadD reads 4 bytes as little-endian int32.
func (r *Reader) ReadD() int32 {
	return int32(r.ReadDU())
}

// ReadDU reads 4 bytes as little-endian uint32.
func (r *Reader) ReadDU() uint32 {
	if r.off+4 > len(r.data) {
		r.short = true
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

// ReadS reads a null-terminated UTF-8 string.
func (r *Reader) ReadS() string {
	start := r.off
	for r.off < len(r.data) {
		if r.data[r.off] == 0 {
			s := string(r.data[start:r.off])
			r.off++ // skip null terminator
			return s
		}
		r.off++
	}
	r.short = true
	return string(r.data[start:r.off])
}

// ReadBytes reads n raw bytes.
func (r *Reader) ReadBytes(n int) []byte {
	if r.off+n > len(r.data) {
		remaining := r.data[r.off:]
		r.off = len(r.data)
		r.short = true
		return remaining
	}
	b := make([]byte, n)
	copy(b, r.data[r.off:r.off+n])
	r.off += n
	return b
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Err reports a read past the end of the data.
func (r *Reader) Err() error {
	if r.short {
		return fmt.Errorf("packet truncated at offset %d of %d", r.off, len(r.data))
	}
	return nil
}

// DecodeAnnouncement returns the text of a frame built by AnnouncementPayload.
func DecodeAnnouncement(payload []byte) (string, error) {
	r := NewReader(payload)
	r.ReadD()
	if ch := r.ReadDU(); ch != announceChannel && r.Err() == nil {
		return "", fmt.Errorf("announcement: unexpected channel %#x", ch)
	}
	r.ReadD()
	r.ReadD()
	text := r.ReadS()
	if err := r.Err(); err != nil {
		return "", fmt.Errorf("announcement: %w", err)
	}
	return text, nil
}

// DecodeSystemMessage parses a padded SystemMessage packet back to its text.
func DecodeSystemMessage(b []byte) (string, error) {
	r := NewPacketReader(b)
	if op := r.Opcode(); op != S_OPCODE_SYSTEM_MESSAGE {
		return "", fmt.Errorf("system message: opcode %#x", op)
	}
	n := r.ReadH()
	desc := r.ReadBytes(int(n))
	if err := r.Err(); err != nil {
		return "", fmt.Errorf("system message: %w", err)
	}
	return DecodeAnnouncement(desc)
}
