package transport

import (
	"encoding/binary"
	"io"
	"sync"
)

// Magic follows the length prefix of every TCP frame.
const Magic = "VT01"

const frameHeaderSize = 8

// FrameCodec reads and writes the CM TCP framing: u32 LE payload length,
// the magic, then the payload.
type FrameCodec struct {
	readMu  sync.Mutex
	writeMu sync.Mutex
	maxSize int
	header  [frameHeaderSize]byte
}

func NewFrameCodec(maxSize int) *FrameCodec {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &FrameCodec{maxSize: maxSize}
}

// WriteFrame writes payload as one frame with a single Write call.
func (c *FrameCodec) WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > c.maxSize {
		return ErrFrameTooLarge.withContext("%d bytes, limit %d", len(payload), c.maxSize)
	}
	buf := make([]byte, frameHeaderSize, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], Magic)
	buf = append(buf, payload...)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one frame. The returned slice is owned by the caller.
func (c *FrameCodec) ReadFrame(r io.Reader) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	if _, err := io.ReadFull(r, c.header[:]); err != nil {
		return nil, err
	}
	if string(c.header[4:]) != Magic {
		return nil, ErrBadMagic.withContext("%q", c.header[4:])
	}
	length := binary.LittleEndian.Uint32(c.header[:4])
	if uint64(length) > uint64(c.maxSize) {
		return nil, ErrFrameTooLarge.withContext("%d bytes, limit %d", length, c.maxSize)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
