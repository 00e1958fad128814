package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/tuokri/SteamKit/internal/observe"
	"github.com/tuokri/SteamKit/internal/steammsg"
)

const frameLenSize = 4

// BatchDecoder unpacks Multi envelopes and routes every inner packet.
type BatchDecoder struct {
	parse       ParseFunc
	maxUnzipped int64
	metrics     bool
}

// NewBatchDecoder returns a decoder that turns each frame into an envelope
// with parse.
func NewBatchDecoder(parse ParseFunc, opts ...BatchOption) *BatchDecoder {
	b := &BatchDecoder{
		parse:       parse,
		maxUnzipped: DefaultMaxUnzipped,
		metrics:     true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle is the Handler for EMsgMulti.
//
// A decompression failure discards the whole batch. A truncated frame stops
// the batch but frames before it stay dispatched. An unparseable frame, or an
// error from routing one, is reported and skipped. Only ErrNestingLimit is
// returned from an inner route, so it unwinds every enclosing batch.
func (b *BatchDecoder) Handle(d Dispatcher, env *Envelope) error {
	if !env.IsProto {
		return ErrNotStructured.withf(nil, "%s at depth %d", env.Type, d.Depth())
	}

	var multi steammsg.Multi
	if err := env.Decode(&multi); err != nil {
		return ErrMalformedBatch.with("", err)
	}

	body := multi.MessageBody
	if multi.SizeUnzipped > 0 {
		var err error
		if body, err = b.inflate(body, multi.SizeUnzipped); err != nil {
			return err
		}
	}

	fr := NewFrameReader(body)
	dispatched := 0
	defer func() {
		if b.metrics {
			observe.AddBatchFrames(dispatched)
		}
	}()
	for {
		frame, err := fr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		inner, err := b.parse(frame)
		if err != nil || inner == nil {
			d.Report(env, ErrUnparseableFrame.withf(err, "frame %d", fr.Index()-1))
			continue
		}
		dispatched++
		if err := d.Route(inner); err != nil {
			if errors.Is(err, ErrNestingLimit) {
				return err
			}
			d.Report(inner, err)
		}
	}
}

const maxInflatePrealloc = 1 << 20

func (b *BatchDecoder) inflate(body []byte, hint uint32) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, ErrDecompression.with("", err)
	}
	defer zr.Close()

	// the hint is peer-supplied; it only sizes the first allocation
	size := min(int64(hint), b.maxUnzipped, maxInflatePrealloc)
	out := bytes.NewBuffer(make([]byte, 0, size))
	n, err := out.ReadFrom(io.LimitReader(zr, b.maxUnzipped+1))
	if err != nil {
		return nil, ErrDecompression.with("", err)
	}
	if n > b.maxUnzipped {
		return nil, ErrDecompression.withf(nil, "inflated past %d bytes", b.maxUnzipped)
	}
	return out.Bytes(), nil
}

// FrameReader walks the {u32 LE length, data} frames of a batch body.
type FrameReader struct {
	buf   []byte
	index int
}

func NewFrameReader(body []byte) *FrameReader {
	return &FrameReader{buf: body}
}

// Next returns the next frame, aliasing the body. It returns io.EOF once the
// body is exhausted and ErrFrameTruncated if the remaining bytes cannot hold
// the declared frame.
func (r *FrameReader) Next() ([]byte, error) {
	if len(r.buf) == 0 {
		return nil, io.EOF
	}
	if len(r.buf) < frameLenSize {
		return nil, ErrFrameTruncated.withf(nil, "frame %d: %d bytes left for length prefix", r.index, len(r.buf))
	}
	n := binary.LittleEndian.Uint32(r.buf)
	rest := r.buf[frameLenSize:]
	if uint64(n) > uint64(len(rest)) {
		return nil, ErrFrameTruncated.withf(nil, "frame %d: length %d, %d bytes left", r.index, n, len(rest))
	}
	frame := rest[:n:n]
	r.buf = rest[n:]
	r.index++
	return frame, nil
}

// Index is the number of frames returned so far.
func (r *FrameReader) Index() int { return r.index }

// ReadFrames returns every frame of body. On truncation it returns the frames
// read before the bad one together with the error.
func ReadFrames(body []byte) ([][]byte, error) {
	var frames [][]byte
	fr := NewFrameReader(body)
	for {
		f, err := fr.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

// AppendFrame appends one length-prefixed frame to dst.
func AppendFrame(dst, frame []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(frame)))
	return append(dst, frame...)
}

// EncodeBatch builds a Multi payload holding frames, gzip-compressed when
// compress is set.
func EncodeBatch(frames [][]byte, compress bool) ([]byte, error) {
	var body []byte
	for _, f := range frames {
		body = AppendFrame(body, f)
	}
	if body == nil {
		body = []byte{}
	}
	multi := steammsg.Multi{MessageBody: body}
	if compress && len(body) > 0 {
		var zbuf bytes.Buffer
		zw := gzip.NewWriter(&zbuf)
		if _, err := zw.Write(body); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		multi.SizeUnzipped = uint32(len(body))
		multi.MessageBody = zbuf.Bytes()
	}
	return multi.Marshal(), nil
}

// NewBatchEnvelope wraps frames in a structured Multi envelope.
func NewBatchEnvelope(frames [][]byte, compress bool) (*Envelope, error) {
	payload, err := EncodeBatch(frames, compress)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: EMsgMulti, IsProto: true, Header: NewHeader(), Payload: payload}, nil
}
