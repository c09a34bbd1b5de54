package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrTooLarge reports a payload that exceeded the configured size cap.
var ErrTooLarge = errors.New("payload exceeds size limit")

// CappedReader reads whole payloads through pooled chunks, honoring
// context cancellation and an optional upper size bound. A maxBytes of
// zero disables the cap.
type CappedReader struct {
	buffers  *BufferPool
	chunks   *BytePool
	maxBytes int64
}

func NewCappedReader(maxBytes int64) *CappedReader {
	return &CappedReader{
		buffers:  NewBufferPool(),
		chunks:   NewBytePool(32 * 1024),
		maxBytes: maxBytes,
	}
}

// ReadAll drains r into a pooled buffer and returns a copy of the bytes.
func (cr *CappedReader) ReadAll(ctx context.Context, r io.Reader) ([]byte, error) {
	buf := cr.buffers.Get()
	defer cr.buffers.Put(buf)
	chunk := cr.chunks.Get()
	defer cr.chunks.Put(chunk)
	chunk = chunk[:cap(chunk)]

	var total int64
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, err := r.Read(chunk)
		if n > 0 {
			total += int64(n)
			if cr.maxBytes > 0 && total > cr.maxBytes {
				return nil, fmt.Errorf("%w: read %d bytes, limit %d", ErrTooLarge, total, cr.maxBytes)
			}
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
