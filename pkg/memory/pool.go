// Package memory provides pooling and bounded-read helpers for the two
// payload hot paths: description ingestion and response body reads.
package memory

import (
	"bytes"
	"sync"
)

const (
	// maxRetainedBuffer caps the size of buffers returned to the pool;
	// one oversized response must not pin memory for the process life.
	maxRetainedBuffer = 64 * 1024

	// minRetainedChunk keeps tiny slices out of the chunk pool.
	minRetainedChunk = 1024
)

// BufferPool recycles bytes.Buffer instances across calls.
type BufferPool struct {
	pool sync.Pool
}

func NewBufferPool() *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				return &bytes.Buffer{}
			},
		},
	}
}

func (bp *BufferPool) Get() *bytes.Buffer {
	buf := bp.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func (bp *BufferPool) Put(buf *bytes.Buffer) {
	if buf.Cap() <= maxRetainedBuffer {
		bp.pool.Put(buf)
	}
}

// BytePool recycles fixed-capacity chunk slices for streaming reads.
type BytePool struct {
	pool sync.Pool
}

func NewBytePool(chunkSize int) *BytePool {
	if chunkSize <= 0 {
		chunkSize = 8192
	}
	return &BytePool{
		pool: sync.Pool{
			New: func() any {
				return make([]byte, 0, chunkSize)
			},
		},
	}
}

func (bp *BytePool) Get() []byte {
	return bp.pool.Get().([]byte)[:0]
}

func (bp *BytePool) Put(b []byte) {
	if cap(b) >= minRetainedChunk {
		bp.pool.Put(b[:0])
	}
}
