package api

import (
	"bytes"
	"sync"
)

// bufferPool reuses byte buffers for request bodies. Every report request
// encodes two prompts, each several kilobytes of template text.
var bufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// maxPooledBufferSize keeps unusually large bodies from pinning memory in the pool
const maxPooledBufferSize = 64 * 1024

// getBuffer retrieves a reset buffer from the pool.
// Caller must call putBuffer() when done.
func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// putBuffer returns a buffer to the pool unless it grew past maxPooledBufferSize
func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() <= maxPooledBufferSize {
		bufferPool.Put(buf)
	}
}
