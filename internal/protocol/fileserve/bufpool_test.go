package fileserve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferPool(t *testing.T) {
	p := newBufferPool(64)

	buf := p.Get()
	assert.Len(t, buf, 64)

	p.Put(buf[:10])
	assert.Len(t, p.Get(), 64, "a shortened buffer is restored to full length")

	// Foreign buffers are dropped rather than pooled.
	p.Put(make([]byte, 32))
	assert.Len(t, p.Get(), 64)
}
