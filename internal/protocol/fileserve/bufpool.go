package fileserve

import "sync"

// ============================================================================
// Request Buffer Pool
// ============================================================================
//
// Every connection reads its request into one fixed-size buffer. Pooling
// those buffers keeps a busy pool from allocating BufferSize bytes per
// connection. All buffers in a pool have the same size, so there are no
// size classes to manage.

type bufferPool struct {
	size int
	pool sync.Pool
}

func newBufferPool(size int) *bufferPool {
	p := &bufferPool{size: size}
	p.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return p
}

// Get returns a buffer of exactly the pool's size.
// The caller must call Put when finished with it.
func (p *bufferPool) Get() []byte {
	return *p.pool.Get().(*[]byte)
}

// Put returns buf to the pool. Buffers of any other capacity are dropped.
func (p *bufferPool) Put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	full := buf[:p.size]
	p.pool.Put(&full)
}
