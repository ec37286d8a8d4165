package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool переиспользует кадры *image.RGBA одного размера между
// воркерами рендера, чтобы не нагружать GC на каждом кадре.
type ImagePool struct {
	mu    sync.RWMutex
	pools map[image.Point]*sync.Pool

	allocs atomic.Int64
	reuses atomic.Int64
}

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Point]*sync.Pool)}
}

// Get returns a w x h frame. Its pixels are whatever the previous user left.
func (p *ImagePool) Get(w, h int) *image.RGBA {
	size := image.Pt(w, h)
	pool := p.poolFor(size)
	if img, ok := pool.Get().(*image.RGBA); ok && img != nil {
		p.reuses.Add(1)
		return img
	}
	p.allocs.Add(1)
	return image.NewRGBA(image.Rectangle{Max: size})
}

// Put hands a frame back. Frames of a size never requested are dropped.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, ok := p.pools[img.Rect.Size()]
	p.mu.RUnlock()
	if ok {
		pool.Put(img)
	}
}

// Stats returns how many frames were allocated and how many were reused.
func (p *ImagePool) Stats() (allocs, reuses int64) {
	return p.allocs.Load(), p.reuses.Load()
}

func (p *ImagePool) poolFor(size image.Point) *sync.Pool {
	p.mu.RLock()
	pool, ok := p.pools[size]
	p.mu.RUnlock()
	if ok {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Double check
	if pool, ok = p.pools[size]; !ok {
		pool = &sync.Pool{}
		p.pools[size] = pool
	}
	return pool
}
