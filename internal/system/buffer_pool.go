package system

import (
	"image"
	"sync"
)

// FramePool переиспользует холсты *image.RGBA по размеру, чтобы длинное
// появление текста не выделяло новый буфер 1280x720 на каждое состояние.
type FramePool struct {
	pools map[image.Rectangle]*sync.Pool
	mu    sync.RWMutex
}

var globalPool = NewFramePool()

func NewFramePool() *FramePool {
	return &FramePool{pools: make(map[image.Rectangle]*sync.Pool)}
}

// GetFrame возвращает холст заданного размера. Содержимое не определено,
// вызывающий код закрашивает каждый пиксель.
func GetFrame(rect image.Rectangle) *image.RGBA {
	return globalPool.Get(rect)
}

// PutFrame возвращает холст в пул.
func PutFrame(img *image.RGBA) {
	globalPool.Put(img)
}

func (p *FramePool) Get(rect image.Rectangle) *image.RGBA {
	p.mu.RLock()
	pool, exists := p.pools[rect]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[rect]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return image.NewRGBA(rect)
				},
			}
			p.pools[rect] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

func (p *FramePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, exists := p.pools[img.Rect]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
