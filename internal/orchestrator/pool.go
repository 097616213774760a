package orchestrator

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// voicePool hands out per-character lanes. With exclusivity on, at most one
// job per character holds its lane at a time; jobs for different characters
// never wait on each other here.
type voicePool struct {
	exclusive bool

	mu    sync.Mutex
	lanes map[string]*semaphore.Weighted
}

func newVoicePool(exclusive bool) *voicePool {
	return &voicePool{exclusive: exclusive, lanes: make(map[string]*semaphore.Weighted)}
}

func (p *voicePool) lane(id string) *semaphore.Weighted {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.lanes[id]
	if !ok {
		l = semaphore.NewWeighted(1)
		p.lanes[id] = l
	}
	return l
}

// TryAcquire checks out the lane for a character without blocking. ok is
// false while another job holds it. The returned release is idempotent.
func (p *voicePool) TryAcquire(id string) (release func(), ok bool) {
	if !p.exclusive {
		return func() {}, true
	}
	l := p.lane(id)
	if !l.TryAcquire(1) {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(func() { l.Release(1) }) }, true
}
