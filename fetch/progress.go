package fetch

import (
	"slices"
	"sync"
)

// Progress tracks the completion percentage of one in-flight download.
// Only the most recent value is retained: slow consumers of [Progress.Updates]
// never see stale percentages.
type Progress struct {
	mu      sync.Mutex
	percent int
	subs    []func(percent int)

	updates chan int
}

func newProgress() *Progress {
	return &Progress{
		updates: make(chan int, 1),
	}
}

// Percent returns the most recently reported value, in [0, 100].
func (p *Progress) Percent() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.percent
}

// Updates returns a channel carrying percentage updates with drop-latest
// semantics: a stale value is replaced instead of blocking the reporter.
func (p *Progress) Updates() <-chan int {
	return p.updates
}

func (p *Progress) subscribe(fn func(percent int)) {
	if fn == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.subs = append(p.subs, fn)
}

func (p *Progress) set(percent int) {
	p.mu.Lock()
	if percent == p.percent {
		p.mu.Unlock()
		return
	}
	p.percent = percent
	subs := slices.Clone(p.subs)
	p.mu.Unlock()

	// Replace a stale value instead of blocking.
	select {
	case p.updates <- percent:
	default:
		select {
		case <-p.updates:
		default:
		}
		select {
		case p.updates <- percent:
		default:
		}
	}

	for _, fn := range subs {
		fn(percent)
	}
}
