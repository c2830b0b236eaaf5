// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/extlaunch/extlaunch/pkg/script"
)

// ErrPersisterClosed is reported when snapshots arrive after Close.
var ErrPersisterClosed = errors.New("persister closed")

type (
	// Saver is the sink a Persister writes to. File implements it.
	Saver interface {
		Save(scripts []script.Script) error
	}

	// Persister writes registry snapshots on a single background goroutine.
	// Snapshots that arrive while a write is in flight are coalesced so only
	// the latest is written next.
	Persister struct {
		saver  Saver
		logger *slog.Logger

		mu      sync.Mutex
		pending []script.Script
		dirty   bool
		closed  bool
		errs    []error

		wake chan struct{}
		quit chan struct{}
		done chan struct{}
		once sync.Once
	}
)

// NewPersister starts the writer goroutine. Call Close to flush and stop it.
func NewPersister(saver Saver, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Persister{
		saver:  saver,
		logger: logger,
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Persist queues scripts for writing and returns immediately.
func (p *Persister) Persist(scripts []script.Script) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("dropping registry snapshot", "error", ErrPersisterClosed)
		return
	}
	p.pending = scripts
	p.dirty = true
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Close writes any pending snapshot and stops the writer. It returns the
// joined write failures seen over the persister's lifetime, or ctx.Err()
// if ctx ends first.
func (p *Persister) Close(ctx context.Context) error {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.quit)
	})

	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}

func (p *Persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.flush()
		case <-p.quit:
			p.flush()
			return
		}
	}
}

func (p *Persister) flush() {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return
	}
	scripts := p.pending
	p.pending, p.dirty = nil, false
	p.mu.Unlock()

	if err := p.saver.Save(scripts); err != nil {
		p.logger.Error("failed to persist registry", "error", err, "scripts", len(scripts))
		p.mu.Lock()
		p.errs = append(p.errs, err)
		p.mu.Unlock()
		return
	}
	p.logger.Debug("registry persisted", "scripts", len(scripts))
}
