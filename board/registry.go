package board

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Notifier is told when a user's board changed.
type Notifier interface {
	BoardChanged(ctx context.Context, userID string) error
}

// Registry holds one lazily bootstrapped board per user.
type Registry struct {
	store    Store
	opts     Options
	notifier Notifier

	mu     sync.Mutex
	boards map[string]*Board
}

// NewRegistry creates a registry. notifier may be nil.
func NewRegistry(store Store, opts Options, notifier Notifier) *Registry {
	return &Registry{store: store, opts: opts.withDefaults(), notifier: notifier, boards: map[string]*Board{}}
}

// Board returns the user's board, bootstrapping it on first use. A failed
// bootstrap is retried on the next call.
func (r *Registry) Board(ctx context.Context, userID string) (*Board, error) {
	r.mu.Lock()
	b, ok := r.boards[userID]
	if !ok {
		b = New(userID, r.store, r.opts)
		b.onChange = func(ctx context.Context) { r.notify(ctx, userID) }
		r.boards[userID] = b
	}
	r.mu.Unlock()
	if err := b.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// Forget marks a cached board stale so the next access reloads it from the
// store. The board instance is kept, so one user never has two writers.
func (r *Registry) Forget(userID string) {
	r.mu.Lock()
	b, ok := r.boards[userID]
	r.mu.Unlock()
	if ok {
		b.invalidate()
	}
}

func (r *Registry) notify(ctx context.Context, userID string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.BoardChanged(ctx, userID); err != nil {
		log.WithError(err).WithField("user", userID).Warn("board change notification failed")
	}
}
