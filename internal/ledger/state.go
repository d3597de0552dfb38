// Package ledger holds the single serialisable state of the settlement
// engine and the precondition errors its operations return.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signal-market/internal/repository"
)

// Clock returns the current time. Deadlines are compared against it.
type Clock func() time.Time

// State is the ledger shared by every operation for the lifetime of the
// serving process.
type State struct {
	db     *gorm.DB
	locker Locker
	clock  Clock
	log    logrus.FieldLogger
}

// Option configures a State.
type Option func(*State)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(s *State) { s.clock = c }
}

// WithLocker replaces the in-process writer lock, e.g. with a distributed one.
func WithLocker(l Locker) Option {
	return func(s *State) { s.locker = l }
}

// New creates a State over db.
func New(db *gorm.DB, log logrus.FieldLogger, opts ...Option) *State {
	s := &State{
		db:     db,
		locker: NewLocalLocker(),
		clock:  time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the ledger's current time.
func (s *State) Now() time.Time {
	return s.clock()
}

// Log returns the ledger logger.
func (s *State) Log() logrus.FieldLogger {
	return s.log
}

// Mutate runs fn under the writer lock inside a single transaction. If fn
// returns an error every write it made is rolled back.
func (s *State) Mutate(ctx context.Context, fn func(repo *repository.Repository) error) error {
	unlock, err := s.locker.Lock(ctx)
	if err != nil {
		return fmt.Errorf("acquire ledger lock: %w", err)
	}
	defer unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repository.NewRepository(tx))
	})
}

// Read returns a repository for read-only queries. Reads do not take the
// writer lock; each query sees a committed snapshot.
func (s *State) Read(ctx context.Context) *repository.Repository {
	return repository.NewRepository(s.db.WithContext(ctx))
}
