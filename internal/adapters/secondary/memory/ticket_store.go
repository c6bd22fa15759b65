// Package memory holds process-local stores guarded by mutexes. State is
// lost on restart; Reset restores the seed, which tests rely on.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

// TicketStore keeps tickets in insertion order. Tickets are copied on the
// way in and on the way out. lastID is a high-water mark, so ids freed by
// Delete are never handed out again.
type TicketStore struct {
	mu      sync.RWMutex
	tickets []*domain.Ticket
	seed    []*domain.Ticket
	lastID  int64
}

var _ ports.Store = (*TicketStore)(nil)

// NewTicketStore creates a store holding copies of seed.
func NewTicketStore(seed []*domain.Ticket) *TicketStore {
	s := &TicketStore{seed: cloneAll(seed)}
	s.tickets = cloneAll(s.seed)
	s.lastID = maxID(s.seed)
	return s
}

// Reset discards every change and restores the seed.
func (s *TicketStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = cloneAll(s.seed)
	s.lastID = maxID(s.seed)
}

func (s *TicketStore) Ping(context.Context) error { return nil }

func (s *TicketStore) List(ctx context.Context) ([]*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.tickets), nil
}

func (s *TicketStore) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, apperrors.ErrTicketNotFound
	}
	return s.tickets[i].Clone(), nil
}

// Create assigns the next id above every id ever stored when t.ID is zero;
// an explicit id must be unused.
func (s *TicketStore) Create(ctx context.Context, t *domain.Ticket) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := t.Clone()
	if stored.ID == 0 {
		stored.ID = s.nextID()
	} else if s.indexOf(stored.ID) >= 0 {
		return nil, fmt.Errorf("ticket %d: %w", stored.ID, apperrors.ErrConflict)
	}
	s.lastID = max(s.lastID, stored.ID)
	normalize(stored)
	s.tickets = append(s.tickets, stored)
	return stored.Clone(), nil
}

func (s *TicketStore) Update(ctx context.Context, id int64, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, apperrors.ErrTicketNotFound
	}

	working := s.tickets[i].Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.ID = id
	normalize(working)
	s.tickets[i] = working
	return working.Clone(), nil
}

func (s *TicketStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return apperrors.ErrTicketNotFound
	}
	s.tickets = append(s.tickets[:i], s.tickets[i+1:]...)
	return nil
}

func (s *TicketStore) indexOf(id int64) int {
	for i, t := range s.tickets {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *TicketStore) nextID() int64 {
	return s.lastID + 1
}

func maxID(tickets []*domain.Ticket) int64 {
	var highest int64
	for _, t := range tickets {
		highest = max(highest, t.ID)
	}
	return highest
}

func cloneAll(in []*domain.Ticket) []*domain.Ticket {
	out := make([]*domain.Ticket, 0, len(in))
	for _, t := range in {
		out = append(out, t.Clone())
	}
	return out
}
