package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/sap-helpdesk/internal/adapters/secondary/memory"
	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
)

func newSeededStore(t *testing.T) *memory.TicketStore {
	t.Helper()
	seed, err := memory.SeedTickets()
	require.NoError(t, err)
	return memory.NewTicketStore(seed)
}

func TestSeedTickets(t *testing.T) {
	seed, err := memory.SeedTickets()
	require.NoError(t, err)
	require.Len(t, seed, 10)

	first := seed[0]
	assert.Equal(t, "Fix login page bug", first.Title)
	assert.Equal(t, domain.StatusOpen, first.Status)
	assert.Equal(t, domain.MustParseDate("2025-01-10"), first.CompletionBy)
	assert.True(t, first.ClosedOn.IsZero())
	assert.Len(t, first.Comments, 3)
	assert.Len(t, first.Logs, 4)
	assert.Equal(t, domain.ModuleSD, seed[9].Module)
}

func TestTicketStore_CreateAssignsNextID(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)

	created, err := store.Create(ctx, &domain.Ticket{Title: "New", Status: domain.StatusOpen})
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID)
	assert.Equal(t, domain.UnassignedName, created.AssignedTo)

	// Deleting the newest ticket must not free its id.
	require.NoError(t, store.Delete(ctx, 11))
	require.NoError(t, store.Delete(ctx, 3))
	created, err = store.Create(ctx, &domain.Ticket{Title: "Again"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), created.ID)

	created, err = store.Create(ctx, &domain.Ticket{ID: 40, Title: "Imported"})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, created.ID))
	created, err = store.Create(ctx, &domain.Ticket{Title: "After import"})
	require.NoError(t, err)
	assert.Equal(t, int64(41), created.ID)

	_, err = store.Create(ctx, &domain.Ticket{ID: 1, Title: "Duplicate"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestTicketStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)

	got, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	got.Title = "mutated"
	got.Comments[0].Message = "mutated"

	again, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Fix login page bug", again.Title)
	assert.NotEqual(t, "mutated", again.Comments[0].Message)
}

func TestTicketStore_UpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)

	_, err := store.Update(ctx, 1, func(tk *domain.Ticket) error {
		tk.Title = "half-written"
		return apperrors.ErrTicketClosed
	})
	assert.ErrorIs(t, err, apperrors.ErrTicketClosed)

	got, err := store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Fix login page bug", got.Title)

	_, err = store.Update(ctx, 404, func(*domain.Ticket) error { return nil })
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestTicketStore_ConcurrentComments(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, 4, func(tk *domain.Ticket) error {
				_, err := tk.AddComment("Dana White", domain.RoleAssignee, "still looking", fixedTime)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.GetByID(ctx, 4)
	require.NoError(t, err)
	assert.Len(t, got.Comments, 2+writers)

	seen := make(map[int64]bool)
	for _, c := range got.Comments {
		assert.False(t, seen[c.ID], "duplicate comment id %d", c.ID)
		seen[c.ID] = true
	}
}

func TestTicketStore_Reset(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)

	require.NoError(t, store.Delete(ctx, 1))
	store.Reset()

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 10)
	assert.Equal(t, int64(1), all[0].ID)

	created, err := store.Create(ctx, &domain.Ticket{Title: "Fresh"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID, "reset rewinds the id counter to the seed")
}
