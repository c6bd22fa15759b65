package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

// TicketStore persists tickets in the tickets table.
type TicketStore struct {
	db *gorm.DB
}

var (
	_ ports.TicketRepository = (*TicketStore)(nil)
	_ ports.Pinger           = (*TicketStore)(nil)
)

func NewTicketStore(db *gorm.DB) *TicketStore {
	return &TicketStore{db: db}
}

func (s *TicketStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *TicketStore) List(ctx context.Context) ([]*domain.Ticket, error) {
	var rows []ticketRecord
	if err := s.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}

	tickets := make([]*domain.Ticket, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode ticket %d: %w", row.ID, err)
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func (s *TicketStore) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return getTicket(s.db.WithContext(ctx), id)
}

// Create assigns the next id from the tickets sequence when the ticket has
// no id. An explicit id raises the sequence so later ids stay above it.
func (s *TicketStore) Create(ctx context.Context, t *domain.Ticket) (*domain.Ticket, error) {
	rec := toTicketRecord(t)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		last, err := lastTicketID(tx)
		if err != nil {
			return err
		}
		if rec.ID == 0 {
			rec.ID = last + 1
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_id"}),
		}).Create(&sequenceRecord{Name: ticketSequence, LastID: max(last, rec.ID)}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("ticket %d: %w", rec.ID, apperrors.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	return rec.toDomain()
}

const ticketSequence = "tickets"

// lastTicketID is the larger of the stored sequence and the highest live id.
func lastTicketID(tx *gorm.DB) (int64, error) {
	var seq sequenceRecord
	err := tx.Where("name = ?", ticketSequence).Limit(1).Find(&seq).Error
	if err != nil {
		return 0, fmt.Errorf("read ticket sequence: %w", err)
	}
	var highest int64
	if err := tx.Model(&ticketRecord{}).Select("COALESCE(MAX(id), 0)").Scan(&highest).Error; err != nil {
		return 0, err
	}
	return max(seq.LastID, highest), nil
}

// Update runs fn and writes the result inside one transaction; an error
// from fn rolls everything back. The single connection keeps concurrent
// updates from interleaving.
func (s *TicketStore) Update(ctx context.Context, id int64, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	var updated *domain.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := getTicket(tx, id)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		t.ID = id

		rec := toTicketRecord(t)
		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("save ticket %d: %w", id, err)
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *TicketStore) Delete(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&ticketRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete ticket %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrTicketNotFound
	}
	return nil
}

func getTicket(db *gorm.DB, id int64) (*domain.Ticket, error) {
	var row ticketRecord
	err := db.Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %d: %w", id, err)
	}
	return row.toDomain()
}
