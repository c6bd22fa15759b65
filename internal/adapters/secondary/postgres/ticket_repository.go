package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
	"github.com/lorrc/sap-helpdesk/internal/core/utils"
)

const ticketColumns = `id, title, description, status, priority, module, assigned_to,
	assigned_to_email, raised_by, created_by, tags, created_on, completion_by,
	closed_on, comments, logs, attachments, email_source`

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// TicketRepository is the secondary adapter for ticket persistence.
// Comments, logs and attachments live in JSONB columns of the ticket row,
// so every ticket change is a single-row write.
type TicketRepository struct {
	pool *pgxpool.Pool
	tm   *TransactionManager
}

var (
	_ ports.TicketRepository = (*TicketRepository)(nil)
	_ ports.Pinger           = (*TicketRepository)(nil)
)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{
		pool: pool,
		tm:   NewTransactionManager(pool),
	}
}

func (r *TicketRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// List retrieves all tickets in id order.
func (r *TicketRepository) List(ctx context.Context) ([]*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ticketColumns+` FROM tickets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// GetByID retrieves a single ticket by its ID.
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return getTicket(ctx, r.pool, id, false)
}

// Create persists a new ticket. A zero id is drawn from tickets_id_seq, so
// ids of deleted tickets are never issued again; an explicit id advances the
// sequence past itself.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	stored := ticket.Clone()
	err := r.tm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		explicit := stored.ID != 0
		if !explicit {
			if err := tx.QueryRow(ctx, `SELECT nextval('tickets_id_seq')`).Scan(&stored.ID); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, `INSERT INTO tickets (`+ticketColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			ticketArgs(stored)...)
		if err != nil || !explicit {
			return err
		}
		_, err = tx.Exec(ctx, `SELECT setval('tickets_id_seq',
			GREATEST($1, (SELECT CASE WHEN is_called THEN last_value ELSE last_value - 1 END FROM tickets_id_seq)))`,
			stored.ID)
		return err
	})
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("ticket %d: %w", stored.ID, apperrors.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	return r.GetByID(ctx, stored.ID)
}

// Update locks the row, applies fn and writes the result back in one
// transaction.
func (r *TicketRepository) Update(ctx context.Context, id int64, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	var updated *domain.Ticket
	err := r.tm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		t, err := getTicket(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		t.ID = id

		args := ticketArgs(t)
		_, err = tx.Exec(ctx, `UPDATE tickets SET
			title = $2, description = $3, status = $4, priority = $5, module = $6,
			assigned_to = $7, assigned_to_email = $8, raised_by = $9, created_by = $10,
			tags = $11, created_on = $12, completion_by = $13, closed_on = $14,
			comments = $15, logs = $16, attachments = $17, email_source = $18,
			updated_at = NOW()
			WHERE id = $1`, args...)
		if err != nil {
			return fmt.Errorf("update ticket %d: %w", id, err)
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *TicketRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ticket %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}
	return nil
}

func getTicket(ctx context.Context, db DBTX, id int64, forUpdate bool) (*domain.Ticket, error) {
	sql := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	t, err := scanTicket(db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

func ticketArgs(t *domain.Ticket) []any {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	comments := t.Comments
	if comments == nil {
		comments = []domain.Comment{}
	}
	logs := t.Logs
	if logs == nil {
		logs = []domain.LogEntry{}
	}
	attachments := t.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	assignee := t.AssignedTo
	if assignee == "" {
		assignee = domain.UnassignedName
	}

	return []any{
		t.ID,
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		utils.ToText(string(t.Module)),
		assignee,
		utils.ToText(t.AssignedToEmail),
		t.RaisedBy,
		t.CreatedBy,
		tags,
		utils.ToDate(t.CreatedOn),
		utils.ToDate(t.CompletionBy),
		utils.ToDate(t.ClosedOn),
		comments,
		logs,
		attachments,
		t.EmailSource,
	}
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t                     domain.Ticket
		status, priority      string
		module, assigneeEmail pgtype.Text
		createdOn, due, closed pgtype.Date
	)
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&status,
		&priority,
		&module,
		&t.AssignedTo,
		&assigneeEmail,
		&t.RaisedBy,
		&t.CreatedBy,
		&t.Tags,
		&createdOn,
		&due,
		&closed,
		&t.Comments,
		&t.Logs,
		&t.Attachments,
		&t.EmailSource,
	)
	if err != nil {
		return nil, err
	}

	t.Status = domain.TicketStatus(status)
	t.Priority = domain.TicketPriority(priority)
	t.Module = domain.Module(utils.FromText(module))
	t.AssignedToEmail = utils.FromText(assigneeEmail)
	t.CreatedOn = utils.FromDate(createdOn)
	t.CompletionBy = utils.FromDate(due)
	t.ClosedOn = utils.FromDate(closed)
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return &t, nil
}
