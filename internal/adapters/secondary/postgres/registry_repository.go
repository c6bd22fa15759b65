package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
	"github.com/lorrc/sap-helpdesk/internal/core/utils"
)

const (
	userColumns  = `id, email, name, is_admin, is_active, last_login, created_at`
	adminColumns = `id, email, name, added_by, added_at`
	auditColumns = `id, action, actor_email, target_user_id, target_email, details, created_at`
)

// RegistryRepository stores users, admins and the admin audit trail.
type RegistryRepository struct {
	pool *pgxpool.Pool
	tm   *TransactionManager
}

var _ ports.RegistryRepository = (*RegistryRepository)(nil)

// NewRegistryRepository creates a new registry repository.
func NewRegistryRepository(pool *pgxpool.Pool) *RegistryRepository {
	return &RegistryRepository{
		pool: pool,
		tm:   NewTransactionManager(pool),
	}
}

func (r *RegistryRepository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *RegistryRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return getUser(ctx, r.pool, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetUserByEmail matches the stored (already normalised) address.
func (r *RegistryRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return getUser(ctx, r.pool, `SELECT `+userColumns+` FROM users WHERE email = $1`, domain.NormalizeEmail(email))
}

func (r *RegistryRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *RegistryRepository) CreateUser(ctx context.Context, u *domain.User, admin *domain.AdminUser) error {
	err := r.tm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.Email, u.Name, u.IsAdmin, u.IsActive,
			utils.ToTimestamptz(u.LastLogin), u.CreatedAt)
		if err != nil {
			return err
		}
		if admin != nil {
			return insertAdmin(ctx, tx, admin)
		}
		return nil
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", u.Email, apperrors.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *RegistryRepository) UpdateUser(ctx context.Context, u *domain.User) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users
		SET email = $2, name = $3, is_admin = $4, is_active = $5, last_login = $6
		WHERE id = $1`,
		u.ID, u.Email, u.Name, u.IsAdmin, u.IsActive, utils.ToTimestamptz(u.LastLogin))
	if err != nil {
		return fmt.Errorf("update user %s: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *RegistryRepository) ListAdmins(ctx context.Context) ([]*domain.AdminUser, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+adminColumns+` FROM admin_users ORDER BY added_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	admins := make([]*domain.AdminUser, 0)
	for rows.Next() {
		var a domain.AdminUser
		if err := rows.Scan(&a.ID, &a.Email, &a.Name, &a.AddedBy, &a.AddedAt); err != nil {
			return nil, err
		}
		a.AddedAt = a.AddedAt.UTC()
		admins = append(admins, &a)
	}
	return admins, rows.Err()
}

func (r *RegistryRepository) GetAdmin(ctx context.Context, id string) (*domain.AdminUser, error) {
	var a domain.AdminUser
	err := r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE id = $1`, id).
		Scan(&a.ID, &a.Email, &a.Name, &a.AddedBy, &a.AddedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin %s: %w", id, err)
	}
	a.AddedAt = a.AddedAt.UTC()
	return &a, nil
}

// GrantAdmin flips the user's flag and inserts the admin record in one
// transaction.
func (r *RegistryRepository) GrantAdmin(ctx context.Context, admin *domain.AdminUser) error {
	return r.tm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var isAdmin bool
		err := tx.QueryRow(ctx, `SELECT is_admin FROM users WHERE id = $1 FOR UPDATE`, admin.ID).Scan(&isAdmin)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if isAdmin {
			return apperrors.ErrAlreadyAdmin
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET is_admin = TRUE WHERE id = $1`, admin.ID); err != nil {
			return err
		}
		return insertAdmin(ctx, tx, admin)
	})
}

func (r *RegistryRepository) RevokeAdmin(ctx context.Context, id string) error {
	return r.tm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM admin_users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrAdminNotFound
		}
		_, err = tx.Exec(ctx, `UPDATE users SET is_admin = FALSE WHERE id = $1`, id)
		return err
	})
}

func (r *RegistryRepository) AppendAudit(ctx context.Context, entry *domain.AdminAuditLog) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO admin_audit_logs
		(action, actor_email, target_user_id, target_email, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		string(entry.Action), entry.ActorEmail, entry.TargetUserID, entry.TargetEmail,
		entry.Details, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit returns entries newest first along with the total count. A
// non-positive limit returns everything.
func (r *RegistryRepository) ListAudit(ctx context.Context, limit, offset int) ([]*domain.AdminAuditLog, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admin_audit_logs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit: %w", err)
	}

	var limitArg pgtype.Int8
	if limit > 0 {
		limitArg = pgtype.Int8{Int64: int64(limit), Valid: true}
	}
	rows, err := r.pool.Query(ctx, `SELECT `+auditColumns+` FROM admin_audit_logs
		ORDER BY id DESC LIMIT $1 OFFSET $2`, limitArg, max(offset, 0))
	if err != nil {
		return nil, 0, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.AdminAuditLog, 0)
	for rows.Next() {
		var (
			e      domain.AdminAuditLog
			action string
		)
		if err := rows.Scan(&e.ID, &action, &e.ActorEmail, &e.TargetUserID, &e.TargetEmail, &e.Details, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.Action = domain.AuditAction(action)
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, &e)
	}
	return entries, total, rows.Err()
}

func insertAdmin(ctx context.Context, db DBTX, a *domain.AdminUser) error {
	_, err := db.Exec(ctx, `INSERT INTO admin_users (`+adminColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Email, a.Name, a.AddedBy, a.AddedAt)
	return err
}

func getUser(ctx context.Context, db DBTX, sql string, arg string) (*domain.User, error) {
	u, err := scanUser(db.QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u         domain.User
		lastLogin pgtype.Timestamptz
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsAdmin, &u.IsActive, &lastLogin, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.LastLogin = utils.FromTimestamptz(lastLogin)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
