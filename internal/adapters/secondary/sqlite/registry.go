package sqlite

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

// Registry persists users, admins and the admin audit trail.
type Registry struct {
	db *gorm.DB
}

var _ ports.RegistryRepository = (*Registry)(nil)

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

func (r *Registry) ListUsers(ctx context.Context) ([]*domain.User, error) {
	var rows []userRecord
	if err := r.db.WithContext(ctx).Order("created_at asc, id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	users := make([]*domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

func (r *Registry) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

func (r *Registry) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (r *Registry) CountUsers(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&userRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return int(n), nil
}

func (r *Registry) CreateUser(ctx context.Context, u *domain.User, admin *domain.AdminUser) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := toUserRecord(u)
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if admin != nil {
			a := toAdminRecord(admin)
			return tx.Create(&a).Error
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("user %s: %w", u.Email, apperrors.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Registry) UpdateUser(ctx context.Context, u *domain.User) error {
	rec := toUserRecord(u)
	res := r.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", u.ID).
		Select("email", "name", "is_admin", "is_active", "last_login").
		Updates(&rec)
	if res.Error != nil {
		return fmt.Errorf("update user %s: %w", u.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *Registry) ListAdmins(ctx context.Context) ([]*domain.AdminUser, error) {
	var rows []adminRecord
	if err := r.db.WithContext(ctx).Order("added_at asc, id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query admins: %w", err)
	}
	admins := make([]*domain.AdminUser, 0, len(rows))
	for _, row := range rows {
		admins = append(admins, row.toDomain())
	}
	return admins, nil
}

func (r *Registry) GetAdmin(ctx context.Context, id string) (*domain.AdminUser, error) {
	var row adminRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin %s: %w", id, err)
	}
	return row.toDomain(), nil
}

func (r *Registry) GrantAdmin(ctx context.Context, admin *domain.AdminUser) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user userRecord
		err := tx.Where("id = ?", admin.ID).Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if user.IsAdmin {
			return apperrors.ErrAlreadyAdmin
		}
		if err := tx.Model(&userRecord{}).Where("id = ?", admin.ID).Update("is_admin", true).Error; err != nil {
			return err
		}
		rec := toAdminRecord(admin)
		return tx.Create(&rec).Error
	})
}

func (r *Registry) RevokeAdmin(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&adminRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrAdminNotFound
		}
		return tx.Model(&userRecord{}).Where("id = ?", id).Update("is_admin", false).Error
	})
}

func (r *Registry) AppendAudit(ctx context.Context, entry *domain.AdminAuditLog) error {
	rec := auditRecord{
		Action:       string(entry.Action),
		ActorEmail:   entry.ActorEmail,
		TargetUserID: entry.TargetUserID,
		TargetEmail:  entry.TargetEmail,
		Details:      entry.Details,
		CreatedAt:    entry.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	entry.ID = rec.ID
	return nil
}

// ListAudit returns entries newest first along with the total count.
func (r *Registry) ListAudit(ctx context.Context, limit, offset int) ([]*domain.AdminAuditLog, int, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&auditRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count audit: %w", err)
	}

	q := db.Order("id desc")
	switch {
	case limit > 0:
		q = q.Limit(limit)
	case offset > 0:
		// sqlite rejects OFFSET without LIMIT
		q = q.Limit(math.MaxInt32)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var rows []auditRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("query audit: %w", err)
	}

	entries := make([]*domain.AdminAuditLog, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toDomain())
	}
	return entries, int(total), nil
}

func (r *Registry) getUser(ctx context.Context, cond string, arg string) (*domain.User, error) {
	var row userRecord
	err := r.db.WithContext(ctx).Where(cond, arg).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.toDomain(), nil
}
