package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

// Registry is the in-memory user registry. The user's admin flag and the
// admin record always change under the same lock.
type Registry struct {
	mu     sync.RWMutex
	users  []*domain.User
	admins []*domain.AdminUser
	audit  []*domain.AdminAuditLog

	seedUsers  []*domain.User
	seedAdmins []*domain.AdminUser
}

var _ ports.RegistryRepository = (*Registry)(nil)

func NewRegistry(users []*domain.User, admins []*domain.AdminUser) *Registry {
	r := &Registry{
		seedUsers:  cloneUsers(users),
		seedAdmins: cloneAdmins(admins),
	}
	r.Reset()
	return r
}

// Reset restores the seed and clears the audit trail.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = cloneUsers(r.seedUsers)
	r.admins = cloneAdmins(r.seedAdmins)
	r.audit = nil
}

func (r *Registry) ListUsers(ctx context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneUsers(r.users), nil
}

func (r *Registry) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u := r.userByID(id); u != nil {
		return u.Clone(), nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *Registry) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u := r.userByEmail(email); u != nil {
		return u.Clone(), nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *Registry) CountUsers(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}

func (r *Registry) CreateUser(ctx context.Context, u *domain.User, admin *domain.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userByEmail(u.Email) != nil || r.userByID(u.ID) != nil {
		return fmt.Errorf("user %s: %w", u.Email, apperrors.ErrConflict)
	}
	r.users = append(r.users, u.Clone())
	if admin != nil {
		r.admins = append(r.admins, admin.Clone())
	}
	return nil
}

func (r *Registry) UpdateUser(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.users {
		if existing.ID == u.ID {
			r.users[i] = u.Clone()
			return nil
		}
	}
	return apperrors.ErrUserNotFound
}

func (r *Registry) ListAdmins(ctx context.Context) ([]*domain.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAdmins(r.admins), nil
}

func (r *Registry) GetAdmin(ctx context.Context, id string) (*domain.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.admins {
		if a.ID == id {
			return a.Clone(), nil
		}
	}
	return nil, apperrors.ErrAdminNotFound
}

func (r *Registry) GrantAdmin(ctx context.Context, admin *domain.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.userByID(admin.ID)
	if u == nil {
		return apperrors.ErrUserNotFound
	}
	if u.IsAdmin {
		return apperrors.ErrAlreadyAdmin
	}
	u.IsAdmin = true
	r.admins = append(r.admins, admin.Clone())
	return nil
}

func (r *Registry) RevokeAdmin(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.admins, func(a *domain.AdminUser) bool { return a.ID == id })
	if i < 0 {
		return apperrors.ErrAdminNotFound
	}
	r.admins = slices.Delete(r.admins, i, i+1)
	if u := r.userByID(id); u != nil {
		u.IsAdmin = false
	}
	return nil
}

func (r *Registry) AppendAudit(ctx context.Context, entry *domain.AdminAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := *entry
	e.ID = int64(len(r.audit) + 1)
	r.audit = append(r.audit, &e)
	entry.ID = e.ID
	return nil
}

// ListAudit returns entries newest first along with the total count.
func (r *Registry) ListAudit(ctx context.Context, limit, offset int) ([]*domain.AdminAuditLog, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.audit)
	if limit <= 0 {
		limit = total
	}
	out := make([]*domain.AdminAuditLog, 0, limit)
	for i := total - 1 - offset; i >= 0 && len(out) < limit; i-- {
		e := *r.audit[i]
		out = append(out, &e)
	}
	return out, total, nil
}

func (r *Registry) userByID(id string) *domain.User {
	for _, u := range r.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (r *Registry) userByEmail(email string) *domain.User {
	email = domain.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func cloneUsers(in []*domain.User) []*domain.User {
	out := make([]*domain.User, 0, len(in))
	for _, u := range in {
		out = append(out, u.Clone())
	}
	return out
}

func cloneAdmins(in []*domain.AdminUser) []*domain.AdminUser {
	out := make([]*domain.AdminUser, 0, len(in))
	for _, a := range in {
		out = append(out, a.Clone())
	}
	return out
}
