package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

const defaultAuditLimit = 50

// AdminService maintains the user registry and the admin set.
type AdminService struct {
	repo   ports.RegistryRepository
	now    func() time.Time
	logger *slog.Logger

	// mu serialises check-and-mutate sequences so two admins racing on the
	// last admin seat cannot both succeed.
	mu sync.Mutex
}

var _ ports.AdminService = (*AdminService)(nil)

func NewAdminService(repo ports.RegistryRepository, opts ...Option) *AdminService {
	o := applyOptions(opts)
	return &AdminService{
		repo:   repo,
		now:    o.Now,
		logger: o.Logger.With("component", "admin_service"),
	}
}

// CheckFirstLogin upserts the caller into the registry. The very first user
// becomes an admin.
func (s *AdminService) CheckFirstLogin(ctx context.Context, email, name string) (*domain.LoginResult, error) {
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	user, err := s.repo.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	switch {
	case err == nil:
		if !user.IsActive {
			return nil, apperrors.ErrUserInactive
		}
		user.LastLogin = now.UTC()
		if n := strings.TrimSpace(name); n != "" {
			user.Name = n
		}
		if err := s.repo.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
		return &domain.LoginResult{User: user, IsAdmin: user.IsAdmin}, nil
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return nil, err
	}

	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	user, err = domain.NewUser(email, name, now)
	if err != nil {
		return nil, err
	}

	var admin *domain.AdminUser
	if count == 0 {
		user.IsAdmin = true
		admin = user.AdminRecord(domain.SystemActor, now)
	}
	if err := s.repo.CreateUser(ctx, user, admin); err != nil {
		return nil, err
	}

	if admin != nil {
		s.logger.Info("first user bootstrapped as admin", "user_id", user.ID, "email", user.Email)
		s.audit(ctx, domain.AuditFirstAdmin, domain.SystemActor, user, "first user to sign in")
	} else {
		s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	}

	return &domain.LoginResult{User: user, IsFirstUser: count == 0, IsAdmin: user.IsAdmin}, nil
}

func (s *AdminService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.GetUserByEmail(ctx, domain.NormalizeEmail(email))
}

// IsAdmin reports whether email belongs to an active admin. Unknown
// addresses are simply not admins.
func (s *AdminService) IsAdmin(ctx context.Context, email string) (bool, error) {
	user, err := s.repo.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin && user.IsActive, nil
}

// AddAdmin promotes an existing user. Only users who have logged in at
// least once can be promoted.
func (s *AdminService) AddAdmin(ctx context.Context, email, actorEmail string) (*domain.AdminUser, error) {
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	actor, err := s.requireAdmin(ctx, actorEmail)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user.IsAdmin {
		return nil, apperrors.ErrAlreadyAdmin
	}

	admin := user.AdminRecord(actor.Email, s.now())
	if err := s.repo.GrantAdmin(ctx, admin); err != nil {
		return nil, err
	}

	s.logger.Info("admin added", "user_id", user.ID, "email", user.Email, "actor", actor.Email)
	s.audit(ctx, domain.AuditAdminAdded, actor.Email, user, "")
	return admin, nil
}

// RemoveAdmin demotes an admin. At least one active admin always remains,
// and an admin may only demote themselves while two other active admins
// remain. Deactivated admins cannot sign in, so they never count.
func (s *AdminService) RemoveAdmin(ctx context.Context, id, actorEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, err := s.requireAdmin(ctx, actorEmail)
	if err != nil {
		return err
	}

	admins, err := s.repo.ListAdmins(ctx)
	if err != nil {
		return err
	}

	var target *domain.AdminUser
	for _, a := range admins {
		if a.ID == id {
			target = a
			break
		}
	}
	if target == nil {
		return apperrors.ErrAdminNotFound
	}
	if len(admins) <= 1 {
		return apperrors.ErrLastAdmin
	}
	remaining, err := s.activeAdminsExcept(ctx, target.ID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		return apperrors.ErrLastAdmin
	}
	if target.ID == actor.ID && remaining < 2 {
		return apperrors.ErrSelfRemovalLocked
	}

	if err := s.repo.RevokeAdmin(ctx, id); err != nil {
		return err
	}

	s.logger.Info("admin removed", "user_id", id, "email", target.Email, "actor", actor.Email)
	s.audit(ctx, domain.AuditAdminRemoved, actor.Email, &domain.User{ID: target.ID, Email: target.Email}, "")
	return nil
}

// DeactivateUser blocks a user from signing in. Deactivating an already
// inactive user is a no-op.
func (s *AdminService) DeactivateUser(ctx context.Context, id, actorEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, err := s.requireAdmin(ctx, actorEmail)
	if err != nil {
		return err
	}
	if actor.ID == id {
		return apperrors.ErrCannotDeactivateSelf
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return nil
	}

	if user.IsAdmin {
		remaining, err := s.activeAdminsExcept(ctx, user.ID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return apperrors.ErrLastAdmin
		}
	}

	user.IsActive = false
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return err
	}

	s.logger.Info("user deactivated", "user_id", user.ID, "actor", actor.Email)
	s.audit(ctx, domain.AuditUserDeactivated, actor.Email, user, "")
	return nil
}

func (s *AdminService) ReactivateUser(ctx context.Context, id, actorEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, err := s.requireAdmin(ctx, actorEmail)
	if err != nil {
		return err
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsActive {
		return nil
	}

	user.IsActive = true
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return err
	}

	s.logger.Info("user reactivated", "user_id", user.ID, "actor", actor.Email)
	s.audit(ctx, domain.AuditUserReactivated, actor.Email, user, "")
	return nil
}

func (s *AdminService) ListUsers(ctx context.Context, actorEmail string) ([]*domain.User, error) {
	if _, err := s.requireAdmin(ctx, actorEmail); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *AdminService) ListAdmins(ctx context.Context, actorEmail string) ([]*domain.AdminUser, error) {
	if _, err := s.requireAdmin(ctx, actorEmail); err != nil {
		return nil, err
	}
	return s.repo.ListAdmins(ctx)
}

// PanelData returns users, admins and headline counts in one call.
func (s *AdminService) PanelData(ctx context.Context, actorEmail string) (*domain.AdminPanel, error) {
	if _, err := s.requireAdmin(ctx, actorEmail); err != nil {
		return nil, err
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	admins, err := s.repo.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}

	panel := &domain.AdminPanel{
		Users:      users,
		Admins:     admins,
		TotalUsers: len(users),
		AdminCount: len(admins),
	}
	for _, u := range users {
		if u.IsActive {
			panel.ActiveUsers++
		}
	}
	return panel, nil
}

func (s *AdminService) AuditLogs(ctx context.Context, actorEmail string, limit, offset int) ([]*domain.AdminAuditLog, int, error) {
	if _, err := s.requireAdmin(ctx, actorEmail); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListAudit(ctx, limit, offset)
}

// requireAdmin resolves the actor and checks they are an active admin.
func (s *AdminService) requireAdmin(ctx context.Context, actorEmail string) (*domain.User, error) {
	if strings.TrimSpace(actorEmail) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	actor, err := s.repo.GetUserByEmail(ctx, domain.NormalizeEmail(actorEmail))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrForbidden
		}
		return nil, err
	}
	if !actor.IsAdmin || !actor.IsActive {
		return nil, apperrors.ErrForbidden
	}
	return actor, nil
}

func (s *AdminService) activeAdminsExcept(ctx context.Context, id string) (int, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, u := range users {
		if u.IsAdmin && u.IsActive && u.ID != id {
			n++
		}
	}
	return n, nil
}

// audit records a registry change. The change itself has already been
// stored, so a failed write is logged rather than returned.
func (s *AdminService) audit(ctx context.Context, action domain.AuditAction, actor string, target *domain.User, details string) {
	entry := &domain.AdminAuditLog{
		Action:       action,
		ActorEmail:   actor,
		TargetUserID: target.ID,
		TargetEmail:  target.Email,
		Details:      details,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.AppendAudit(ctx, entry); err != nil {
		s.logger.Error("failed to write admin audit log", "action", action, "target", target.ID, "error", fmt.Errorf("append audit: %w", err))
	}
}
