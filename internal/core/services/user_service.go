package services

import (
	"context"
	"strings"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	"github.com/lorrc/sap-helpdesk/internal/core/ports"
)

// UserService provides the read-only user directory used by assignee
// pickers and the admin screen.
type UserService struct {
	repo ports.RegistryRepository
}

var _ ports.UserService = (*UserService)(nil)

// NewUserService creates a new UserService.
func NewUserService(repo ports.RegistryRepository) *UserService {
	return &UserService{repo: repo}
}

// Directory lists every known user, active or not.
func (s *UserService) Directory(ctx context.Context) ([]*domain.User, error) {
	return s.repo.ListUsers(ctx)
}

// Search matches q case-insensitively against name and email. An empty
// query returns the whole directory.
func (s *UserService) Search(ctx context.Context, q string) ([]*domain.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return users, nil
	}

	matches := make([]*domain.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Email), q) {
			matches = append(matches, u)
		}
	}
	return matches, nil
}

// Assignable lists active users.
func (s *UserService) Assignable(ctx context.Context) ([]*domain.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]*domain.User, 0, len(users))
	for _, u := range users {
		if u.IsActive {
			active = append(active, u)
		}
	}
	return active, nil
}
