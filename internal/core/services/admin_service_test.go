package services_test

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/sap-helpdesk/internal/core/domain"
	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
	"github.com/lorrc/sap-helpdesk/internal/core/mocks"
	"github.com/lorrc/sap-helpdesk/internal/core/services"
)

func adminUser(id, email string) *domain.User {
	return &domain.User{ID: id, Email: email, Name: email, IsAdmin: true, IsActive: true}
}

func plainUser(id, email string) *domain.User {
	return &domain.User{ID: id, Email: email, Name: email, IsActive: true}
}

func TestAdminService_CheckFirstLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("first user becomes admin", func(t *testing.T) {
		repo := mocks.NewMockRegistryRepository()
		svc := services.NewAdminService(repo, services.WithClock(clock))

		repo.On("GetUserByEmail", ctx, "alice.johnson@pwc.com").Return(nil, apperrors.ErrUserNotFound)
		repo.On("CountUsers", ctx).Return(0, nil)
		repo.On("CreateUser", ctx, mock.AnythingOfType("*domain.User"), mock.MatchedBy(func(a *domain.AdminUser) bool {
			return a != nil && a.AddedBy == domain.SystemActor && a.Email == "alice.johnson@pwc.com"
		})).Return(nil)
		repo.On("AppendAudit", ctx, mock.MatchedBy(func(e *domain.AdminAuditLog) bool {
			return e.Action == domain.AuditFirstAdmin
		})).Return(nil)

		result, err := svc.CheckFirstLogin(ctx, "Alice.Johnson@pwc.com", "Alice Johnson")

		require.NoError(t, err)
		assert.True(t, result.IsFirstUser)
		assert.True(t, result.IsAdmin)
		assert.Equal(t, "alice.johnson@pwc.com", result.User.Email)
		assert.Equal(t, "Alice Johnson", result.User.Name)
		repo.AssertExpectations(t)
	})

	t.Run("later users are not admins", func(t *testing.T) {
		repo := mocks.NewMockRegistryRepository()
		svc := services.NewAdminService(repo, services.WithClock(clock))

		repo.On("GetUserByEmail", ctx, "bob.smith@pwc.com").Return(nil, apperrors.ErrUserNotFound)
		repo.On("CountUsers", ctx).Return(1, nil)
		repo.On("CreateUser", ctx, mock.AnythingOfType("*domain.User"), (*domain.AdminUser)(nil)).Return(nil)

		result, err := svc.CheckFirstLogin(ctx, "bob.smith@pwc.com", "")

		require.NoError(t, err)
		assert.False(t, result.IsFirstUser)
		assert.False(t, result.IsAdmin)
		assert.Equal(t, "bob.smith", result.User.Name)
		repo.AssertNotCalled(t, "AppendAudit", mock.Anything, mock.Anything)
	})

	t.Run("returning user updates last login", func(t *testing.T) {
		repo := mocks.NewMockRegistryRepository()
		svc := services.NewAdminService(repo, services.WithClock(clock))

		repo.On("GetUserByEmail", ctx, "alice.johnson@pwc.com").Return(adminUser("user-1", "alice.johnson@pwc.com"), nil)
		repo.On("UpdateUser", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.LastLogin.Equal(fixedNow)
		})).Return(nil)

		result, err := svc.CheckFirstLogin(ctx, "alice.johnson@pwc.com", "")

		require.NoError(t, err)
		assert.False(t, result.IsFirstUser)
		assert.True(t, result.IsAdmin)
		repo.AssertNotCalled(t, "CountUsers", mock.Anything)
	})

	t.Run("deactivated user is refused", func(t *testing.T) {
		repo := mocks.NewMockRegistryRepository()
		svc := services.NewAdminService(repo)

		inactive := plainUser("user-2", "bob.smith@pwc.com")
		inactive.IsActive = false
		repo.On("GetUserByEmail", ctx, "bob.smith@pwc.com").Return(inactive, nil)

		_, err := svc.CheckFirstLogin(ctx, "bob.smith@pwc.com", "")
		assert.ErrorIs(t, err, apperrors.ErrUserInactive)
	})

	t.Run("invalid email", func(t *testing.T) {
		svc := services.NewAdminService(mocks.NewMockRegistryRepository())

		_, err := svc.CheckFirstLogin(ctx, "not-an-email", "")
		assert.ErrorIs(t, err, apperrors.ErrEmailInvalid)
	})
}

func TestAdminService_AddAdmin(t *testing.T) {
	ctx := context.Background()
	const actor = "alice.johnson@pwc.com"

	t.Run("never logged in email is not found", func(t *testing.T) {
		repo := mocks.NewMockRegistryRepository()
		svc := services.NewAdminService(repo)

		repo.On("GetUserByEmail", ctx, actor).Return(adminUser("user-1", actor), nil)
		repo.On("GetUserByEmail", ctx, "new.person@pwc.com").Return(nil, apperrors.ErrUserNotFound)

		admin, err := svc.AddAdmin(ctx, "new.person@pwc.com", actor)

		assert.Nil(t, admin)
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		repo.AssertNotCalled(t, "GrantAdmin", mock.Anything, mock.Anything)
	})

	t.Run("already admin", func(t *testing.T) {
		repo := mocks.NewMockRegistryRepository()
		svc := services.NewAdminService(repo)

		repo.On("GetUserByEmail", ctx, actor).Return(adminUser("user-1", actor), nil)
		repo.On("GetUserByEmail", ctx, "dana.white@pwc.com").Return(adminUser("user-4", "dana.white@pwc.com"), nil)

		_, err := svc.AddAdmin(ctx, "dana.white@pwc.com", actor)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyAdmin)
	})

	t.Run("success", func(t *testing.T) {
		repo := mocks.NewMockRegistryRepository()
		svc := services.NewAdminService(repo, services.WithClock(clock))

		repo.On("GetUserByEmail", ctx, actor).Return(adminUser("user-1", actor), nil)
		repo.On("GetUserByEmail", ctx, "bob.smith@pwc.com").Return(plainUser("user-2", "bob.smith@pwc.com"), nil)
		repo.On("GrantAdmin", ctx, mock.AnythingOfType("*domain.AdminUser")).Return(nil)
		repo.On("AppendAudit", ctx, mock.AnythingOfType("*domain.AdminAuditLog")).Return(nil)

		admin, err := svc.AddAdmin(ctx, "Bob.Smith@pwc.com", actor)

		require.NoError(t, err)
		assert.Equal(t, "user-2", admin.ID)
		assert.Equal(t, actor, admin.AddedBy)
		assert.True(t, admin.AddedAt.Equal(fixedNow))
		repo.AssertExpectations(t)
	})

	t.Run("non admin actor is forbidden", func(t *testing.T) {
		repo := mocks.NewMockRegistryRepository()
		svc := services.NewAdminService(repo)

		repo.On("GetUserByEmail", ctx, "bob.smith@pwc.com").Return(plainUser("user-2", "bob.smith@pwc.com"), nil)

		_, err := svc.AddAdmin(ctx, "charlie.brown@pwc.com", "bob.smith@pwc.com")
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestAdminService_RemoveAdmin(t *testing.T) {
	ctx := context.Background()
	const actor = "alice.johnson@pwc.com"

	admins := func(ids ...string) []*domain.AdminUser {
		out := make([]*domain.AdminUser, 0, len(ids))
		for _, id := range ids {
			out = append(out, &domain.AdminUser{ID: id, Email: id + "@pwc.com"})
		}
		return out
	}

	tests := []struct {
		name     string
		admins   []*domain.AdminUser
		inactive []string
		target   string
		wantErr  error
	}{
		{"last admin", admins("user-1"), nil, "user-1", apperrors.ErrLastAdmin},
		{"unknown admin", admins("user-1", "user-2"), nil, "user-9", apperrors.ErrAdminNotFound},
		{"self removal with one other admin", admins("user-1", "user-2"), nil, "user-1", apperrors.ErrSelfRemovalLocked},
		{"self removal with two other admins", admins("user-1", "user-2", "user-3"), nil, "user-1", nil},
		{"remove another admin", admins("user-1", "user-2"), nil, "user-2", nil},
		{"only active admin removing self", admins("user-1", "user-2", "user-3"), []string{"user-2", "user-3"}, "user-1", apperrors.ErrLastAdmin},
		{"self removal with one other active admin", admins("user-1", "user-2", "user-3"), []string{"user-3"}, "user-1", apperrors.ErrSelfRemovalLocked},
		{"remove an inactive admin", admins("user-1", "user-2"), []string{"user-2"}, "user-2", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockRegistryRepository()
			svc := services.NewAdminService(repo)

			users := make([]*domain.User, 0, len(tt.admins))
			for _, a := range tt.admins {
				u := adminUser(a.ID, a.Email)
				u.IsActive = !slices.Contains(tt.inactive, a.ID)
				users = append(users, u)
			}

			repo.On("GetUserByEmail", ctx, actor).Return(adminUser("user-1", actor), nil)
			repo.On("ListUsers", ctx).Return(users, nil).Maybe()
			repo.On("ListAdmins", ctx).Return(tt.admins, nil)
			if tt.wantErr == nil {
				repo.On("RevokeAdmin", ctx, tt.target).Return(nil)
				repo.On("AppendAudit", ctx, mock.MatchedBy(func(e *domain.AdminAuditLog) bool {
					return e.Action == domain.AuditAdminRemoved && e.TargetUserID == tt.target
				})).Return(nil)
			}

			err := svc.RemoveAdmin(ctx, tt.target, actor)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "RevokeAdmin", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestAdminService_DeactivateUser(t *testing.T) {
	ctx := context.Background()
	const actor = "alice.johnson@pwc.com"

	t.Run("cannot deactivate self", func(t *testing.T) {
		repo := mocks.NewMockRegistryRepository()
		svc := services.NewAdminService(repo)

		repo.On("GetUserByEmail", ctx, actor).Return(adminUser("user-1", actor), nil)

		err := svc.DeactivateUser(ctx, "user-1", actor)
		assert.ErrorIs(t, err, apperrors.ErrCannotDeactivateSelf)
	})

	t.Run("deactivates and audits", func(t *testing.T) {
		repo := mocks.NewMockRegistryRepository()
		svc := services.NewAdminService(repo)

		repo.On("GetUserByEmail", ctx, actor).Return(adminUser("user-1", actor), nil)
		repo.On("GetUserByID", ctx, "user-2").Return(plainUser("user-2", "bob.smith@pwc.com"), nil)
		repo.On("UpdateUser", ctx, mock.MatchedBy(func(u *domain.User) bool { return !u.IsActive })).Return(nil)
		repo.On("AppendAudit", ctx, mock.MatchedBy(func(e *domain.AdminAuditLog) bool {
			return e.Action == domain.AuditUserDeactivated && e.ActorEmail == actor
		})).Return(nil)

		require.NoError(t, svc.DeactivateUser(ctx, "user-2", actor))
		repo.AssertExpectations(t)
	})

	t.Run("reactivate inactive user", func(t *testing.T) {
		repo := mocks.NewMockRegistryRepository()
		svc := services.NewAdminService(repo)

		inactive := plainUser("user-2", "bob.smith@pwc.com")
		inactive.IsActive = false
		repo.On("GetUserByEmail", ctx, actor).Return(adminUser("user-1", actor), nil)
		repo.On("GetUserByID", ctx, "user-2").Return(inactive, nil)
		repo.On("UpdateUser", ctx, mock.MatchedBy(func(u *domain.User) bool { return u.IsActive })).Return(nil)
		repo.On("AppendAudit", ctx, mock.AnythingOfType("*domain.AdminAuditLog")).Return(nil)

		require.NoError(t, svc.ReactivateUser(ctx, "user-2", actor))
		repo.AssertExpectations(t)
	})
}

func TestAdminService_PanelData(t *testing.T) {
	ctx := context.Background()
	const actor = "alice.johnson@pwc.com"

	repo := mocks.NewMockRegistryRepository()
	svc := services.NewAdminService(repo)

	inactive := plainUser("user-3", "charlie.brown@pwc.com")
	inactive.IsActive = false
	repo.On("GetUserByEmail", ctx, actor).Return(adminUser("user-1", actor), nil)
	repo.On("ListUsers", ctx).Return([]*domain.User{
		adminUser("user-1", actor),
		plainUser("user-2", "bob.smith@pwc.com"),
		inactive,
	}, nil)
	repo.On("ListAdmins", ctx).Return([]*domain.AdminUser{{ID: "user-1", Email: actor}}, nil)

	panel, err := svc.PanelData(ctx, actor)

	require.NoError(t, err)
	assert.Equal(t, 3, panel.TotalUsers)
	assert.Equal(t, 2, panel.ActiveUsers)
	assert.Equal(t, 1, panel.AdminCount)
}

func TestAdminService_IsAdmin(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewMockRegistryRepository()
	svc := services.NewAdminService(repo)

	repo.On("GetUserByEmail", ctx, "alice.johnson@pwc.com").Return(adminUser("user-1", "alice.johnson@pwc.com"), nil)
	repo.On("GetUserByEmail", ctx, "stranger@pwc.com").Return(nil, apperrors.ErrUserNotFound)

	ok, err := svc.IsAdmin(ctx, "Alice.Johnson@pwc.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsAdmin(ctx, "stranger@pwc.com")
	require.NoError(t, err)
	assert.False(t, ok)
}
