package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harlowe-labs/scenthq-backend/pkg/config"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
	pkgerrors "github.com/harlowe-labs/scenthq-backend/pkg/errors"
	"github.com/harlowe-labs/scenthq-backend/pkg/security"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  org_id TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'member',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)

	return db
}

func newDirectoryService(t *testing.T) *Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Repo: NewRepository(setupUsersTestDB(t)),
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8192,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
	})
	require.NoError(t, err)
	return svc
}

func TestRegisterHashesCredentialAndNormalizesEmail(t *testing.T) {
	svc := newDirectoryService(t)

	user, err := svc.Register(context.Background(), RegisterInput{
		OrgID:     uuid.New(),
		Email:     "  Handler@ScentHQ.example  ",
		Password:  "very-secret",
		FirstName: "Dana",
		LastName:  "Ruiz",
	})
	require.NoError(t, err)
	assert.Equal(t, "handler@scenthq.example", user.Email)
	assert.Equal(t, enums.RoleMember, user.Role)

	stored, err := svc.repo.FindByEmail(context.Background(), "handler@scenthq.example")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "very-secret", stored.PasswordHash)

	ok, err := security.VerifyPassword("very-secret", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newDirectoryService(t)
	orgID := uuid.New()

	_, err := svc.Register(context.Background(), RegisterInput{
		OrgID:    orgID,
		Email:    "dup@scenthq.example",
		Password: "pw-one",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		OrgID:    orgID,
		Email:    "DUP@scenthq.example",
		Password: "pw-two",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRegisterRequiresOrgAndEmail(t *testing.T) {
	svc := newDirectoryService(t)

	_, err := svc.Register(context.Background(), RegisterInput{OrgID: uuid.New()})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Register(context.Background(), RegisterInput{Email: "no-org@scenthq.example"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateRolePromotesStoredUser(t *testing.T) {
	svc := newDirectoryService(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		OrgID:    uuid.New(),
		Email:    "payer@scenthq.example",
		Password: "pw",
	})
	require.NoError(t, err)

	stored, err := svc.repo.FindByEmail(context.Background(), "payer@scenthq.example")
	require.NoError(t, err)
	require.NotNil(t, stored)

	require.NoError(t, svc.UpdateRole(context.Background(), stored.ID, enums.RoleLawEnforcement))

	updated, err := svc.repo.FindByID(context.Background(), stored.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, enums.RoleLawEnforcement, updated.Role)
}

func TestUpdateRoleRejectsUnknownUser(t *testing.T) {
	svc := newDirectoryService(t)

	err := svc.UpdateRole(context.Background(), uuid.New(), enums.RoleOrgAdmin)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestUpdateRoleRejectsInvalidRole(t *testing.T) {
	svc := newDirectoryService(t)

	err := svc.UpdateRole(context.Background(), uuid.New(), enums.UserRole("superuser"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
