package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/academico-sys/siu-api/internal/models"
	appErrors "github.com/academico-sys/siu-api/pkg/errors"
)

type stubAuthUserRepo struct {
	user          *models.User
	storedRefresh *models.RefreshToken
	created       []*models.RefreshToken
	revokedAll    []string
	revokedTokens []string
	auditLogs     []*models.AuditLog
}

func (m *stubAuthUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *stubAuthUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *stubAuthUserRepo) UpdateLastLogin(context.Context, string, time.Time) error { return nil }

func (m *stubAuthUserRepo) UpdatePassword(context.Context, string, string, time.Time) error {
	return nil
}

func (m *stubAuthUserRepo) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *stubAuthUserRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	m.created = append(m.created, token)
	return nil
}

func (m *stubAuthUserRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if m.storedRefresh == nil || m.storedRefresh.Token != token {
		return nil, sql.ErrNoRows
	}
	return m.storedRefresh, nil
}

func (m *stubAuthUserRepo) RevokeRefreshToken(_ context.Context, id string, _ time.Time) error {
	m.revokedTokens = append(m.revokedTokens, id)
	return nil
}

func (m *stubAuthUserRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "siu-api",
		Audience:           []string{"siu-clients"},
	}
}

func newAuthRepo(t *testing.T, role models.UserRole) *stubAuthUserRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secreto123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &stubAuthUserRepo{user: &models.User{
		ID:           "usr-1",
		Email:        "jperez@example.edu",
		PasswordHash: string(hash),
		FullName:     "Juan Perez",
		Role:         role,
		Active:       true,
	}}
}

func TestLoginIssuesTokensAndAuditsRole(t *testing.T) {
	repo := newAuthRepo(t, models.RoleStudent)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "jperez@example.edu",
		Password: "secreto123",
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleStudent, resp.User.Role)
	require.Len(t, repo.created, 1)

	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)
	assert.Contains(t, string(repo.auditLogs[0].NewValues), `"role":"ESTUDIANTE"`)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "siu-api", claims.Issuer)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := newAuthRepo(t, models.RoleStudent)
	repo.user.Active = false
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "jperez@example.edu",
		Password: "secreto123",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

// A token signed with the shared secret by another campus system must not be
// accepted here: issuer and audience are part of validation.
func TestValidateTokenRejectsForeignIssuer(t *testing.T) {
	repo := newAuthRepo(t, models.RoleTeacher)

	foreignCfg := testAuthConfig()
	foreignCfg.Issuer = "guarani-legacy"
	foreign := NewAuthService(repo, nil, nil, foreignCfg)

	resp, err := foreign.Login(context.Background(), models.LoginRequest{
		Email:    "jperez@example.edu",
		Password: "secreto123",
	})
	require.NoError(t, err)

	svc := NewAuthService(repo, nil, nil, testAuthConfig())
	_, err = svc.ValidateToken(resp.AccessToken)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsForeignAudience(t *testing.T) {
	repo := newAuthRepo(t, models.RoleAdmin)

	foreignCfg := testAuthConfig()
	foreignCfg.Audience = []string{"other-clients"}
	foreign := NewAuthService(repo, nil, nil, foreignCfg)

	resp, err := foreign.Login(context.Background(), models.LoginRequest{
		Email:    "jperez@example.edu",
		Password: "secreto123",
	})
	require.NoError(t, err)

	svc := NewAuthService(repo, nil, nil, testAuthConfig())
	_, err = svc.ValidateToken(resp.AccessToken)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
