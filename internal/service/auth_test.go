package service_test

import (
	"context"
	"testing"
	"time"

	"clubfunds/internal/config"
	"clubfunds/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (*service.AuthService, pgxmock.PgxPoolIface) {
	t.Helper()
	db, mock := newMockDB(t)
	cfg := config.AuthConfig{
		JWTSecret:  "test-secret",
		JWTTTL:     time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	return service.NewAuthService(&db, cfg, discardLogger()), mock
}

func userRowWithHash(id uuid.UUID, email string, hash string) *pgxmock.Rows {
	now := time.Now().UTC()
	return pgxmock.NewRows([]string{
		"id", "name", "email", "phone", "password_hash", "group_id", "created_at", "updated_at",
	}).AddRow(id.String(), "Ada Lovelace", email, nil, hash, nil, now, now)
}

func TestSignUp_EmailAlreadyTaken(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT (.+) FROM tbl_user WHERE 1=1 AND email").
		WithArgs("ada@club.ca").
		WillReturnRows(userRowWithHash(uuid.New(), "ada@club.ca", "hash"))

	_, err := svc.SignUp(context.Background(), service.SignUpParams{
		Name:     "Ada Lovelace",
		Email:    "ada@club.ca",
		Password: "Sup3rSecret",
	})

	var conflict service.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "user", conflict.Resource)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, mock := newAuthService(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("Sup3rSecret"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM tbl_user WHERE 1=1 AND email").
		WithArgs("ada@club.ca").
		WillReturnRows(userRowWithHash(uuid.New(), "ada@club.ca", string(hash)))

	_, err = svc.Login(context.Background(), "ada@club.ca", "not-the-password")

	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// An unknown email and a wrong password must be indistinguishable to the
// caller.
func TestLogin_UnknownEmail(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT (.+) FROM tbl_user WHERE 1=1 AND email").
		WithArgs("ghost@club.ca").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "email", "phone", "password_hash", "group_id", "created_at", "updated_at",
		}))

	_, err := svc.Login(context.Background(), "ghost@club.ca", "whatever")

	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueToken_RoundTrip(t *testing.T) {
	svc, _ := newAuthService(t)
	userID := uuid.New()

	signed, err := svc.IssueToken(newUser(userID, "ada@club.ca"))
	require.NoError(t, err)

	parsed, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	subject, err := parsed.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, userID.String(), subject)
}
