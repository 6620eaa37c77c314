package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var userColumns = []string{"id", "email", "password_hash", "name", "role", "created_at", "updated_at"}

type fixture struct {
	mock    pgxmock.PgxPoolIface
	mr      *miniredis.Miniredis
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := NewService(NewRepository(mock), NewLockout(client, 3, 15*time.Minute), client,
		Config{Secret: "test-secret", SessionTTL: time.Hour, BcryptCost: bcrypt.MinCost}, nil)
	return &fixture{mock: mock, mr: mr, service: svc}
}

func (f *fixture) expectUser(t *testing.T, email, password string) uuid.UUID {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	id := uuid.New()
	now := time.Now().UTC()
	f.mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs(email).
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(id, email, string(hash), "사장님", RoleOwner, now, now))
	return id
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "owner@example.com", pgxmock.AnyArg(), "김사장", RoleOwner, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res := f.service.Register(context.Background(), " Owner@Example.com ", "password123", "김사장")

	require.True(t, res.Success, res.Error)
	assert.NotEmpty(t, res.Token)
	require.NotNil(t, res.User)
	assert.Equal(t, "owner@example.com", res.User.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(res.User.PasswordHash), []byte("password123")))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectExec("INSERT INTO users").WithArgs(anyArgs(7)...).WillReturnError(&pgconn.PgError{Code: "23505"})

	res := f.service.Register(context.Background(), "owner@example.com", "password123", "")

	assert.Equal(t, Result{Success: false, Error: MsgDuplicateEmail}, res)
}

func TestRegister_InvalidInput(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, MsgInvalidInput, f.service.Register(context.Background(), "no-at-sign", "password123", "").Error)
	assert.Equal(t, MsgInvalidInput, f.service.Register(context.Background(), "a@b.kr", "short", "").Error)
}

func TestLogin_SuccessAndSessionVerify(t *testing.T) {
	f := newFixture(t)
	id := f.expectUser(t, "owner@example.com", "password123")

	res := f.service.Login(context.Background(), "owner@example.com", "password123")
	require.True(t, res.Success, res.Error)

	claims, err := f.service.VerifySession(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.Subject)
	assert.Equal(t, RoleOwner, claims.Role)
	assert.False(t, claims.IsAdmin())
}

func TestLogin_BadPassword(t *testing.T) {
	f := newFixture(t)
	f.expectUser(t, "owner@example.com", "password123")

	res := f.service.Login(context.Background(), "owner@example.com", "wrong-password")

	assert.Equal(t, Result{Success: false, Error: MsgInvalidCredentials}, res)
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		f.expectUser(t, "owner@example.com", "password123")
		assert.Equal(t, MsgInvalidCredentials, f.service.Login(ctx, "owner@example.com", "nope").Error)
	}
	f.expectUser(t, "owner@example.com", "password123")
	assert.Equal(t, MsgAccountLocked, f.service.Login(ctx, "owner@example.com", "nope").Error)

	// Locked accounts are rejected before the password is checked.
	res := f.service.Login(ctx, "owner@example.com", "password123")
	assert.Equal(t, Result{Success: false, Error: MsgAccountLocked}, res)
	assert.NoError(t, f.mock.ExpectationsWereMet())

	f.mr.FastForward(16 * time.Minute)
	f.expectUser(t, "owner@example.com", "password123")
	assert.True(t, f.service.Login(ctx, "owner@example.com", "password123").Success)
}

func TestLogin_UnknownEmailCountsAsFailure(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("ghost@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns))

	res := f.service.Login(context.Background(), "ghost@example.com", "password123")

	assert.Equal(t, MsgInvalidCredentials, res.Error)
	assert.Equal(t, "1", mustGet(t, f.mr, "auth:failures:ghost@example.com"))
}

func TestLogout_RevokesSession(t *testing.T) {
	f := newFixture(t)
	token, _, err := f.service.IssueToken(&User{ID: uuid.New(), Email: "a@b.kr", Role: RoleAdmin})
	require.NoError(t, err)

	_, err = f.service.VerifySession(context.Background(), token)
	require.NoError(t, err)

	require.True(t, f.service.Logout(context.Background(), token).Success)

	_, err = f.service.VerifySession(context.Background(), token)
	assert.ErrorIs(t, err, ErrRevokedToken)
	assert.False(t, f.service.Logout(context.Background(), "garbage").Success)
}

func TestVerifySession_Expired(t *testing.T) {
	f := newFixture(t)
	f.service.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := f.service.IssueToken(&User{ID: uuid.New(), Email: "a@b.kr"})
	require.NoError(t, err)
	f.service.now = time.Now

	_, err = f.service.VerifySession(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

// anyArgs matches n bound parameters of any value.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}
