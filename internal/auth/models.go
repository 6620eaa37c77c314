package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles.
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

// User-facing failure messages carried in Result.Error.
const (
	MsgInvalidCredentials = "이메일 또는 비밀번호가 올바르지 않습니다."
	MsgAccountLocked      = "로그인 시도가 너무 많습니다. 잠시 후 다시 시도해 주세요."
	MsgDuplicateEmail     = "이미 가입된 이메일입니다."
	MsgInvalidInput       = "이메일과 8자 이상의 비밀번호를 입력해 주세요."
	MsgInternal           = "일시적인 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
)

var (
	ErrNotFound       = errors.New("auth: user not found")
	ErrDuplicateEmail = errors.New("auth: email already registered")
	ErrInvalidToken   = errors.New("auth: invalid session token")
	ErrRevokedToken   = errors.New("auth: session revoked")
)

// User is a store owner or platform admin account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Result is the explicit outcome of an auth operation.
type Result struct {
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitempty"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	User      *User      `json:"user,omitempty"`
}

func failure(msg string) Result {
	return Result{Success: false, Error: msg}
}

// Claims are carried in session JWTs.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the session belongs to a platform admin.
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
