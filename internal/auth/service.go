package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

const (
	minPasswordLen = 8
	tokenIssuer    = "xivix"
)

// UserStore is the persistence contract used by Service.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// Config configures session issuing.
type Config struct {
	Secret     string
	SessionTTL time.Duration
	BcryptCost int
}

// Service registers users and issues, verifies and revokes sessions.
type Service struct {
	users   UserStore
	lockout *Lockout
	redis   *redis.Client
	secret  []byte
	ttl     time.Duration
	cost    int
	logger  *logging.Logger
	now     func() time.Time
}

func NewService(users UserStore, lockout *Lockout, client *redis.Client, cfg Config, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:   users,
		lockout: lockout,
		redis:   client,
		secret:  []byte(cfg.Secret),
		ttl:     cfg.SessionTTL,
		cost:    cfg.BcryptCost,
		logger:  logger,
		now:     time.Now,
	}
}

// Register creates an owner account and signs it in.
func (s *Service) Register(ctx context.Context, email, password, name string) Result {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") || len(password) < minPasswordLen {
		return failure(MsgInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		return failure(MsgInternal)
	}
	user := &User{Email: email, PasswordHash: string(hash), Name: strings.TrimSpace(name), Role: RoleOwner}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return failure(MsgDuplicateEmail)
		}
		s.logger.Error("create user failed", "error", err)
		return failure(MsgInternal)
	}
	return s.signIn(user)
}

// Login checks the password, applying the failure lockout.
func (s *Service) Login(ctx context.Context, email, password string) Result {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return failure(MsgInvalidInput)
	}

	if s.lockout != nil {
		locked, err := s.lockout.Locked(ctx, email)
		if err != nil {
			s.logger.Warn("lockout check failed", "error", err)
		} else if locked {
			return failure(MsgAccountLocked)
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Error("load user failed", "error", err)
		return failure(MsgInternal)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return s.rejectLogin(ctx, email)
	}

	if s.lockout != nil {
		if err := s.lockout.Reset(ctx, email); err != nil {
			s.logger.Warn("lockout reset failed", "error", err)
		}
	}
	return s.signIn(user)
}

func (s *Service) rejectLogin(ctx context.Context, email string) Result {
	if s.lockout == nil {
		return failure(MsgInvalidCredentials)
	}
	locked, err := s.lockout.RecordFailure(ctx, email)
	if err != nil {
		s.logger.Warn("record login failure failed", "error", err)
		return failure(MsgInvalidCredentials)
	}
	if locked {
		s.logger.Warn("account locked after repeated failures", "email", email)
		return failure(MsgAccountLocked)
	}
	return failure(MsgInvalidCredentials)
}

func (s *Service) signIn(user *User) Result {
	token, expires, err := s.IssueToken(user)
	if err != nil {
		s.logger.Error("issue token failed", "error", err)
		return failure(MsgInternal)
	}
	return Result{Success: true, Token: token, ExpiresAt: &expires, User: user}
}

// IssueToken signs a session JWT for user.
func (s *Service) IssueToken(user *User) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("auth: session secret not configured")
	}
	now := s.now().UTC()
	expires := now.Add(s.ttl)
	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expires, nil
}

// VerifySession parses token and rejects revoked sessions.
func (s *Service) VerifySession(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if s.redis != nil && claims.ID != "" {
		n, err := s.redis.Exists(ctx, revokedKey(claims.ID)).Result()
		if err != nil {
			return nil, fmt.Errorf("auth: check revocation: %w", err)
		}
		if n > 0 {
			return nil, ErrRevokedToken
		}
	}
	return claims, nil
}

// Logout revokes token until it would have expired.
func (s *Service) Logout(ctx context.Context, token string) Result {
	claims, err := s.parse(token)
	if err != nil {
		return failure(MsgInvalidCredentials)
	}
	if s.redis != nil && claims.ID != "" && claims.ExpiresAt != nil {
		ttl := claims.ExpiresAt.Sub(s.now())
		if ttl > 0 {
			if err := s.redis.Set(ctx, revokedKey(claims.ID), "1", ttl).Err(); err != nil {
				s.logger.Error("revoke session failed", "error", err)
				return failure(MsgInternal)
			}
		}
	}
	return Result{Success: true}
}

// Me returns the user behind claims.
func (s *Service) Me(ctx context.Context, claims *Claims) (*User, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.users.GetByID(ctx, id)
}

func (s *Service) parse(token string) (*Claims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func revokedKey(jti string) string { return "auth:revoked:" + jti }
