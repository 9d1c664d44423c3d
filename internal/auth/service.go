package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ONUR213123232/PaketHane/internal/audit"
	"github.com/ONUR213123232/PaketHane/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour

	maxLoginAttempts = 5
	lockDuration     = 15 * time.Minute
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrAccountInactive    = errors.New("account inactive")
)

type Service struct {
	secret []byte
	db     db.Querier
	audit  *audit.Service
}

type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func NewService(secret string, q db.Querier, auditSvc *audit.Service) *Service {
	return &Service{
		secret: []byte(secret),
		db:     q,
		audit:  auditSvc,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, TokenResponse, error) {
	if req.Email == "" || req.Name == "" || req.Password == "" {
		return User{}, TokenResponse{}, errors.New("email, name, password required")
	}
	role := req.Role
	if role == "" {
		role = RoleCourier
	}
	if role != RoleCourier && role != RoleAdmin {
		return User{}, TokenResponse{}, fmt.Errorf("unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, TokenResponse{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, name, phone, password_hash, role, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, user.ID, user.Email, user.Name, user.Phone, user.PasswordHash, user.Role, user.Active)
	if err := row.Scan(&user.CreatedAt); err != nil {
		return User{}, TokenResponse{}, err
	}

	tokens, err := s.GenerateTokens(ctx, user)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (User, TokenResponse, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, email, name, phone, password_hash, role, active, failed_attempts, locked_until, created_at
		FROM users WHERE email = $1
	`, req.Email)

	var user User
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Phone, &user.PasswordHash, &user.Role, &user.Active, &user.FailedAttempts, &user.LockedUntil, &user.CreatedAt); err != nil {
		return User{}, TokenResponse{}, ErrInvalidCredentials
	}

	if !user.Active {
		return User{}, TokenResponse{}, ErrAccountInactive
	}
	if user.LockedUntil != nil && user.LockedUntil.After(time.Now()) {
		return User{}, TokenResponse{}, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if err := s.recordFailedLogin(ctx, user); err != nil {
			return User{}, TokenResponse{}, err
		}
		return User{}, TokenResponse{}, ErrInvalidCredentials
	}

	now := time.Now()
	if _, err := s.db.Exec(ctx, `
		UPDATE users SET failed_attempts = 0, locked_until = NULL, last_login = $2
		WHERE id = $1
	`, user.ID, now); err != nil {
		return User{}, TokenResponse{}, err
	}
	user.FailedAttempts = 0
	user.LockedUntil = nil
	user.LastLogin = &now

	tokens, err := s.GenerateTokens(ctx, user)
	if err != nil {
		return User{}, TokenResponse{}, err
	}

	s.audit.Log(ctx, user.ID, audit.ActionLogin, map[string]any{"email": user.Email})
	return user, tokens, nil
}

// recordFailedLogin bumps the failure counter and locks the account once the
// attempt limit is reached.
func (s *Service) recordFailedLogin(ctx context.Context, user User) error {
	attempts := user.FailedAttempts + 1
	var lockedUntil *time.Time
	if attempts >= maxLoginAttempts {
		t := time.Now().Add(lockDuration)
		lockedUntil = &t
	}
	if _, err := s.db.Exec(ctx, `
		UPDATE users SET failed_attempts = $2, locked_until = $3
		WHERE id = $1
	`, user.ID, attempts, lockedUntil); err != nil {
		return err
	}

	s.audit.Log(ctx, user.ID, audit.ActionLoginFailed, map[string]any{
		"email":           user.Email,
		"failed_attempts": attempts,
		"locked":          lockedUntil != nil,
	})
	return nil
}

func (s *Service) GenerateTokens(ctx context.Context, user User) (TokenResponse, error) {
	access, err := s.signToken(user, accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	refresh, err := s.signToken(user, refreshTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := s.saveRefreshToken(ctx, refresh, user.ID, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (User, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return User{}, err
	}

	userID, expiresAt, err := s.lookupRefreshToken(ctx, token)
	if err != nil || userID != claims.UserID || time.Now().After(expiresAt) {
		return User{}, errors.New("refresh token invalid")
	}
	return User{ID: claims.UserID, Name: claims.Name, Role: claims.Role}, nil
}

func (s *Service) ValidateAccessToken(token string) (*Claims, error) {
	return s.parseToken(token)
}

func (s *Service) signToken(user User, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: user.ID,
		Name:   user.Name,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), userID, token, time.Now().Add(ttl))
	return err
}

func (s *Service) lookupRefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL
	`, token)
	var userID string
	var expiresAt time.Time
	if err := row.Scan(&userID, &expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return userID, expiresAt, nil
}
