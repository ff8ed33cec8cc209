package service

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/evetabi/matchsim/internal/config"
	"github.com/evetabi/matchsim/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Request / Response types
// ──────────────────────────────────────────────────────────────────────────────

// LoginRequest carries operator credentials.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// JWT claims
// ──────────────────────────────────────────────────────────────────────────────

// RoleOperator is the only role the control plane accepts.
const RoleOperator = "operator"

// OperatorClaims extends jwt.RegisteredClaims with the operator role.
type OperatorClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// ──────────────────────────────────────────────────────────────────────────────
// OperatorService
// ──────────────────────────────────────────────────────────────────────────────

// OperatorService authenticates the single operator account and issues the
// access tokens that guard the control endpoints and the backoffice.
type OperatorService struct {
	secret       []byte
	ttl          time.Duration
	username     string
	passwordHash []byte
	now          func() time.Time
}

// NewOperatorService creates an OperatorService from the Operator config
// section.  An empty password hash disables login; tokens can still be
// parsed.
func NewOperatorService(cfg *config.Config) *OperatorService {
	ttl := cfg.Operator.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &OperatorService{
		secret:       []byte(cfg.Operator.JWTSecret),
		ttl:          ttl,
		username:     cfg.Operator.Username,
		passwordHash: []byte(cfg.Operator.PasswordHash),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Login validates credentials and returns a fresh access token.
func (s *OperatorService) Login(req LoginRequest) (*LoginResponse, error) {
	if len(s.passwordHash) == 0 {
		return nil, domain.ErrInvalidCredentials
	}
	// Compare the name in constant time to avoid leaking it.
	if subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.username)) != 1 {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.IssueToken(s.username)
}

// IssueToken signs an operator access token for subject.
func (s *OperatorService) IssueToken(subject string) (*LoginResponse, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: RoleOperator,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("operator_service.IssueToken: sign: %w", err)
	}
	return &LoginResponse{AccessToken: tok, ExpiresAt: exp}, nil
}

// ParseToken validates the token signature, algorithm, expiry and role.
func (s *OperatorService) ParseToken(tokenString string) (*OperatorClaims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, domain.ErrTokenInvalid
	}
	claims, ok := tok.Claims.(*OperatorClaims)
	if !ok || claims.Role != RoleOperator {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

// HashPassword returns the bcrypt hash to put in OPERATOR_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("operator_service.HashPassword: %w", err)
	}
	return string(h), nil
}
