package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tribly/growthqr-bff-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const bcryptCost = 12

// Roles recognized by the dashboard.
const (
	RoleAdmin = "admin"
	RoleSales = "sales"
	RoleOwner = "owner"
)

// User is a dashboard login provisioned at startup.
type User struct {
	Email        string
	PasswordHash string
	Role         string
	BusinessID   string
}

// LoginResult carries the issued token pair.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Role         string `json:"role"`
}

// JWTClaims represents the custom claims in issued tokens.
type JWTClaims struct {
	Sub        string `json:"sub"`
	Role       string `json:"role"`
	BusinessID string `json:"business_id,omitempty"`
	Type       string `json:"type"`
	jwt.RegisteredClaims
}

// Auth issues and validates dashboard tokens. Users are provisioned at
// startup; refresh tokens are stateless JWTs rotated on use.
type Auth struct {
	users      map[string]User
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewAuth creates the auth service with the provisioned users.
func NewAuth(users []User, jwtSecret string, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *Auth {
	byEmail := make(map[string]User, len(users))
	for _, u := range users {
		byEmail[strings.ToLower(u.Email)] = u
	}
	return &Auth{
		users:      byEmail,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// HashPassword hashes a plaintext password for user provisioning.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login verifies credentials and issues a token pair.
func (a *Auth) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	_, span := authTracer.Start(ctx, "Auth.Login")
	defer span.End()

	user, ok := a.users[strings.ToLower(email)]
	if !ok {
		// Burn a comparison anyway so unknown emails cost the same.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$12$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva"), []byte(password))
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		a.logger.Warn("login: failed password attempt", zap.String("email", email))
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	result, err := a.issueTokens(user)
	if err != nil {
		return nil, err
	}

	a.logger.Info("user logged in",
		zap.String("email", email),
		zap.String("role", user.Role),
	)
	return result, nil
}

// Refresh rotates a refresh token into a fresh pair.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	_, span := authTracer.Start(ctx, "Auth.Refresh")
	defer span.End()

	claims, err := a.parseToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != "refresh" {
		return nil, &domain.ErrUnauthorized{Message: "not a refresh token"}
	}

	user, ok := a.users[strings.ToLower(claims.Sub)]
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "unknown user"}
	}
	return a.issueTokens(user)
}

// ValidateAccessToken parses and checks an access token for middleware.
func (a *Auth) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	claims, err := a.parseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	return claims, nil
}

// Authorize checks a role against an action. Owners only manage their
// own dashboard; sales runs onboarding; admin does everything.
func Authorize(role, action string) error {
	allowed := map[string][]string{
		RoleAdmin: {"dashboard", "onboarding", "sales_team", "payments", "metrics"},
		RoleSales: {"dashboard", "onboarding", "payments"},
		RoleOwner: {"dashboard", "payments"},
	}
	for _, a := range allowed[role] {
		if a == action {
			return nil
		}
	}
	return &domain.ErrForbidden{Action: action}
}

func (a *Auth) issueTokens(user User) (*LoginResult, error) {
	access, err := a.sign(user, "access", a.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := a.sign(user, "refresh", a.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(a.accessTTL.Seconds()),
		Role:         user.Role,
	}, nil
}

func (a *Auth) sign(user User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:        user.Email,
		Role:       user.Role,
		BusinessID: user.BusinessID,
		Type:       tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "growthqr-bff",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *Auth) parseToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}
	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return claims, nil
}
