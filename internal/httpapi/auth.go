package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"salonledger/internal/domain"
	"salonledger/internal/store"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const tokenIssuer = "salonledger"

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    UserDirectory
	now      func() time.Time
}

// UserDirectory looks up owner accounts. It returns store.ErrNotFound for
// unknown emails.
type UserDirectory interface {
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
}

type sessionClaims struct {
	jwtlib.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, users UserDirectory) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Login checks the password against the stored bcrypt hash and issues a
// bearer token whose subject is the owner id.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	user, err := a.users.FindUserByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.LoginResponse{}, err
	}
	if !verifyPassword(user.PasswordHash, req.Password) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}

	expiresAt := a.now().Add(a.tokenTTL)
	token, err := a.sign(domain.Session{OwnerID: user.ID, Email: user.Email, Role: user.Role}, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		OwnerID:     user.ID,
		Role:        user.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Session, error) {
	claims := &sessionClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer), jwtlib.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return domain.Session{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Session{}, errors.New("invalid token subject")
	}
	return domain.Session{OwnerID: sub, Email: claims.Email, Role: claims.Role}, nil
}

func (a *AuthManager) sign(sess domain.Session, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   sess.OwnerID,
			IssuedAt:  jwtlib.NewNumericDate(a.now()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Email: sess.Email,
		Role:  sess.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
