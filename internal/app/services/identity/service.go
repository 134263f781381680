// Package identity resolves acting principals: it owns user records, password
// verification and token issuance. The orders service consumes the resulting
// user id and admin flag and trusts them verbatim.
package identity

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mealdesk/mealdesk/internal/app/domain/user"
	"github.com/mealdesk/mealdesk/internal/app/storage"
	"github.com/mealdesk/mealdesk/internal/errors"
	"github.com/mealdesk/mealdesk/pkg/logger"
)

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Service issues and verifies credentials.
type Service struct {
	users  storage.UserStore
	secret []byte
	ttl    time.Duration
	log    *logger.Logger
}

// New constructs an identity service signing tokens with an HMAC secret.
func New(users storage.UserStore, secret []byte, ttl time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("identity")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Service{users: users, secret: secret, ttl: ttl, log: log}
}

// Register creates a user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string, isAdmin bool) (user.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return user.User{}, errors.BadInput("username must be at least 3 characters")
	}
	if len(password) < 6 {
		return user.User{}, errors.BadInput("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, errors.Internal(err)
	}

	created, err := s.users.CreateUser(ctx, user.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
	})
	if err != nil {
		if err == storage.ErrDuplicate {
			return user.User{}, errors.Conflict("username %q already taken", username)
		}
		return user.User{}, errors.Internal(err)
	}
	s.log.WithField("user_id", created.ID).
		WithField("username", created.Username).
		WithField("is_admin", created.IsAdmin).
		Info("user registered")
	return created, nil
}

// Login verifies a password and issues a signed token. Unknown usernames and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if err == storage.ErrNotFound {
			return Token{}, errors.Unauthorized("invalid username or password")
		}
		return Token{}, errors.Internal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Token{}, errors.Unauthorized("invalid username or password")
	}

	now := time.Now()
	claims := Claims{
		UserID:  u.ID,
		IsAdmin: u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, errors.Internal(err)
	}

	s.log.WithField("user_id", u.ID).Info("user logged in")
	return Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.ttl.Seconds()),
	}, nil
}

// Verify parses and validates a token, returning its claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Unauthorized("unexpected signing method").WithDetails("alg", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.Unauthorized("invalid token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.Unauthorized("invalid token")
	}
	return claims, nil
}

// GetUser fetches a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (user.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return user.User{}, errors.NotFound("user %s not found", id)
		}
		return user.User{}, errors.Internal(err)
	}
	return u, nil
}

// ListUsers returns all accounts.
func (s *Service) ListUsers(ctx context.Context) ([]user.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return users, nil
}

// EnsureAdmin creates the bootstrap administrator account when no user with
// that username exists yet. Called once at startup.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) error {
	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return nil
	} else if err != storage.ErrNotFound {
		return errors.Internal(err)
	}

	if _, err := s.Register(ctx, username, email, password, true); err != nil {
		return err
	}
	s.log.WithField("username", username).Info("bootstrap admin created")
	return nil
}
