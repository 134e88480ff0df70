// Package auth handles user accounts and bearer-token sessions, including
// anonymous guest accounts with reduced entitlements.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketingvoice/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Service issues, validates and revokes user authentication tokens.
type Service struct {
	db         *sql.DB
	tokenTTL   time.Duration
	cookieName string
	headerName string
}

// NewService constructs an auth service with the supplied token lifetime.
func NewService(db *sql.DB, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		db:         db,
		tokenTTL:   ttl,
		cookieName: "auth_token",
		headerName: "Authorization",
	}
}

// RegisterUser creates a regular user with the supplied credentials.
func (s *Service) RegisterUser(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hashPassword(password),
		Type:         models.UserTypeRegular,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, user_type, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.Type, user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login validates credentials and returns the user profile.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, user_type, created_at FROM users WHERE username = ?`, username,
	)
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Type, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if user.PasswordHash != hashPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// CreateGuest mints an anonymous account so visitors can chat without
// registering. Guests carry a lower daily message ceiling.
func (s *Service) CreateGuest(ctx context.Context) (*models.User, error) {
	user := &models.User{
		ID:           uuid.NewString(),
		Type:         models.UserTypeGuest,
		PasswordHash: hashPassword(uuid.NewString()),
		CreatedAt:    time.Now().UTC(),
	}
	user.Username = "guest-" + user.ID[:8]
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, user_type, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.Type, user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create guest: %w", err)
	}
	return user, nil
}

// IssueToken mints a new random token for the user and persists it.
func (s *Service) IssueToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("invalid user id")
	}
	now := time.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	for i := 0; i < 5; i++ {
		token, err := generateToken()
		if err != nil {
			return "", err
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO user_tokens (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
			token, userID, now, expiresAt,
		)
		if err == nil {
			return token, nil
		}
	}
	return "", errors.New("could not issue token")
}

// ValidateToken verifies the token exists and has not expired, returning
// the user's id and type.
func (s *Service) ValidateToken(ctx context.Context, authToken string) (string, models.UserType, error) {
	if authToken == "" {
		return "", "", ErrInvalidToken
	}
	var (
		userID   string
		userType models.UserType
		expires  time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT t.user_id, u.user_type, t.expires_at
		 FROM user_tokens t JOIN users u ON t.user_id = u.id
		 WHERE t.token = ?`, authToken,
	).Scan(&userID, &userType, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrInvalidToken
		}
		return "", "", fmt.Errorf("lookup token: %w", err)
	}
	if time.Now().UTC().After(expires) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE token = ?`, authToken)
		return "", "", ErrInvalidToken
	}
	return userID, userType, nil
}

// RevokeToken deletes a single token.
func (s *Service) RevokeToken(ctx context.Context, authToken string) error {
	if authToken == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE token = ?`, authToken); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// RevokeUserTokens removes all tokens belonging to the user.
func (s *Service) RevokeUserTokens(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashPassword(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// AuthCookieName returns the cookie name storing auth tokens.
func (s *Service) AuthCookieName() string {
	return s.cookieName
}

// TokenTTL reports the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}
