package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/port"
)

const tokenBytes = 20

// UserService issues API tokens and resolves them back to users. Only the
// SHA-256 of a token is stored.
type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Register creates a user and returns the plaintext token, which is not
// recoverable afterwards.
func (s *UserService) Register(ctx context.Context, username string, staff bool) (domain.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, "", domain.NewValidationError("username", "This field may not be blank.")
	}

	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return domain.User{}, "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	u, err := s.repo.CreateUser(ctx, username, staff, HashToken(token))
	if err != nil {
		return domain.User{}, "", err
	}

	slog.InfoContext(ctx, "user registered", "user_id", u.ID, "username", u.Username, "staff", u.IsStaff)
	return u, token, nil
}

// Authenticate maps a token to its user; unknown tokens are ErrUnauthenticated.
func (s *UserService) Authenticate(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}

	u, err := s.repo.UserByTokenHash(ctx, HashToken(token))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, domain.ErrUnauthenticated
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("authenticate: %w", err)
	}
	return u, nil
}

// Delete removes the user together with all of their orders.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "user deleted", "user_id", id)
	return nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
