package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/manuscript/internal/client/storage"
	"github.com/iudanet/manuscript/internal/validation"
	pkgapi "github.com/iudanet/manuscript/pkg/api"
)

var (
	// ErrNotAuthenticated no stored token or the stored token expired
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrMalformedToken token is not a JWT with a user id
	ErrMalformedToken = errors.New("malformed token")
)

// Verifier проверяет токен запросом к серверу
type Verifier interface {
	ListProjects(ctx context.Context) ([]pkgapi.ProjectInfo, error)
}

// VerifierFactory создает Verifier для адреса сервера и токена
type VerifierFactory func(serverURL, token string) Verifier

// tokenClaims совпадают с claims, которые выпускает сервер
type tokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService предоставляет функции авторизации
type AuthService struct {
	store    storage.AuthStorage
	verifier VerifierFactory
	logger   *slog.Logger
}

var _ Service = (*AuthService)(nil)

// NewService создает новый сервис авторизации
func NewService(store storage.AuthStorage, verifier VerifierFactory, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:    store,
		verifier: verifier,
		logger:   logger,
	}
}

// ParseToken читает claims без проверки подписи: секрет есть только у сервера.
func ParseToken(token string) (*storage.AuthData, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if err := validation.ValidateUserID(claims.UserID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	data := &storage.AuthData{
		UserID:      claims.UserID,
		Username:    claims.Username,
		AccessToken: token,
	}
	if claims.ExpiresAt != nil {
		data.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return data, nil
}

// Login проверяет токен на сервере и сохраняет его
func (s *AuthService) Login(ctx context.Context, serverURL, token string) (*storage.AuthData, error) {
	data, err := ParseToken(token)
	if err != nil {
		return nil, err
	}
	data.ServerURL = serverURL

	if s.verifier != nil {
		if _, err := s.verifier(serverURL, token).ListProjects(ctx); err != nil {
			return nil, fmt.Errorf("server rejected token: %w", err)
		}
	}

	if err := s.store.SaveAuth(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to save auth data: %w", err)
	}

	s.logger.Info("logged in", "user_id", data.UserID, "server", serverURL)
	return data, nil
}

// Current возвращает сохраненный не истекший токен
func (s *AuthService) Current(ctx context.Context) (*storage.AuthData, error) {
	ok, err := s.store.IsAuthenticated(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check authentication: %w", err)
	}
	if !ok {
		return nil, ErrNotAuthenticated
	}
	return s.store.GetAuth(ctx)
}

// Logout удаляет сохраненный токен
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.store.DeleteAuth(ctx); err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return ErrNotAuthenticated
		}
		return fmt.Errorf("failed to delete auth data: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}
