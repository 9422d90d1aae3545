package auth

import (
	"context"

	"github.com/iudanet/manuscript/internal/client/storage"
)

//go:generate moq -out service_mock.go . Service

// Service управляет bearer token клиента. Аккаунты ведет внешняя система,
// клиент только принимает выданный ей токен и хранит его.
type Service interface {
	// Login проверяет токен на сервере и сохраняет его
	Login(ctx context.Context, serverURL, token string) (*storage.AuthData, error)

	// Current возвращает сохраненный не истекший токен
	Current(ctx context.Context) (*storage.AuthData, error)

	// Logout удаляет сохраненный токен
	Logout(ctx context.Context) error
}
