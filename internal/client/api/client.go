package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/iudanet/manuscript/internal/models"
	"github.com/iudanet/manuscript/pkg/api"
)

const (
	// DefaultTimeout таймаут HTTP запроса по умолчанию
	DefaultTimeout = 30 * time.Second
	// DefaultCompressThreshold размер тела, начиная с которого оно сжимается
	DefaultCompressThreshold = 16 << 10
)

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient        *http.Client
	baseURL           string
	token             string
	compressThreshold int
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithCompressThreshold sets the body size from which requests are zstd
// compressed. Zero or negative disables compression.
func WithCompressThreshold(n int) Option {
	return func(c *Client) {
		c.compressThreshold = n
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:           baseURL,
		compressThreshold: DefaultCompressThreshold,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func projectPath(project string, parts ...string) string {
	p := "/api/v1/projects/" + url.PathEscape(project)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// ListProjects возвращает проекты пользователя на сервере
func (c *Client) ListProjects(ctx context.Context) ([]api.ProjectInfo, error) {
	var resp api.ListProjectsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/projects", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("list projects request failed: %w", err)
	}
	return resp.Projects, nil
}

// BeginSync открывает сессию синхронизации проекта
func (c *Client) BeginSync(ctx context.Context, project string, clientState models.ClientEntityState) (*api.BeginSyncResponse, error) {
	req := api.BeginSyncRequest{ClientState: clientState}
	if req.ClientState == nil {
		req.ClientState = map[int]string{}
	}

	var resp api.BeginSyncResponse
	if err := c.doRequest(ctx, http.MethodPost, projectPath(project, "sync", "begin"), "", req, &resp); err != nil {
		return nil, fmt.Errorf("begin sync request failed: %w", err)
	}
	return &resp, nil
}

// LoadEntity загружает серверную версию сущности
func (c *Client) LoadEntity(ctx context.Context, project, syncID string, t models.EntityType, id int) (models.Entity, error) {
	var resp api.EntityResponse
	path := projectPath(project, "entities", t.Stub(), strconv.Itoa(id))
	if err := c.doRequest(ctx, http.MethodGet, path, syncID, nil, &resp); err != nil {
		return nil, fmt.Errorf("load entity request failed: %w", err)
	}
	return decodeEntity(t, resp.Entity)
}

// SaveEntity записывает сущность на сервер. При конфликте возвращает
// *ConflictError с серверной версией.
func (c *Client) SaveEntity(ctx context.Context, project, syncID string, e models.Entity, originalHash *string, force bool) (bool, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("failed to marshal entity: %w", err)
	}

	req := api.SaveEntityRequest{
		Entity:       data,
		OriginalHash: originalHash,
		Force:        force,
	}
	path := projectPath(project, "entities", e.EntityType().Stub(), strconv.Itoa(e.EntityID()))

	var resp api.SaveEntityResponse
	if err := c.doRequest(ctx, http.MethodPut, path, syncID, req, &resp); err != nil {
		return false, err
	}
	return resp.Saved, nil
}

// DeleteEntity удаляет сущность на сервере. Если originalHash задан, а
// сущность на сервере изменилась, возвращает *ConflictError с серверной версией.
func (c *Client) DeleteEntity(ctx context.Context, project, syncID string, id int, originalHash *string) (bool, error) {
	req := api.DeleteEntityRequest{OriginalHash: originalHash}
	var resp api.DeleteEntityResponse
	if err := c.doRequest(ctx, http.MethodDelete, projectPath(project, "entities", strconv.Itoa(id)), syncID, req, &resp); err != nil {
		return false, fmt.Errorf("delete entity request failed: %w", err)
	}
	return resp.Deleted, nil
}

// EndSync фиксирует синхронизацию и закрывает сессию
func (c *Client) EndSync(ctx context.Context, project, syncID string, lastSync time.Time, lastID int) error {
	req := api.EndSyncRequest{LastSync: lastSync, LastID: lastID}
	if err := c.doRequest(ctx, http.MethodPost, projectPath(project, "sync", "end"), syncID, req, nil); err != nil {
		return fmt.Errorf("end sync request failed: %w", err)
	}
	return nil
}

// CancelSync закрывает сессию без фиксации
func (c *Client) CancelSync(ctx context.Context, project, syncID string) error {
	if err := c.doRequest(ctx, http.MethodPost, projectPath(project, "sync", "cancel"), syncID, nil, nil); err != nil {
		return fmt.Errorf("cancel sync request failed: %w", err)
	}
	return nil
}

func decodeEntity(t models.EntityType, data json.RawMessage) (models.Entity, error) {
	e, err := models.NewEntity(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", t, err)
	}
	return e, nil
}

// encodeBody сериализует тело запроса и сжимает его, если оно крупное
func (c *Client) encodeBody(body interface{}) ([]byte, bool, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal request body: %w", err)
	}
	if c.compressThreshold <= 0 || len(jsonData) < c.compressThreshold {
		return jsonData, false, nil
	}

	var compressed bytes.Buffer
	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return nil, false, fmt.Errorf("creating encoder: %w", err)
	}
	if _, err := encoder.Write(jsonData); err != nil {
		encoder.Close()
		return nil, false, fmt.Errorf("compressing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, false, fmt.Errorf("closing encoder: %w", err)
	}
	return compressed.Bytes(), true, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, syncID string, body, result interface{}) error {
	var bodyReader io.Reader
	compressed := false
	if body != nil {
		data, zipped, err := c.encodeBody(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
		compressed = zipped
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if compressed {
		req.Header.Set("Content-Encoding", api.EncodingZstd)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if syncID != "" {
		req.Header.Set(api.SyncIDHeader, syncID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, respBody)
	}

	// Декодируем успешный ответ
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// parseError переводит ответ с ошибкой в *Error или *ConflictError
func parseError(status int, body []byte) error {
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", status, string(body))
	}

	if errResp.Error == api.ErrCodeEntityConflict && len(errResp.ServerEntity) > 0 {
		t, err := models.ParseEntityType(errResp.EntityType)
		if err != nil {
			return fmt.Errorf("conflict with unknown entity type: %w", err)
		}
		server, err := decodeEntity(t, errResp.ServerEntity)
		if err != nil {
			return err
		}
		return &ConflictError{Server: server}
	}

	return &Error{StatusCode: status, Code: errResp.Error, Message: errResp.Message}
}
