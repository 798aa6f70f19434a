package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tables-pos/internal/domain"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DataSource fetches the menu from the remote mock API
type DataSource interface {
	FetchCategories(ctx context.Context) ([]domain.Category, error)
	FetchProducts(ctx context.Context, categoryID int) ([]domain.Product, error)
}

type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a remote DataSource. Every request carries apiKey as the
// "key" query parameter.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) DataSource {
	return NewClientWithHTTP(baseURL, apiKey, &http.Client{Timeout: timeout}, logger)
}

// NewClientWithHTTP creates a remote DataSource on top of an existing http.Client
func NewClientWithHTTP(baseURL, apiKey string, httpClient *http.Client, logger *zap.Logger) DataSource {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		logger:  logger,
	}
}

// FetchCategories issues GET {base}/categories.json
func (c *client) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	var dtos []categoryDTO
	if err := c.get(ctx, "/categories.json", &dtos); err != nil {
		return nil, err
	}

	categories := make([]domain.Category, 0, len(dtos))
	for _, dto := range dtos {
		categories = append(categories, dto.toCategory())
	}
	return categories, nil
}

// FetchProducts issues GET {base}/products/{categoryID}.json
func (c *client) FetchProducts(ctx context.Context, categoryID int) ([]domain.Product, error) {
	var dtos []productDTO
	if err := c.get(ctx, fmt.Sprintf("/products/%d.json", categoryID), &dtos); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(dtos))
	for _, dto := range dtos {
		products = append(products, dto.toProduct())
	}
	return products, nil
}

// get performs the request and decodes a 2xx body into out. Failures are
// returned as domain.NetworkError, except cancellation of ctx which is returned
// unchanged.
func (c *client) get(ctx context.Context, path string, out interface{}) error {
	endpoint := c.baseURL + path
	if c.apiKey != "" {
		endpoint += "?" + url.Values{"key": {c.apiKey}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Error("Failed to build remote request", zap.String("path", path), zap.Error(err))
		return domain.ErrUnknown
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		netErr := classifyTransportError(err)
		c.logger.Warn("Remote request failed",
			zap.String("path", path),
			zap.String("kind", netErr.Error()),
			zap.Error(err),
		)
		return netErr
	}
	defer resp.Body.Close()

	if netErr, ok := classifyStatus(resp.StatusCode); !ok {
		c.logger.Warn("Remote returned error status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", netErr.Error()),
		)
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return netErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warn("Failed to decode remote response", zap.String("path", path), zap.Error(err))
		return domain.ErrSerialization
	}

	c.logger.Debug("Remote request completed", zap.String("path", path), zap.Int("status", resp.StatusCode))
	return nil
}

// classifyStatus maps an HTTP status to a NetworkError. ok is true for 2xx.
func classifyStatus(status int) (domain.NetworkError, bool) {
	switch {
	case status >= 200 && status <= 299:
		return 0, true
	case status == http.StatusRequestTimeout:
		return domain.ErrRequestTimeout, false
	case status == http.StatusTooManyRequests:
		return domain.ErrTooManyRequests, false
	case status >= 500 && status <= 599:
		return domain.ErrServerError, false
	default:
		return domain.ErrUnknown, false
	}
}

func classifyTransportError(err error) domain.NetworkError {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.ErrNoInternet
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ErrRequestTimeout
	}

	return domain.ErrUnknown
}
