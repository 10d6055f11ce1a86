// Package nexus is the network client for the venue's service locator. A
// single Client serves the account directory, execution, definitions and time
// services over signed REST calls, and streams order submissions over a
// websocket.
package nexus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"cancel_sweep/internal/domain"
	"cancel_sweep/internal/infra"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent = "cancel_sweep/1.0"

	accountsPath    = "/v1/accounts"
	ordersPath      = "/v1/orders"
	definitionsPath = "/v1/definitions"
	timePath        = "/v1/time"
	submissionsPath = "/v1/submissions"
)

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("nexus client closed")

// Client is the service locator client. It implements domain.ServiceClients
// and every service interface behind it.
type Client struct {
	baseURL    string
	streamURL  string
	httpClient *http.Client
	dialer     *websocket.Dialer
	signer     *Signer
	limiter    *rate.Limiter
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	streams map[*submissionStream]struct{}
	closed  bool
}

// NewClient creates a client for the configured service locator. No
// connection is made until the first call.
func NewClient(cfg *infra.Config) *Client {
	limit, burst := rate.Inf, 1
	if r := cfg.Execution.RatePerSec; r > 0 {
		limit = rate.Limit(r)
		burst = max(1, int(r))
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.ServiceLocator.Address, "/"),
		streamURL: strings.TrimRight(cfg.StreamAddress(), "/"),
		httpClient: &http.Client{
			Timeout: cfg.CallTimeout(),
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		signer:  NewSigner(cfg.ServiceLocator.Username, cfg.ServiceLocator.Password),
		limiter: rate.NewLimiter(limit, burst),
		logger:  slog.Default().With("module", "nexus_client"),
		now:     time.Now,
		streams: make(map[*submissionStream]struct{}),
	}
}

// Dial creates a client and checks that the service locator accepts the
// configured credentials.
func Dial(ctx context.Context, cfg *infra.Config) (*Client, error) {
	c := NewClient(cfg)
	err := cfg.RetryPolicy().Do(ctx, "get_time", func(ctx context.Context) error {
		_, err := c.Time(ctx)
		return err
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("connect to %s: %w", cfg.ServiceLocator.Address, err)
	}
	c.logger.Info("Connected to service locator",
		slog.String("address", c.baseURL),
		slog.String("username", cfg.ServiceLocator.Username))
	return c, nil
}

// ======================================================================================
// domain.ServiceClients
// ======================================================================================

func (c *Client) AccountDirectory() domain.AccountDirectory   { return c }
func (c *Client) ExecutionClient() domain.ExecutionClient     { return c }
func (c *Client) DefinitionsClient() domain.DefinitionsClient { return c }
func (c *Client) TimeClient() domain.TimeClient               { return c }

// Close closes every open submission stream and idle connection. Later calls
// fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	streams := make([]*submissionStream, 0, len(c.streams))
	for s := range c.streams {
		streams = append(streams, s)
	}
	c.mu.Unlock()

	var errs []error
	for _, s := range streams {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.httpClient.CloseIdleConnections()
	return errors.Join(errs...)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ======================================================================================
// domain.AccountDirectory
// ======================================================================================

func (c *Client) LoadAllAccounts(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	if err := c.do(ctx, "load_all_accounts", http.MethodGet, accountsPath, nil, nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *Client) FindAccount(ctx context.Context, name string) (domain.Account, error) {
	var account domain.Account
	err := c.do(ctx, "find_account", http.MethodGet, accountsPath+"/"+url.PathEscape(name), nil, nil, &account)
	if isNotFound(err) {
		return domain.Account{}, fmt.Errorf("%s: %w", name, domain.ErrAccountNotFound)
	}
	return account, err
}

// ======================================================================================
// domain.ExecutionClient
// ======================================================================================

func (c *Client) LoadOrder(ctx context.Context, id domain.OrderID) (domain.Order, error) {
	var order domain.Order
	err := c.do(ctx, "load_order", http.MethodGet, orderPath(id), nil, nil, &order)
	if isNotFound(err) {
		return domain.Order{}, fmt.Errorf("order %d: %w", id, domain.ErrOrderNotFound)
	}
	return order, err
}

// Update submits report as the order's next execution report. The venue
// answers 409 when the report does not follow the order's history.
func (c *Client) Update(ctx context.Context, id domain.OrderID, report domain.ExecutionReport) error {
	err := c.do(ctx, "update", http.MethodPost, orderPath(id)+"/reports", nil, report, nil)
	if isNotFound(err) {
		return fmt.Errorf("order %d: %w", id, domain.ErrOrderNotFound)
	}
	return err
}

// ======================================================================================
// domain.DefinitionsClient / domain.TimeClient
// ======================================================================================

func (c *Client) LoadMarketDatabase(ctx context.Context) (*domain.MarketDatabase, error) {
	var db domain.MarketDatabase
	if err := c.do(ctx, "load_market_database", http.MethodGet, definitionsPath+"/markets", nil, nil, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

func (c *Client) LoadCountryDatabase(ctx context.Context) (*domain.CountryDatabase, error) {
	var db domain.CountryDatabase
	if err := c.do(ctx, "load_country_database", http.MethodGet, definitionsPath+"/countries", nil, nil, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

func (c *Client) LoadTimeZoneDatabase(ctx context.Context) (*domain.TimeZoneDatabase, error) {
	var db domain.TimeZoneDatabase
	if err := c.do(ctx, "load_time_zone_database", http.MethodGet, definitionsPath+"/time_zones", nil, nil, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

type timeResponse struct {
	Time time.Time `json:"time"`
}

func (c *Client) Time(ctx context.Context) (time.Time, error) {
	var resp timeResponse
	if err := c.do(ctx, "get_time", http.MethodGet, timePath, nil, nil, &resp); err != nil {
		return time.Time{}, err
	}
	return resp.Time, nil
}

// do handles signing and serialization. Transport failures come back as
// retriable NetworkErrors and non-2xx answers as RemoteErrors.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var bodyReader io.Reader
	var bodyStr string
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		bodyReader = bytes.NewReader(jsonBytes)
		bodyStr = string(jsonBytes)
	}

	rawQuery := query.Encode()
	reqURL := c.baseURL + path
	if rawQuery != "" {
		reqURL += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for k, v := range c.signer.GenerateHeaders(method, path, rawQuery, bodyStr, c.now()) {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return domain.NewNetworkError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewNetworkError(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("Remote call rejected",
			slog.String("op", op), slog.Int("status", resp.StatusCode))
		return &domain.RemoteError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: failed to parse response: %w", op, err)
	}
	return nil
}

func orderPath(id domain.OrderID) string {
	return ordersPath + "/" + strconv.FormatUint(uint64(id), 10)
}

func isNotFound(err error) bool {
	var remote *domain.RemoteError
	return errors.As(err, &remote) && remote.Status == http.StatusNotFound
}
