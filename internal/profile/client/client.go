// Package client talks to the profile store over HTTP.
//
// Every call is advisory from the caller's point of view: the ledger stays
// authoritative. After repeated transport failures a circuit breaker fails
// calls fast with CodeUnavailable, letting one probe through per interval.
package client

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
	"strings"
	"sync"
	"time"

	"organchain/internal/models"
	"organchain/internal/platform/metrics"
	"organchain/pkg/domain"
	dErrors "organchain/pkg/domain-errors"
	"organchain/pkg/platform/circuit"
	"organchain/pkg/requestcontext"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultProbeInterval = 30 * time.Second

	headerRequestID = "X-Request-ID"
)

// TokenSource mints a bearer token that lets identity write its own record.
type TokenSource interface {
	Token(identity domain.Address) (string, error)
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics

	probeInterval time.Duration
	now           func() time.Time
	probeMu       sync.Mutex
	lastProbe     time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithProbeInterval sets how often a call is let through an open breaker.
func WithProbeInterval(d time.Duration) Option {
	return func(c *Client) {
		c.probeInterval = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, dErrors.New(dErrors.CodeConfigMissing, "profile store base URL is invalid")
	}
	c := &Client{
		baseURL:       u,
		http:          &http.Client{Timeout: defaultTimeout},
		breaker:       circuit.New("profile-store"),
		logger:        slog.Default(),
		probeInterval: defaultProbeInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// createRequest mirrors the server's create body.
type createRequest struct {
	WalletAddress    string        `json:"walletAddress"`
	Name             string        `json:"name"`
	Age              int           `json:"age"`
	BloodType        string        `json:"bloodType"`
	Email            string        `json:"email"`
	Phone            string        `json:"phone,omitempty"`
	Organs           []string      `json:"organs"`
	MedicalHistory   string        `json:"medicalHistory,omitempty"`
	EmergencyContact string        `json:"emergencyContact,omitempty"`
	Status           models.Status `json:"status,omitempty"`
}

// Create stores a new profile. A second profile for the same wallet fails
// with CodeAlreadyExists.
func (c *Client) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	body := createRequest{
		WalletAddress:    p.WalletAddress.String(),
		Name:             p.Name,
		Age:              p.Age,
		BloodType:        p.BloodType.String(),
		Email:            p.Email,
		Phone:            p.Phone,
		Organs:           domain.OrganStrings(p.Organs),
		MedicalHistory:   p.MedicalHistory,
		EmergencyContact: p.EmergencyContact,
		Status:           p.Status,
	}
	var out models.Profile
	if err := c.do(ctx, "create", http.MethodPost, "/api/donors", p.WalletAddress, body, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchByIdentity returns the profile for addr or CodeNotFound.
func (c *Client) FetchByIdentity(ctx context.Context, addr domain.Address) (*models.Profile, error) {
	var out models.Profile
	if err := c.do(ctx, "fetch", http.MethodGet, "/api/donors/"+url.PathEscape(addr.String()), "", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus applies a partial update to addr's profile.
func (c *Client) UpdateStatus(ctx context.Context, addr domain.Address, upd models.ProfileUpdate) (*models.Profile, error) {
	var out models.Profile
	if err := c.do(ctx, "update", http.MethodPatch, "/api/donors/"+url.PathEscape(addr.String()), addr, upd, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) List(ctx context.Context) ([]*models.Profile, error) {
	var out []*models.Profile
	if err := c.do(ctx, "list", http.MethodGet, "/api/donors", "", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type errorEnvelope struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// do performs one request. A non-empty signer attaches a bearer token for
// that identity.
func (c *Client) do(ctx context.Context, op, method, path string, signer domain.Address, in any, want int, out any) (err error) {
	start := c.now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
		}
		c.metrics.ObserveProfileOp(op, outcome, c.now().Sub(start))
	}()

	if !c.allow() {
		return dErrors.New(dErrors.CodeUnavailable, "profile store circuit open")
	}

	req, err := c.newRequest(ctx, method, path, signer, in)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordFailure(ctx, err)
		if ctx.Err() != nil {
			return dErrors.Wrap(ctx.Err(), dErrors.CodeNetwork, "profile store request cancelled")
		}
		return dErrors.Wrap(err, dErrors.CodeNetwork, "profile store unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.recordFailure(ctx, fmt.Errorf("status %d", resp.StatusCode))
		_, _ = io.Copy(io.Discard, resp.Body)
		return dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("profile store returned %d", resp.StatusCode))
	}
	c.recordSuccess(ctx)

	if resp.StatusCode != want {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "decode profile store response")
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, signer domain.Address, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode profile request")
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build profile request")
	}
	req.Header.Set("Accept", "application/json")
	if id := requestcontext.RequestID(ctx); id != "" {
		req.Header.Set(headerRequestID, id)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if signer != "" {
		if c.tokens == nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "no token source for profile writes")
		}
		token, err := c.tokens.Token(signer)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "mint service token")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func decodeError(resp *http.Response) error {
	var env errorEnvelope
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&env)
	msg := env.ErrorDescription
	if msg == "" {
		msg = fmt.Sprintf("profile store returned %d", resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return dErrors.New(dErrors.CodeNotFound, msg)
	case http.StatusConflict:
		return dErrors.New(dErrors.CodeAlreadyExists, msg)
	case http.StatusBadRequest:
		if env.Error == "validation_error" {
			return dErrors.New(dErrors.CodeValidation, msg)
		}
		return dErrors.New(dErrors.CodeBadRequest, msg)
	case http.StatusUnauthorized:
		return dErrors.New(dErrors.CodeUnauthorized, msg)
	case http.StatusForbidden:
		return dErrors.New(dErrors.CodeForbidden, msg)
	default:
		return dErrors.New(dErrors.CodeInternal, msg)
	}
}

// allow reports whether a call may proceed. An open breaker admits one
// probe per interval.
func (c *Client) allow() bool {
	if !c.breaker.IsOpen() {
		return true
	}
	c.probeMu.Lock()
	defer c.probeMu.Unlock()
	now := c.now()
	if now.Sub(c.lastProbe) < c.probeInterval {
		return false
	}
	c.lastProbe = now
	return true
}

func (c *Client) recordFailure(ctx context.Context, cause error) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.probeMu.Lock()
		c.lastProbe = c.now()
		c.probeMu.Unlock()
		c.logger.WarnContext(ctx, "profile store circuit opened",
			"breaker", c.breaker.Name(),
			"error", cause,
		)
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "profile store circuit closed",
			"breaker", c.breaker.Name(),
		)
	}
}

// IsUnavailable reports whether err means the profile store could not be
// reached, as opposed to a definite answer.
func IsUnavailable(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeUnavailable) || dErrors.HasCode(err, dErrors.CodeNetwork) ||
		errors.Is(err, context.DeadlineExceeded)
}
