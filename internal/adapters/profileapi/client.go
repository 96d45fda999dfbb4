// Package profileapi fetches authoritative user records from the admin users API.
package profileapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/akmalstorm/stdcalumni/internal/domain/auth"
	apperrors "github.com/akmalstorm/stdcalumni/internal/errors"
	"github.com/akmalstorm/stdcalumni/internal/ports"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout = 10 * time.Second
	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 1 << 20
	usersPath    = "/api/admin/users/"
)

var _ ports.ProfileSource = (*Client)(nil)

// ErrBaseURLRequired is returned when the client is constructed without a base URL.
var ErrBaseURLRequired = errors.New("profile api base url is required")

// ClientOptions configures a Client.
type ClientOptions struct {
	// BaseURL is the API origin, e.g. https://api.example.edu.
	BaseURL string
	// Token is sent as a bearer token when set.
	Token   string
	Timeout time.Duration
	// ResponsePath is an optional JMESPath expression selecting the user
	// record inside the response body, e.g. "data".
	ResponsePath string
	// HTTPClient is the base client; its transport is reused.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements ports.ProfileSource over HTTP.
type Client struct {
	base   *url.URL
	http   *http.Client
	path   string
	logger *slog.Logger
}

// NewClient validates options and builds a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, ErrBaseURLRequired
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse profile api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("profile api base url must be http or https, got %q", base.Scheme)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	expr := strings.TrimSpace(opts.ResponsePath)
	if expr != "" {
		if _, err = jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("compile profile api response path: %w", err)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:   base,
		http:   newHTTPClient(opts.HTTPClient, opts.Token, timeout),
		path:   expr,
		logger: logger.With("component", "profile_api"),
	}, nil
}

func newHTTPClient(baseClient *http.Client, token string, timeout time.Duration) *http.Client {
	if baseClient == nil {
		baseClient = &http.Client{}
	}
	if token == "" {
		c := *baseClient
		c.Timeout = timeout
		return &c
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, baseClient)
	c := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	c.Timeout = timeout
	return c
}

// FetchProfile issues GET {base}/api/admin/users/{id} and decodes the user record.
func (c *Client) FetchProfile(ctx context.Context, id domainauth.UserID) (domainauth.UserInfo, error) {
	if !id.Addressable() {
		return domainauth.UserInfo{}, apperrors.Validation("user id is required")
	}

	endpoint := c.base.JoinPath(usersPath, url.PathEscape(id.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return domainauth.UserInfo{}, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return domainauth.UserInfo{}, c.transportError(ctx, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.DebugContext(ctx, "close profile response body failed", "error", cerr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domainauth.UserInfo{}, apperrors.Unavailablef("read profile response: %v", err)
	}

	c.logger.DebugContext(ctx, "profile lookup",
		"user_id", id.String(),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domainauth.UserInfo{}, apperrors.NotFoundf("user %s not found", id.String())
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return domainauth.UserInfo{}, apperrors.Unavailablef("profile api returned status %d", resp.StatusCode)
	}

	return c.decode(body)
}

func (c *Client) decode(body []byte) (domainauth.UserInfo, error) {
	if c.path == "" {
		info, err := domainauth.DecodeUserInfo(body)
		if err != nil {
			return domainauth.UserInfo{}, apperrors.Unavailablef("decode profile response: %v", err)
		}
		return info, nil
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return domainauth.UserInfo{}, apperrors.Unavailablef("decode profile response: %v", err)
	}
	selected, err := jmespath.Search(c.path, doc)
	if err != nil {
		return domainauth.UserInfo{}, apperrors.Unavailablef("evaluate profile response path: %v", err)
	}
	if selected == nil {
		return domainauth.UserInfo{}, apperrors.Unavailablef("profile response path matched nothing")
	}
	raw, err := json.Marshal(selected)
	if err != nil {
		return domainauth.UserInfo{}, apperrors.Unavailablef("re-encode profile record: %v", err)
	}
	info, err := domainauth.DecodeUserInfo(raw)
	if err != nil {
		return domainauth.UserInfo{}, apperrors.Unavailablef("decode profile record: %v", err)
	}
	return info, nil
}

func (c *Client) transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "profile lookup canceled")
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "profile lookup timed out")
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "profile lookup timed out")
	}
	return apperrors.Unavailablef("profile api request failed: %v", err)
}
