// Package authclient talks to a remote authentication API.
//
// The API takes a JSON body {"username": …, "password": …} on POST and
// answers with {"error": …} or {"redirect": …}.  Rejections may arrive with
// a 4xx status; the body is decoded either way.  Transport errors and 5xx
// answers are retried with backoff and then surface as errors.
package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/yanizio/loginform/internal/login"
)

var _ login.Authenticator = (*Client)(nil)

// maxBody caps how much of an answer is read.
const maxBody = 64 << 10

// Options configures a Client.
type Options struct {
	Endpoint string        // absolute URL of the login operation
	Timeout  time.Duration // per attempt; 0 means 10s
	RetryMax int           // retries after the first attempt
	Logger   *zap.SugaredLogger
}

// Client is a login.Authenticator backed by HTTP.
type Client struct {
	endpoint string
	http     *retryablehttp.Client
}

// New validates opts and builds a Client.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("authclient: invalid endpoint %q", opts.Endpoint)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryMax < 0 {
		return nil, errors.New("authclient: RetryMax cannot be negative")
	}
	if opts.Logger == nil {
		opts.Logger = zap.S()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = leveled{opts.Logger}

	return &Client{endpoint: u.String(), http: rc}, nil
}

type request struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login posts the credentials and decodes the answer.  An empty body yields
// a nil result.
func (c *Client) Login(ctx context.Context, username, password string) (*login.AuthResult, error) {
	body, err := json.Marshal(request{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("authclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authclient: post %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("authclient: %s answered %s", c.endpoint, resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("authclient: read answer: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var res login.AuthResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("authclient: decode answer (%s): %w", resp.Status, err)
	}
	return &res, nil
}

// leveled adapts a zap sugared logger to retryablehttp.LeveledLogger.
type leveled struct{ s *zap.SugaredLogger }

func (l leveled) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveled) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l leveled) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveled) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
