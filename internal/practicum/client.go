// Package practicum talks to the homework status API.
package practicum

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

	"homework-bot/internal/homework"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	// TokenType is the authorization scheme the API expects.
	TokenType = "OAuth"

	maxResponseBodySize = 1 << 20 // 1MB
)

type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient returns a client that authorizes every request with
// "Authorization: OAuth <token>".
func NewClient(ctx context.Context, endpoint, token string, timeout time.Duration, log zerolog.Logger) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: TokenType})
	return &Client{
		endpoint:   endpoint,
		timeout:    timeout,
		httpClient: oauth2.NewClient(ctx, ts),
		log:        log,
	}
}

func (c *Client) Endpoint() string { return c.endpoint }

// Fetch requests homework statuses changed since the given unix time and
// returns the decoded body without checking its shape.
func (c *Client) Fetch(ctx context.Context, since int64) (any, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, &EndpointAccessError{Endpoint: c.endpoint, Err: err}
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(since, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &EndpointAccessError{Endpoint: c.endpoint, Err: err}
	}

	c.log.Debug().Str("url", c.endpoint).Int64("from_date", since).Msg("requesting homework statuses")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &EndpointAccessError{Endpoint: c.endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &EndpointAccessError{Endpoint: c.endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, &EndpointAccessError{Endpoint: c.endpoint, Err: fmt.Errorf("read body: %w", err)}
	}
	return Decode(body)
}

// Decode parses a JSON body into generic values, keeping numbers as
// json.Number so integers can be told apart from floats.
func Decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &homework.ResponseFormatError{Err: err}
	}
	return v, nil
}
