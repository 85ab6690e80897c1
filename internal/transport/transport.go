package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skshohagmiah/couchctl/internal/couch"
)

// DefaultTimeout is applied when Options carries no timeout.
const DefaultTimeout = 30 * time.Second

// Adapter issues JSON requests against one server. body is marshaled
// when non-nil; a 2xx response is decoded into out when non-nil.
// Transport failures (dial, timeout) and server-reported statuses both
// come back as *couch.Error, distinguishable by kind and StatusCode.
type Adapter interface {
	Request(ctx context.Context, method, path string, query url.Values, body, out interface{}) error
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Auth    couch.Credentials
	Timeout time.Duration // per-request timeout
	Logger  *zap.SugaredLogger
}

// DefaultOptions returns client options with sane defaults.
func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL: baseURL,
		Timeout: DefaultTimeout,
	}
}

// Client is the HTTP implementation of Adapter.
type Client struct {
	base string
	user string
	pass string
	hc   *http.Client
	log  *zap.SugaredLogger
}

// NewClient validates the base URL shape and builds a client. No
// network activity happens here; reachability is the connect probe's
// job.
func NewClient(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, couch.WrapError(couch.KindConnection, err, "invalid server URL %q", opts.BaseURL)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, couch.NewError(couch.KindConnection, "invalid server URL %q: expected http(s)://host[:port]", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Client{
		base: u.String(),
		user: opts.Auth.Username,
		pass: opts.Auth.Password,
		hc:   &http.Client{Timeout: timeout},
		log:  log,
	}, nil
}

// Request performs one round trip.
func (c *Client) Request(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return couch.WrapError(couch.KindInvalidJSON, err, "encode request body")
		}
		reader = bytes.NewReader(data)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return couch.WrapError(couch.KindConnection, err, "build %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return couch.WrapError(couch.KindCancelled, err, "%s %s was cancelled", method, path)
		}
		if isTimeout(err) {
			return couch.WrapError(couch.KindConnection, err, "%s %s timed out", method, path)
		}
		return couch.WrapError(couch.KindConnection, err, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return couch.WrapError(couch.KindConnection, err, "read response for %s %s", method, path)
	}

	c.log.Debugw("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"took", time.Since(start),
	)

	if resp.StatusCode >= 400 {
		return serverError(resp.StatusCode, data)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return couch.WrapError(couch.KindConnection, err, "decode response for %s %s", method, path)
		}
	}
	return nil
}

// couchError is the body the server sends alongside 4xx/5xx statuses.
type couchError struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func serverError(status int, data []byte) error {
	var ce couchError
	_ = json.Unmarshal(data, &ce) // tolerate non-JSON error bodies

	reason := ce.Reason
	if reason == "" {
		reason = ce.Error
	}
	if reason == "" {
		reason = http.StatusText(status)
	}

	return &couch.Error{
		Kind:       kindForStatus(status, ce.Error),
		StatusCode: status,
		Reason:     reason,
	}
}

// kindForStatus maps a server status to an error kind. Callers with
// more context refine the result (a 404 while creating an index means
// the database is missing, a 409 on create-with-id means the document
// already exists).
func kindForStatus(status int, errType string) couch.Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return couch.KindConnection
	case http.StatusNotFound:
		return couch.KindNotFound
	case http.StatusConflict:
		return couch.KindRevisionConflict
	case http.StatusPreconditionFailed:
		if errType == "file_exists" {
			return couch.KindDatabaseExists
		}
		return couch.KindRevisionConflict
	case http.StatusBadRequest:
		if errType == "illegal_database_name" {
			return couch.KindInvalidName
		}
		return couch.KindServer
	default:
		return couch.KindServer
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
