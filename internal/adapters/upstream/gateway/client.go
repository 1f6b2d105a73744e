// Package gateway talks to the sidecar process that hosts the messaging
// platform client. Requests are JSON over HTTP; the login flow and session
// events are websocket streams.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/bnema/zalo-accounts/internal/domain"
	"github.com/bnema/zalo-accounts/internal/ports"
)

const (
	maxResponseBytes      = 8 << 20
	defaultRequestTimeout = 30 * time.Second
	handshakeTimeout      = 10 * time.Second
)

type Config struct {
	BaseURL        string
	Token          string
	RequestTimeout time.Duration
}

type Client struct {
	baseURL        *url.URL
	token          string
	requestTimeout time.Duration
	httpClient     *http.Client
	dialer         *websocket.Dialer
	log            *slog.Logger
}

var _ ports.Upstream = (*Client)(nil)

func New(cfg Config, httpClient *http.Client, log *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway base url is required")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("gateway base url must use http or https")
	}
	if parsed.Host == "" {
		return nil, errors.New("gateway base url host is required")
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	return &Client{
		baseURL:        parsed,
		token:          cfg.Token,
		requestTimeout: cfg.RequestTimeout,
		httpClient:     httpClient,
		dialer:         &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		log:            log.With("component", "gateway"),
	}, nil
}

type loginMessage struct {
	Type    string `json:"type"`
	Image   string `json:"image"`
	Code    string `json:"code"`
	Session string `json:"session"`
	UID     string `json:"uid"`
	Message string `json:"message"`
	ErrCode int    `json:"errorCode"`
}

// Login opens the QR login stream and blocks until the gateway reports a
// session, an error, or ctx ends.
func (c *Client) Login(ctx context.Context, callbacks ports.LoginCallbacks) (ports.UpstreamSession, error) {
	conn, err := c.dial(ctx, "/v1/login/qr")
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, context.Cause(ctx)
			}
			return nil, fmt.Errorf("read login stream: %w", err)
		}

		var msg loginMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("skip malformed login message", "error", err)
			continue
		}

		switch msg.Type {
		case "qr":
			image, err := decodeImage(msg.Image)
			if err != nil {
				c.log.Warn("qr image not decodable, falling back to code", "error", err)
			}
			if callbacks.OnQR != nil {
				callbacks.OnQR(image, msg.Code)
			}
		case "qr_expired":
			if callbacks.OnQRExpired != nil {
				callbacks.OnQRExpired()
			}
		case "success":
			if msg.Session == "" {
				return nil, fmt.Errorf("login success without session: %w", domain.ErrMalformedResponse)
			}
			c.log.Debug("gateway session opened", "session", msg.Session, "uid", msg.UID)
			return &Session{client: c, id: msg.Session, selfID: msg.UID}, nil
		case "error":
			return nil, &domain.UpstreamError{Op: "login", Code: msg.ErrCode, Err: errors.New(msg.Message)}
		default:
			c.log.Debug("ignore login message", "type", msg.Type)
		}
	}
}

// decodeImage accepts a data URL or bare base64 PNG.
func decodeImage(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	if idx := strings.Index(raw, ","); strings.HasPrefix(raw, "data:") && idx >= 0 {
		raw = raw[idx+1:]
	}
	image, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode qr image: %w", err)
	}
	return image, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String()
}

func (c *Client) dial(ctx context.Context, path string) (*websocket.Conn, error) {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status=%d: %w", path, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}
	return conn, nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

// invoke posts params to a session method and returns the envelope's data.
// A response with ok=false becomes a *domain.UpstreamError.
func (c *Client) invoke(ctx context.Context, session, method string, params any) (gjson.Result, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encode %s params: %w", method, err)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	endpoint := c.endpoint("/v1/sessions/" + url.PathEscape(session) + "/" + method)
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("request %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read %s response: %w", method, err)
	}

	if !gjson.ValidBytes(raw) {
		if resp.StatusCode >= http.StatusMultipleChoices {
			return gjson.Result{}, &domain.UpstreamError{Op: method, Err: fmt.Errorf("status %d", resp.StatusCode)}
		}
		return gjson.Result{}, fmt.Errorf("%s response is not json: %w", method, domain.ErrMalformedResponse)
	}

	envelope := gjson.ParseBytes(raw)
	if !envelope.Get("ok").Bool() || resp.StatusCode >= http.StatusMultipleChoices {
		return gjson.Result{}, envelopeError(method, resp.StatusCode, envelope)
	}
	return envelope.Get("data"), nil
}

func envelopeError(method string, status int, envelope gjson.Result) error {
	errField := envelope.Get("error")
	message := errField.Get("message").String()
	if errField.Type == gjson.String {
		message = errField.String()
	}
	if message == "" {
		message = fmt.Sprintf("status %d", status)
	}
	return &domain.UpstreamError{
		Op:   method,
		Code: int(errField.Get("code").Int()),
		Err:  errors.New(message),
	}
}
