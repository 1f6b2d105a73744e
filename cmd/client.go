package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/zalo-accounts/internal/domain"
)

const apiTimeout = 15 * time.Second

// apiClient queries a running za server.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// serverURL turns a listen address such as ":3001" into a dialable URL.
func serverURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/")
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: serverURL(baseURL), httpClient: &http.Client{Timeout: apiTimeout}}
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("query za server at %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		message := fmt.Sprintf("status %d", resp.StatusCode)
		if env.Error != nil {
			message = env.Error.Message
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w", message, errRemoteNotFound)
		}
		return fmt.Errorf("za server: %s", message)
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func (c *apiClient) accounts(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	if err := c.get(ctx, "/api/accounts", &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *apiClient) job(ctx context.Context, id string) (domain.Job, error) {
	var job domain.Job
	if err := c.get(ctx, "/api/jobs/"+url.PathEscape(id), &job); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}
