package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Provider fetches secrets from an external secret-management service.
// It is consulted only when no environment variable qualifies in a strict
// environment.
type Provider interface {
	FetchSecret(ctx context.Context, name string) (string, error)
}

// HTTPProvider queries a secret-manager HTTP API:
// GET {base}/v1/secrets/{name} returning {"name": ..., "value": ...}.
type HTTPProvider struct {
	client *resty.Client
}

type secretResponse struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewHTTPProvider creates a provider for the service at baseURL. The token,
// when non-empty, is sent as a bearer credential.
func NewHTTPProvider(baseURL, token string) *HTTPProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2)
	if token != "" {
		client.SetAuthToken(token)
	}
	return &HTTPProvider{client: client}
}

// FetchSecret retrieves one secret by name.
func (p *HTTPProvider) FetchSecret(ctx context.Context, name string) (string, error) {
	var result secretResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/v1/secrets/" + name)
	if err != nil {
		return "", fmt.Errorf("secret manager request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("secret manager returned %s for %s", resp.Status(), name)
	}
	if result.Value == "" {
		return "", fmt.Errorf("secret manager returned empty value for %s", name)
	}
	return result.Value, nil
}
