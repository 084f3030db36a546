// Package mint requests NFT mints from an external mint service. Thin
// collaborator: JSON over HTTP, retry policy at the boundary. Transaction
// construction and signing happen inside the service, never here.
package mint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tourmint/tourmint/pkg/metrics"
	"github.com/tourmint/tourmint/pkg/retry"
)

// defaultTimeout bounds a single mint request.
const defaultTimeout = 30 * time.Second

// Request asks the mint service to issue one token.
type Request struct {
	Wallet string `json:"wallet"`
	Name   string `json:"name"`
	Tier   string `json:"tier"` // "builder" or "participant"
}

// Minter issues award tokens to wallets.
type Minter interface {
	// Mint issues a token and returns the service's asset identifier.
	Mint(ctx context.Context, req Request) (string, error)
}

// Option applies a configuration option to the HTTPMinter.
type Option func(*HTTPMinter)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(m *HTTPMinter) {
		if h != nil {
			m.httpc = h
		}
	}
}

// WithRetryPolicy overrides the mint retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(m *HTTPMinter) {
		m.policy = p
	}
}

// WithToken sets a bearer token for the mint service.
func WithToken(token string) Option {
	return func(m *HTTPMinter) {
		m.token = token
	}
}

// HTTPMinter implements Minter against an HTTP mint service.
type HTTPMinter struct {
	endpoint string
	token    string
	httpc    *http.Client
	policy   retry.Policy
}

// New creates a minter posting to endpoint.
func New(endpoint string, opts ...Option) *HTTPMinter {
	m := &HTTPMinter{
		endpoint: endpoint,
		policy:   retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.httpc == nil {
		m.httpc = &http.Client{Timeout: defaultTimeout}
	}
	return m
}

type mintResponse struct {
	AssetID string `json:"assetId"`
	Error   string `json:"error"`
}

// Mint issues one token, retrying transient failures under the policy.
func (m *HTTPMinter) Mint(ctx context.Context, req Request) (string, error) {
	if req.Wallet == "" {
		return "", fmt.Errorf("%w: empty wallet", ErrMintFailed)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMintFailed, err)
	}

	var assetID string
	err = retry.Do(ctx, m.policy,
		func() error {
			id, err := m.post(ctx, body)
			if err != nil {
				return err
			}
			assetID = id
			return nil
		},
		func(error) { metrics.RecordRetry("mint") },
	)
	if err != nil {
		metrics.RecordMintFailed()
		return "", fmt.Errorf("%w: %v", ErrMintFailed, err)
	}

	metrics.RecordMintIssued()
	return assetID, nil
}

func (m *HTTPMinter) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mint service status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var parsed mintResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("mint service: %s", parsed.Error)
	}
	return parsed.AssetID, nil
}
