// Package ledger implements the classifier's ledger port against a
// JSON-RPC node. Retries, if any, belong to callers; this client reports
// each failure once.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tourmint/tourmint/internal/domain/classify"
	"github.com/tourmint/tourmint/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout   = 15 * time.Second
	jsonrpcVersion = "2.0"
	rpcMethod        = "getSignaturesForAddress"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpc = h
		}
	}
}

// Client queries signature history from a JSON-RPC node.
type Client struct {
	endpoint string
	timeout  time.Duration
	httpc    *http.Client
}

// NewClient creates a ledger client for the given RPC endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpc == nil {
		c.httpc = &http.Client{Timeout: c.timeout}
	}
	return c
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcSignature struct {
	Signature string `json:"signature"`
	BlockTime int64  `json:"blockTime"`
}

type rpcResponse struct {
	Result []rpcSignature `json:"result"`
	Error  *rpcError      `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RecentSignatures returns up to limit history entries for address,
// newest first, ordered as the node returned them.
func (c *Client) RecentSignatures(ctx context.Context, address string, limit int) ([]classify.SignatureInfo, error) {
	metrics.RecordLedgerQuery()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: jsonrpcVersion,
		ID:      1,
		Method:  rpcMethod,
		Params:  []interface{}{address, map[string]interface{}{"limit": limit}},
	})
	if err != nil {
		metrics.RecordLedgerError()
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		metrics.RecordLedgerError()
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		metrics.RecordLedgerError()
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordLedgerError()
		return nil, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordLedgerError()
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	var parsed rpcResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		metrics.RecordLedgerError()
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if parsed.Error != nil {
		metrics.RecordLedgerError()
		return nil, fmt.Errorf("%w: %d %s", ErrRPC, parsed.Error.Code, parsed.Error.Message)
	}

	sigs := make([]classify.SignatureInfo, 0, len(parsed.Result))
	for _, s := range parsed.Result {
		sigs = append(sigs, classify.SignatureInfo{
			Signature: s.Signature,
			BlockTime: s.BlockTime,
		})
	}
	return sigs, nil
}
