package chain

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"paygate/internal/model"
)

// RPCError wraps a node-side or transport-level JSON-RPC failure. The
// underlying error never reaches API responses; callers surface Message.
type RPCError struct {
	Message string
	Err     error
}

func (e *RPCError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *RPCError) Unwrap() error { return e.Err }

// Client wraps a go-ethereum RPC client for a single endpoint.
type Client struct {
	rpcClient *rpc.Client
}

// NewClient dials the RPC endpoint. Requests share a bounded HTTP timeout
// since public nodes can hang well past useful limits.
func NewClient(ctx context.Context, rpcURL string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rpcClient, err := rpc.DialOptions(ctx, rpcURL, rpc.WithHTTPClient(&http.Client{Timeout: timeout}))
	if err != nil {
		return nil, &RPCError{Message: "dial rpc endpoint", Err: err}
	}
	return &Client{rpcClient: rpcClient}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// TransactionReceipt fetches the raw receipt for a tx hash. A nil receipt
// with nil error means the transaction is not yet mined. No retries happen
// here; retry policy belongs to the caller, which knows whether a missing
// receipt is worth waiting for.
func (c *Client) TransactionReceipt(ctx context.Context, txHash string) (*model.Receipt, error) {
	var receipt *model.Receipt
	if err := c.rpcClient.CallContext(ctx, &receipt, "eth_getTransactionReceipt", txHash); err != nil {
		return nil, &RPCError{Message: "eth_getTransactionReceipt", Err: err}
	}
	return receipt, nil
}

// Pool lazily dials and caches one Client per endpoint URL so concurrent
// verifications on the same network share a connection.
type Pool struct {
	timeout time.Duration

	mu      sync.Mutex
	clients map[string]*Client
}

// NewPool builds an empty client pool.
func NewPool(timeout time.Duration) *Pool {
	return &Pool{
		timeout: timeout,
		clients: make(map[string]*Client),
	}
}

// TransactionReceipt fetches a receipt through the pooled client for the URL.
func (p *Pool) TransactionReceipt(ctx context.Context, rpcURL, txHash string) (*model.Receipt, error) {
	client, err := p.client(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return client.TransactionReceipt(ctx, txHash)
}

func (p *Pool) client(ctx context.Context, rpcURL string) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[rpcURL]; ok {
		return client, nil
	}
	client, err := NewClient(ctx, rpcURL, p.timeout)
	if err != nil {
		return nil, err
	}
	p.clients[rpcURL] = client
	return client, nil
}

// Close closes all pooled clients.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, client := range p.clients {
		client.Close()
	}
	p.clients = make(map[string]*Client)
}
