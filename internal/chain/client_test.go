package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testHash = "0x9a5cfc84b1f32f968da25018f7d387d7fb026be74e2a2cf83a35f53bd2a710b0"

// rpcServer fakes a JSON-RPC node returning a fixed result for every call.
func rpcServer(t *testing.T, result string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request: %v", err)
			return
		}
		if req.Method != "eth_getTransactionReceipt" {
			t.Errorf("unexpected method %s", req.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.ID, result)
	}))
}

func rpcErrorServer(message string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32000,"message":%q}}`, req.ID, message)
	}))
}

func TestTransactionReceipt(t *testing.T) {
	server := rpcServer(t, `{
		"status": "0x1",
		"from": "0x5b38da6a701c568545dcfcb03fcb875f56beddc4",
		"to": "0xf0dcc0c62587804d9c49b075d24725a9a6ea2c6e",
		"blockNumber": "0x1a2b3c",
		"transactionHash": "`+testHash+`",
		"gasUsed": "0x5208",
		"logs": [{
			"address": "0xf0dcc0c62587804d9c49b075d24725a9a6ea2c6e",
			"topics": ["0x4aa351061f13d3dff9e0f6cab4811de6a51a2f94e424b21ce31914f1e99c17bc"],
			"data": "0x"
		}]
	}`)
	defer server.Close()

	client, err := NewClient(context.Background(), server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	receipt, err := client.TransactionReceipt(context.Background(), testHash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt == nil {
		t.Fatalf("expected receipt, got nil")
	}
	if !receipt.Succeeded() {
		t.Fatalf("receipt should report success")
	}
	if receipt.To != "0xf0dcc0c62587804d9c49b075d24725a9a6ea2c6e" {
		t.Fatalf("to mismatch: %s", receipt.To)
	}
	if receipt.BlockNumberUint() != 0x1a2b3c {
		t.Fatalf("block number mismatch: %d", receipt.BlockNumberUint())
	}
	if len(receipt.Logs) != 1 || len(receipt.Logs[0].Topics) != 1 {
		t.Fatalf("logs mismatch: %+v", receipt.Logs)
	}
}

func TestTransactionReceiptNotMined(t *testing.T) {
	server := rpcServer(t, "null")
	defer server.Close()

	client, err := NewClient(context.Background(), server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	receipt, err := client.TransactionReceipt(context.Background(), testHash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt != nil {
		t.Fatalf("unmined tx must yield nil receipt, got %+v", receipt)
	}
}

func TestTransactionReceiptNodeError(t *testing.T) {
	server := rpcErrorServer("header not found")
	defer server.Close()

	client, err := NewClient(context.Background(), server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	_, err = client.TransactionReceipt(context.Background(), testHash)
	if err == nil {
		t.Fatalf("expected error")
	}
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *RPCError, got %T", err)
	}
}

func TestPoolReusesClients(t *testing.T) {
	server := rpcServer(t, "null")
	defer server.Close()

	pool := NewPool(5 * time.Second)
	defer pool.Close()

	for i := 0; i < 3; i++ {
		if _, err := pool.TransactionReceipt(context.Background(), server.URL, testHash); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	pool.mu.Lock()
	cached := len(pool.clients)
	pool.mu.Unlock()
	if cached != 1 {
		t.Fatalf("expected one cached client, got %d", cached)
	}
}

func TestRPCErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &RPCError{Message: "eth_getTransactionReceipt", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatalf("unwrap broken")
	}
	if err.Error() != "eth_getTransactionReceipt: boom" {
		t.Fatalf("message mismatch: %s", err.Error())
	}
}
