package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// RPCClient is a minimal JSON-RPC transport to the external chain's RPC
// endpoint. The corpus's only chain RPC client (btcd's rpcclient/btcjson) is
// wire-compatible with Bitcoin Core's RPC surface specifically and cannot
// speak this chain's JSON-RPC method set, so this transport is hand-rolled
// over net/http — the one stdlib-only piece of C5 (see DESIGN.md).
type RPCClient struct {
	endpoint string
	http     *http.Client
}

// NewRPCClient builds a client against the chain's RPC endpoint.
func NewRPCClient(endpoint string) *RPCClient {
	return &RPCClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Call issues a single JSON-RPC request and unmarshals the result into out.
func (c *RPCClient) Call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return errors.Wrap(err, "marshal rpc request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build rpc request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "rpc round-trip")
	}
	defer resp.Body.Close()

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return errors.Wrap(err, "decode rpc response")
	}
	if rr.Error != nil {
		return errors.Errorf("rpc error %d: %s", rr.Error.Code, rr.Error.Message)
	}
	if out == nil || len(rr.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rr.Result, out); err != nil {
		return errors.Wrap(err, "unmarshal rpc result")
	}
	return nil
}

// GetRecentBlockhash fetches the blockhash every built transaction is
// stamped with.
func (c *RPCClient) GetRecentBlockhash(ctx context.Context) (string, error) {
	var out struct {
		Blockhash string `json:"blockhash"`
	}
	if err := c.Call(ctx, "getRecentBlockhash", nil, &out); err != nil {
		return "", err
	}
	return out.Blockhash, nil
}

// SubmitTransaction broadcasts a fully-signed, serialized transaction and
// returns its signature.
func (c *RPCClient) SubmitTransaction(ctx context.Context, serializedBase64 string) (string, error) {
	var out struct {
		Signature string `json:"signature"`
	}
	if err := c.Call(ctx, "sendTransaction", []string{serializedBase64}, &out); err != nil {
		return "", err
	}
	return out.Signature, nil
}

// TxStatus reports confirmation state for a previously submitted signature.
func (c *RPCClient) TxStatus(ctx context.Context, signature string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.Call(ctx, "getSignatureStatus", []string{signature}, &out); err != nil {
		return "", err
	}
	if out.Status == "" {
		return "unknown", nil
	}
	return out.Status, nil
}

// GetBalance returns the native balance (lamport-equivalent base units) of
// an address.
func (c *RPCClient) GetBalance(ctx context.Context, address string) (uint64, error) {
	var out struct {
		Value uint64 `json:"value"`
	}
	if err := c.Call(ctx, "getBalance", []string{address}, &out); err != nil {
		return 0, err
	}
	return out.Value, nil
}

// GetTokenBalance returns a token account's balance in base units, used for
// get_breach_balance.
func (c *RPCClient) GetTokenBalance(ctx context.Context, tokenAccount string) (uint64, error) {
	var out struct {
		Amount string `json:"amount"`
	}
	if err := c.Call(ctx, "getTokenAccountBalance", []string{tokenAccount}, &out); err != nil {
		return 0, err
	}
	var amount uint64
	if _, err := fmt.Sscanf(out.Amount, "%d", &amount); err != nil {
		return 0, errors.Wrap(err, "parse token balance")
	}
	return amount, nil
}
