package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"

	"tokend/jsonrpc"
	"tokend/jsonx"
	"tokend/keypair"
)

type Config struct {
	// Endpoint is the node's JSON-RPC HTTP endpoint, e.g. http://localhost:9800
	Endpoint string
	// LedgerID must match the node's ledger instance identity; request
	// signatures embed it
	LedgerID string
}

// Client talks JSON-RPC 2.0 over HTTP to a tokend node. jrpc2 only ships a
// server-side HTTP bridge, so the client posts the envelope itself.
type Client struct {
	cfg        Config
	httpClient *http.Client
	nextID     atomic.Uint64
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcErrorBody   `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	body, err := jsonx.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("could not encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc request failed: %w", err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := jsonx.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if result != nil {
		if err := jsonx.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("could not decode result: %w", err)
		}
	}
	return nil
}

// --- Queries ---

// State returns the token metadata and administrative state
func (c *Client) State(ctx context.Context) (*StateInfo, error) {
	var out StateInfo
	if err := c.call(ctx, jsonrpc.MethodTokenState, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Balance returns the balance of addr
func (c *Client) Balance(ctx context.Context, addr string) (*uint256.Int, error) {
	var out amountInfo
	if err := c.call(ctx, jsonrpc.MethodTokenBalance, addressInfo{Address: addr}, &out); err != nil {
		return nil, err
	}
	return uint256.FromDecimal(out.Amount)
}

// Allowance returns the remaining allowance owner has granted spender
func (c *Client) Allowance(ctx context.Context, owner, spender string) (*uint256.Int, error) {
	var out amountInfo
	if err := c.call(ctx, jsonrpc.MethodTokenAllowance, allowanceInfo{Owner: owner, Spender: spender}, &out); err != nil {
		return nil, err
	}
	return uint256.FromDecimal(out.Amount)
}

// Nonce returns the next-expected delegated transfer nonce for addr
func (c *Client) Nonce(ctx context.Context, addr string) (uint64, error) {
	var out nonceInfo
	if err := c.call(ctx, jsonrpc.MethodTokenNonce, addressInfo{Address: addr}, &out); err != nil {
		return 0, err
	}
	return out.Nonce, nil
}

// --- Mutations; each is signed with the caller's key ---

// Transfer moves value from the key's account to recipient, paying the fixed fee
func (c *Client) Transfer(ctx context.Context, kp *keypair.Keypair, to string, value *uint256.Int) (*OpInfo, error) {
	ts := uint64(time.Now().Unix())
	digest := jsonrpc.RequestDigest(jsonrpc.MethodTokenTransfer, c.cfg.LedgerID, to, value.Dec(), jsonrpc.FormatNonce(ts))
	params := map[string]interface{}{
		"to":        to,
		"value":     value.Dec(),
		"timestamp": ts,
		"signature": kp.Sign(digest),
	}
	return c.callOp(ctx, jsonrpc.MethodTokenTransfer, params)
}

// Approve grants spender an allowance over the key's account
func (c *Client) Approve(ctx context.Context, kp *keypair.Keypair, spender string, value *uint256.Int) (*OpInfo, error) {
	ts := uint64(time.Now().Unix())
	digest := jsonrpc.RequestDigest(jsonrpc.MethodTokenApprove, c.cfg.LedgerID, spender, value.Dec(), jsonrpc.FormatNonce(ts))
	params := map[string]interface{}{
		"spender":   spender,
		"value":     value.Dec(),
		"timestamp": ts,
		"signature": kp.Sign(digest),
	}
	return c.callOp(ctx, jsonrpc.MethodTokenApprove, params)
}

// TransferFrom spends the key's allowance on from's account
func (c *Client) TransferFrom(ctx context.Context, kp *keypair.Keypair, from, to string, value *uint256.Int) (*OpInfo, error) {
	ts := uint64(time.Now().Unix())
	digest := jsonrpc.RequestDigest(jsonrpc.MethodTokenTransferFrom, c.cfg.LedgerID, from, to, value.Dec(), jsonrpc.FormatNonce(ts))
	params := map[string]interface{}{
		"from":      from,
		"to":        to,
		"value":     value.Dec(),
		"timestamp": ts,
		"signature": kp.Sign(digest),
	}
	return c.callOp(ctx, jsonrpc.MethodTokenTransferFrom, params)
}

// SubmitDelegated submits a holder-signed delegated transfer, signing the
// envelope with the relayer's key
func (c *Client) SubmitDelegated(ctx context.Context, relayer *keypair.Keypair, to string, value, fee *uint256.Int, nonce uint64, holderSig string) (*OpInfo, error) {
	ts := uint64(time.Now().Unix())
	digest := jsonrpc.RequestDigest(jsonrpc.MethodTokenDelegatedTransfer, c.cfg.LedgerID,
		to, value.Dec(), fee.Dec(), jsonrpc.FormatNonce(nonce), holderSig, jsonrpc.FormatNonce(ts))
	params := map[string]interface{}{
		"to":         to,
		"value":      value.Dec(),
		"fee":        fee.Dec(),
		"nonce":      nonce,
		"holder_sig": holderSig,
		"timestamp":  ts,
		"signature":  relayer.Sign(digest),
	}
	return c.callOp(ctx, jsonrpc.MethodTokenDelegatedTransfer, params)
}

// CreateTokens mints value to the owner account (owner key required)
func (c *Client) CreateTokens(ctx context.Context, kp *keypair.Keypair, value *uint256.Int) (*OpInfo, error) {
	return c.amountOp(ctx, jsonrpc.MethodAdminCreateTokens, kp, value)
}

// BurnTokens destroys value from the owner account (owner key required)
func (c *Client) BurnTokens(ctx context.Context, kp *keypair.Keypair, value *uint256.Int) (*OpInfo, error) {
	return c.amountOp(ctx, jsonrpc.MethodAdminBurnTokens, kp, value)
}

// FreezeTransfers freezes all value movement (owner key required)
func (c *Client) FreezeTransfers(ctx context.Context, kp *keypair.Keypair) (*OpInfo, error) {
	return c.adminOp(ctx, jsonrpc.MethodAdminFreeze, kp)
}

// UnfreezeTransfers re-enables value movement (owner key required)
func (c *Client) UnfreezeTransfers(ctx context.Context, kp *keypair.Keypair) (*OpInfo, error) {
	return c.adminOp(ctx, jsonrpc.MethodAdminUnfreeze, kp)
}

// SetOwner hands ownership to addr (owner key required)
func (c *Client) SetOwner(ctx context.Context, kp *keypair.Keypair, addr string) (*OpInfo, error) {
	return c.identityOp(ctx, jsonrpc.MethodAdminSetOwner, kp, addr)
}

// SetFeeCollector redirects fees to addr (owner key required)
func (c *Client) SetFeeCollector(ctx context.Context, kp *keypair.Keypair, addr string) (*OpInfo, error) {
	return c.identityOp(ctx, jsonrpc.MethodAdminSetFeeCollector, kp, addr)
}

func (c *Client) amountOp(ctx context.Context, method string, kp *keypair.Keypair, value *uint256.Int) (*OpInfo, error) {
	ts := uint64(time.Now().Unix())
	digest := jsonrpc.RequestDigest(method, c.cfg.LedgerID, value.Dec(), jsonrpc.FormatNonce(ts))
	params := map[string]interface{}{
		"value":     value.Dec(),
		"timestamp": ts,
		"signature": kp.Sign(digest),
	}
	return c.callOp(ctx, method, params)
}

func (c *Client) adminOp(ctx context.Context, method string, kp *keypair.Keypair) (*OpInfo, error) {
	ts := uint64(time.Now().Unix())
	digest := jsonrpc.RequestDigest(method, c.cfg.LedgerID, jsonrpc.FormatNonce(ts))
	params := map[string]interface{}{
		"timestamp": ts,
		"signature": kp.Sign(digest),
	}
	return c.callOp(ctx, method, params)
}

func (c *Client) identityOp(ctx context.Context, method string, kp *keypair.Keypair, addr string) (*OpInfo, error) {
	ts := uint64(time.Now().Unix())
	digest := jsonrpc.RequestDigest(method, c.cfg.LedgerID, addr, jsonrpc.FormatNonce(ts))
	params := map[string]interface{}{
		"address":   addr,
		"timestamp": ts,
		"signature": kp.Sign(digest),
	}
	return c.callOp(ctx, method, params)
}

func (c *Client) callOp(ctx context.Context, method string, params interface{}) (*OpInfo, error) {
	var out OpInfo
	if err := c.call(ctx, method, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
