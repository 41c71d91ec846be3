package jsonrpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/holiman/uint256"

	ledgererr "tokend/errors"
	"tokend/interfaces"
	"tokend/keypair"
	"tokend/logx"
	"tokend/monitoring"
	"tokend/ratelimit"
	"tokend/token"
)

// Custom JSON-RPC error codes
const (
	codeInvalidAmount    = -32001
	codeInvalidSignature = -32002
	codeStaleRequest     = -32003
	codeDuplicateRequest = -32004
	codeRateLimited      = -32005
	codeNotOwner         = -32050
	codeInternal         = -32060
)

// envelopeFreshness bounds how far a signed request timestamp may lie from the
// node's clock, in either direction. Signatures accepted inside the window are
// remembered for its duration, so a captured envelope cannot be resubmitted:
// within the window it is a duplicate, beyond it the timestamp is stale.
const envelopeFreshness = 5 * time.Minute

// Server exposes the token ledger entry points over JSON-RPC 2.0 on HTTP.
// Mutating requests are authenticated by a compact signature over the
// request digest; the recovered identity is the caller, the same trust model
// the delegated transfer protocol uses.
type Server struct {
	svc      interfaces.TokenService
	ledgerID string
	limiter  *ratelimit.Limiter
	httpSrv  *http.Server

	seenMu sync.Mutex
	seen   map[string]time.Time
}

// NewServer builds a server over svc. A nil limiter disables throttling.
func NewServer(svc interfaces.TokenService, ledgerID string, limiter *ratelimit.Limiter) *Server {
	return &Server{
		svc:      svc,
		ledgerID: ledgerID,
		limiter:  limiter,
		seen:     make(map[string]time.Time),
	}
}

// Start serves JSON-RPC over HTTP on addr until Stop is called. Prometheus
// metrics are exposed on /metrics of the same listener.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/", jhttp.NewBridge(s.assigner(), nil))
	monitoring.RegisterMetrics(mux)
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}

	logx.Info("RPC", fmt.Sprintf("JSON-RPC server listening on %s", addr))
	err := s.httpSrv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) assigner() handler.Map {
	return handler.Map{
		MethodTokenName:        handler.New(s.handleName),
		MethodTokenSymbol:      handler.New(s.handleSymbol),
		MethodTokenDecimals:    handler.New(s.handleDecimals),
		MethodTokenTotalSupply: handler.New(s.handleTotalSupply),
		MethodTokenState:       handler.New(s.handleState),
		MethodTokenBalance:     handler.New(s.handleBalance),
		MethodTokenAllowance:   handler.New(s.handleAllowance),
		MethodTokenNonce:       handler.New(s.handleNonce),

		MethodTokenApprove:           handler.New(s.handleApprove),
		MethodTokenTransfer:          handler.New(s.handleTransfer),
		MethodTokenTransferFrom:      handler.New(s.handleTransferFrom),
		MethodTokenDelegatedTransfer: handler.New(s.handleDelegatedTransfer),

		MethodAdminCreateTokens:    handler.New(s.handleCreateTokens),
		MethodAdminBurnTokens:      handler.New(s.handleBurnTokens),
		MethodAdminFreeze:          handler.New(s.handleFreeze),
		MethodAdminUnfreeze:        handler.New(s.handleUnfreeze),
		MethodAdminSetOwner:        handler.New(s.handleSetOwner),
		MethodAdminSetFeeCollector: handler.New(s.handleSetFeeCollector),

		MethodHealthCheck: handler.New(s.handleHealthCheck),
	}
}

// --- Params/Results ---

type addressParams struct {
	Address string `json:"address"`
}

type allowanceParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

type stateResult struct {
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     uint8  `json:"decimals"`
	TotalSupply  string `json:"total_supply"`
	Owner        string `json:"owner"`
	FeeCollector string `json:"fee_collector"`
	Frozen       bool   `json:"frozen"`
}

type amountResult struct {
	Amount string `json:"amount"`
}

type nonceResult struct {
	Nonce uint64 `json:"nonce"`
}

type opResult struct {
	Ok     bool   `json:"ok"`
	Caller string `json:"caller,omitempty"`
	Error  string `json:"error,omitempty"`
}

type approveParams struct {
	Spender   string `json:"spender"`
	Value     string `json:"value"`
	Timestamp uint64 `json:"timestamp"`
	Signature string `json:"signature"`
}

type transferParams struct {
	To        string `json:"to"`
	Value     string `json:"value"`
	Timestamp uint64 `json:"timestamp"`
	Signature string `json:"signature"`
}

type transferFromParams struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	Timestamp uint64 `json:"timestamp"`
	Signature string `json:"signature"`
}

type delegatedTransferParams struct {
	To        string `json:"to"`
	Value     string `json:"value"`
	Fee       string `json:"fee"`
	Nonce     uint64 `json:"nonce"`
	HolderSig string `json:"holder_sig"`
	Timestamp uint64 `json:"timestamp"`
	Signature string `json:"signature"`
}

type amountParams struct {
	Value     string `json:"value"`
	Timestamp uint64 `json:"timestamp"`
	Signature string `json:"signature"`
}

type adminParams struct {
	Timestamp uint64 `json:"timestamp"`
	Signature string `json:"signature"`
}

type identityParams struct {
	Address   string `json:"address"`
	Timestamp uint64 `json:"timestamp"`
	Signature string `json:"signature"`
}

type healthResult struct {
	Status string `json:"status"`
	Now    uint64 `json:"now"`
}

// --- Query handlers ---

func (s *Server) handleName(ctx context.Context) (string, error) {
	return s.svc.Name(), nil
}

func (s *Server) handleSymbol(ctx context.Context) (string, error) {
	return s.svc.Symbol(), nil
}

func (s *Server) handleDecimals(ctx context.Context) (uint8, error) {
	return s.svc.Decimals(), nil
}

func (s *Server) handleTotalSupply(ctx context.Context) (*amountResult, error) {
	return &amountResult{Amount: s.svc.TotalSupply().Dec()}, nil
}

func (s *Server) handleState(ctx context.Context) (*stateResult, error) {
	return &stateResult{
		Name:         s.svc.Name(),
		Symbol:       s.svc.Symbol(),
		Decimals:     s.svc.Decimals(),
		TotalSupply:  s.svc.TotalSupply().Dec(),
		Owner:        s.svc.Owner(),
		FeeCollector: s.svc.FeeCollector(),
		Frozen:       s.svc.Frozen(),
	}, nil
}

func (s *Server) handleBalance(ctx context.Context, p addressParams) (*amountResult, error) {
	balance, err := s.svc.BalanceOf(p.Address)
	if err != nil {
		return nil, toRPCError(err)
	}
	return &amountResult{Amount: balance.Dec()}, nil
}

func (s *Server) handleAllowance(ctx context.Context, p allowanceParams) (*amountResult, error) {
	allowance, err := s.svc.AllowanceOf(p.Owner, p.Spender)
	if err != nil {
		return nil, toRPCError(err)
	}
	return &amountResult{Amount: allowance.Dec()}, nil
}

func (s *Server) handleNonce(ctx context.Context, p addressParams) (*nonceResult, error) {
	nonce, err := s.svc.NonceOf(p.Address)
	if err != nil {
		return nil, toRPCError(err)
	}
	return &nonceResult{Nonce: nonce}, nil
}

func (s *Server) handleHealthCheck(ctx context.Context) (*healthResult, error) {
	return &healthResult{Status: "ok", Now: uint64(time.Now().Unix())}, nil
}

// --- Mutation handlers ---

func (s *Server) handleApprove(ctx context.Context, p approveParams) (*opResult, error) {
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, err
	}
	caller, err := s.recoverCaller(MethodTokenApprove, p.Signature, p.Timestamp, p.Spender, p.Value)
	if err != nil {
		return nil, err
	}
	ok, err := s.svc.Approve(caller, p.Spender, value)
	return s.opResult(caller, ok, err)
}

func (s *Server) handleTransfer(ctx context.Context, p transferParams) (*opResult, error) {
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, err
	}
	caller, err := s.recoverCaller(MethodTokenTransfer, p.Signature, p.Timestamp, p.To, p.Value)
	if err != nil {
		return nil, err
	}
	ok, err := s.svc.Transfer(caller, p.To, value)
	return s.opResult(caller, ok, err)
}

func (s *Server) handleTransferFrom(ctx context.Context, p transferFromParams) (*opResult, error) {
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, err
	}
	caller, err := s.recoverCaller(MethodTokenTransferFrom, p.Signature, p.Timestamp, p.From, p.To, p.Value)
	if err != nil {
		return nil, err
	}
	ok, err := s.svc.TransferFrom(caller, p.From, p.To, value)
	return s.opResult(caller, ok, err)
}

func (s *Server) handleDelegatedTransfer(ctx context.Context, p delegatedTransferParams) (*opResult, error) {
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, err
	}
	fee, err := parseAmount(p.Fee)
	if err != nil {
		return nil, err
	}
	relayer, err := s.recoverCaller(MethodTokenDelegatedTransfer, p.Signature, p.Timestamp,
		p.To, p.Value, p.Fee, FormatNonce(p.Nonce), p.HolderSig)
	if err != nil {
		return nil, err
	}
	ok, err := s.svc.DelegatedTransfer(relayer, p.To, value, fee, p.Nonce, p.HolderSig)
	return s.opResult(relayer, ok, err)
}

func (s *Server) handleCreateTokens(ctx context.Context, p amountParams) (*opResult, error) {
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, err
	}
	caller, err := s.recoverCaller(MethodAdminCreateTokens, p.Signature, p.Timestamp, p.Value)
	if err != nil {
		return nil, err
	}
	ok, err := s.svc.CreateTokens(caller, value)
	return s.opResult(caller, ok, err)
}

func (s *Server) handleBurnTokens(ctx context.Context, p amountParams) (*opResult, error) {
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, err
	}
	caller, err := s.recoverCaller(MethodAdminBurnTokens, p.Signature, p.Timestamp, p.Value)
	if err != nil {
		return nil, err
	}
	ok, err := s.svc.BurnTokens(caller, value)
	return s.opResult(caller, ok, err)
}

func (s *Server) handleFreeze(ctx context.Context, p adminParams) (*opResult, error) {
	caller, err := s.recoverCaller(MethodAdminFreeze, p.Signature, p.Timestamp)
	if err != nil {
		return nil, err
	}
	ok, err := s.svc.FreezeTransfers(caller)
	return s.opResult(caller, ok, err)
}

func (s *Server) handleUnfreeze(ctx context.Context, p adminParams) (*opResult, error) {
	caller, err := s.recoverCaller(MethodAdminUnfreeze, p.Signature, p.Timestamp)
	if err != nil {
		return nil, err
	}
	ok, err := s.svc.UnfreezeTransfers(caller)
	return s.opResult(caller, ok, err)
}

func (s *Server) handleSetOwner(ctx context.Context, p identityParams) (*opResult, error) {
	caller, err := s.recoverCaller(MethodAdminSetOwner, p.Signature, p.Timestamp, p.Address)
	if err != nil {
		return nil, err
	}
	ok, err := s.svc.SetOwner(caller, p.Address)
	return s.opResult(caller, ok, err)
}

func (s *Server) handleSetFeeCollector(ctx context.Context, p identityParams) (*opResult, error) {
	caller, err := s.recoverCaller(MethodAdminSetFeeCollector, p.Signature, p.Timestamp, p.Address)
	if err != nil {
		return nil, err
	}
	ok, err := s.svc.SetFeeCollector(caller, p.Address)
	return s.opResult(caller, ok, err)
}

// --- Helpers ---

// recoverCaller authenticates a mutating request: the recovered signer is the
// caller. The signed timestamp is appended to the digest fields, checked
// against the freshness window together with the replay cache, and rate
// limiting is applied per recovered identity.
func (s *Server) recoverCaller(method, sig string, timestamp uint64, fields ...string) (string, error) {
	digest := RequestDigest(method, s.ledgerID, append(fields, FormatNonce(timestamp))...)
	caller, err := keypair.RecoverSigner(digest, sig)
	if err != nil {
		logx.Warn("RPC", fmt.Sprintf("Rejected %s: %v", method, err))
		monitoring.RecordRejectedOp(monitoring.OpInvalidSignature)
		return "", jrpc2.Errorf(codeInvalidSignature, "%s", ledgererr.ErrMsgInvalidSignature)
	}
	if err := s.checkEnvelope(method, sig, timestamp); err != nil {
		return "", err
	}
	if s.limiter != nil && !s.limiter.Allow(caller) {
		logx.Warn("RPC", fmt.Sprintf("Rate limited %s for %s", method, caller))
		monitoring.RecordRejectedOp(monitoring.OpRateLimited)
		return "", jrpc2.Errorf(codeRateLimited, "%s", ledgererr.ErrMsgRateLimited)
	}
	monitoring.RecordRequest(method)
	return caller, nil
}

// checkEnvelope enforces replay protection on an authenticated envelope: the
// signed timestamp must fall within the freshness window, and a signature is
// accepted at most once within it. Expired cache entries are swept on every
// check, so the cache stays bounded by the window's request volume.
func (s *Server) checkEnvelope(method, sig string, timestamp uint64) error {
	now := time.Now()
	age := now.Sub(time.Unix(int64(timestamp), 0))
	if age > envelopeFreshness || age < -envelopeFreshness {
		logx.Warn("RPC", fmt.Sprintf("Stale %s envelope signed at %d", method, timestamp))
		monitoring.RecordRejectedOp(monitoring.OpStaleRequest)
		return jrpc2.Errorf(codeStaleRequest, "%s", ledgererr.ErrMsgStaleRequest)
	}

	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	for key, expiry := range s.seen {
		if now.After(expiry) {
			delete(s.seen, key)
		}
	}
	if _, dup := s.seen[sig]; dup {
		logx.Warn("RPC", fmt.Sprintf("Replayed %s envelope", method))
		monitoring.RecordRejectedOp(monitoring.OpReplayedRequest)
		return jrpc2.Errorf(codeDuplicateRequest, "%s", ledgererr.ErrMsgDuplicateRequest)
	}
	s.seen[sig] = now.Add(envelopeFreshness)
	return nil
}

// opResult maps the token layer's dual failure channel onto the wire: hard
// faults become JSON-RPC errors, soft failures come back as ok=false.
func (s *Server) opResult(caller string, ok bool, err error) (*opResult, error) {
	if err != nil {
		return nil, toRPCError(err)
	}
	monitoring.RecordOpOutcome(ok)
	if !ok {
		monitoring.RecordRejectedOp(monitoring.OpRefused)
		return &opResult{Ok: false, Caller: caller, Error: "operation rejected"}, nil
	}
	return &opResult{Ok: true, Caller: caller}, nil
}

func parseAmount(raw string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(raw)
	if err != nil {
		monitoring.RecordRejectedOp(monitoring.OpInvalidAmount)
		return nil, jrpc2.Errorf(codeInvalidAmount, "%s", ledgererr.ErrMsgInvalidAmount)
	}
	return amount, nil
}

func toRPCError(err error) error {
	if errors.Is(err, token.ErrNotOwner) {
		monitoring.RecordRejectedOp(monitoring.OpNotOwner)
		return jrpc2.Errorf(codeNotOwner, "%s", ledgererr.ErrMsgNotOwner).
			WithData(ledgererr.NewLedgerError(ledgererr.ErrCodeNotOwner, ledgererr.ErrMsgNotOwner))
	}
	logx.Error("RPC", "Internal error:", err.Error())
	return jrpc2.Errorf(codeInternal, "%s", ledgererr.ErrMsgInternalError)
}
