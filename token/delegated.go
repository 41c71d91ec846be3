package token

import (
	"crypto/sha256"
	"fmt"

	"github.com/holiman/uint256"

	"tokend/config"
	"tokend/keypair"
	"tokend/ledger"
	"tokend/logx"
)

// DelegatedDigest computes the digest a holder signs to authorize a delegated
// transfer. The submitting relayer's identity is part of the signed tuple, so
// a captured signature replayed by any other relayer recovers a different
// signer and dies on that identity's nonce and balance checks. The ledger
// instance identity pins the signature to one deployment.
func DelegatedDigest(ledgerID, relayer, to string, value, fee *uint256.Int, nonce uint64) []byte {
	payload := fmt.Sprintf("%s|%s|%s|%s|%s|%d", ledgerID, relayer, to, value.Dec(), fee.Dec(), nonce)
	sum := sha256.Sum256([]byte(payload))
	return sum[:]
}

// DelegatedTransfer executes a transfer authorized by an off-band signature
// and submitted by relayer, who is compensated with fee on top of the fixed
// fee routed to the fee collector. The recovered signer is the sole
// authorization: whoever the signature recovers to pays.
//
// The per-signer nonce must match the signer's next-expected value exactly;
// nonces are consumed strictly in order and never reused. Alternate compact
// encodings of the same logical signature are not defended against beyond
// this nonce strictness; whether the original design intended that is an
// open question, so it is preserved rather than silently fixed.
func (t *Token) DelegatedTransfer(relayer, to string, value, fee *uint256.Int, nonce uint64, sig string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Frozen {
		return false, nil
	}

	digest := DelegatedDigest(t.ledgerID, relayer, to, value, fee, nonce)
	signer, err := keypair.RecoverSigner(digest, sig)
	if err != nil {
		logx.Warn("TOKEN", fmt.Sprintf("Delegated transfer signature rejected: %v", err))
		return false, nil
	}

	expectedNonce, err := t.ledger.NonceOf(signer)
	if err != nil {
		return false, err
	}
	if nonce != expectedNonce {
		logx.Warn("TOKEN", fmt.Sprintf("Delegated transfer nonce mismatch for %s: expected %d, got %d", signer, expectedNonce, nonce))
		return false, nil
	}

	balance, err := t.ledger.BalanceOf(signer)
	if err != nil {
		return false, err
	}
	running, err := ledger.SafeSub(balance, value)
	if err != nil {
		return false, nil
	}
	running, err = ledger.SafeSub(running, config.TransferFee)
	if err != nil {
		return false, nil
	}
	if _, err := ledger.SafeSub(running, fee); err != nil {
		return false, nil
	}

	total, err := ledger.SafeAdd(value, config.TransferFee)
	if err != nil {
		return false, fmt.Errorf("delegated transfer total overflows: %w", err)
	}
	total, err = ledger.SafeAdd(total, fee)
	if err != nil {
		return false, fmt.Errorf("delegated transfer total overflows: %w", err)
	}

	credits := []ledger.Credit{
		{To: to, Amount: value},
		{To: t.state.FeeCollector, Amount: config.TransferFee},
		{To: relayer, Amount: fee},
	}
	if err := t.ledger.ApplyDebitCredits(signer, total, credits, true); err != nil {
		return false, err
	}

	logx.Info("TOKEN", fmt.Sprintf("Delegated transfer: signer=%s, to=%s, value=%s, tip=%s, relayer=%s, nonce=%d",
		signer, to, value.Dec(), fee.Dec(), relayer, nonce))
	return true, nil
}
