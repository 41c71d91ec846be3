package keypair

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"tokend/common"
)

// Limits to prevent DoS via oversized inputs
const (
	maxSignatureBase58Len = 512

	// compactSigLen is the length of a compact ECDSA signature: one recovery
	// byte followed by the 32-byte R and S values.
	compactSigLen = 65
)

var (
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidPrivateKey = errors.New("invalid private key")
)

// Keypair holds a secp256k1 private key together with its derived address.
type Keypair struct {
	PrivateKey *secp256k1.PrivateKey
	Address    string
}

// Generate creates a fresh random keypair.
func Generate() (*Keypair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return &Keypair{
		PrivateKey: priv,
		Address:    AddressFromPubKey(priv.PubKey()),
	}, nil
}

// FromHex restores a keypair from a hex-encoded 32-byte private key.
func FromHex(hexKey string) (*Keypair, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("%w: expected 32 bytes, got %d", ErrInvalidPrivateKey, len(raw))
	}
	priv := secp256k1.PrivKeyFromBytes(raw)
	return &Keypair{
		PrivateKey: priv,
		Address:    AddressFromPubKey(priv.PubKey()),
	}, nil
}

// FromFile restores a keypair from a file holding the hex-encoded private key.
func FromFile(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read key file: %w", err)
	}
	return FromHex(string(data))
}

// HexKey returns the hex encoding of the private key.
func (kp *Keypair) HexKey() string {
	return hex.EncodeToString(kp.PrivateKey.Serialize())
}

// Sign produces a base58-encoded compact signature over digest. The compact
// form carries the recovery byte, so the signer's public key (and therefore
// its address) can be recovered from the signature alone.
func (kp *Keypair) Sign(digest []byte) string {
	sig := ecdsa.SignCompact(kp.PrivateKey, digest, true)
	return common.EncodeBytesToBase58(sig)
}

// AddressFromPubKey derives the ledger address of a public key: the base58
// encoding of its 33-byte compressed serialization.
func AddressFromPubKey(pub *secp256k1.PublicKey) string {
	return common.EncodeBytesToBase58(pub.SerializeCompressed())
}

// RecoverSigner recovers the address whose key produced sig over digest.
// Recovery failure is reported as an error and never as a usable identity,
// so an invalid signature cannot be mistaken for a valid zero-value signer.
func RecoverSigner(digest []byte, sig string) (string, error) {
	if sig == "" {
		return "", ErrInvalidSignature
	}
	if len(sig) > maxSignatureBase58Len {
		return "", fmt.Errorf("%w: signature too large", ErrInvalidSignature)
	}

	raw, err := common.DecodeBase58ToBytes(sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(raw) != compactSigLen {
		return "", fmt.Errorf("%w: bad length %d", ErrInvalidSignature, len(raw))
	}

	pub, _, err := ecdsa.RecoverCompact(raw, digest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return AddressFromPubKey(pub), nil
}

// ValidAddress reports whether addr decodes to a parseable compressed public key.
func ValidAddress(addr string) bool {
	raw, err := common.DecodeBase58ToBytes(addr)
	if err != nil {
		return false
	}
	if len(raw) != 33 {
		return false
	}
	_, err = secp256k1.ParsePubKey(raw)
	return err == nil
}
