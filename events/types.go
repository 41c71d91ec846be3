package events

import (
	"time"

	"github.com/holiman/uint256"
)

// EventType is an enum-like string type for token ledger events
type EventType string

const (
	EventTransferOccurred  EventType = "TransferOccurred"
	EventTokensMinted      EventType = "TokensMinted"
	EventTokensBurned      EventType = "TokensBurned"
	EventTransfersFrozen   EventType = "TransfersFrozen"
	EventTransfersUnfrozen EventType = "TransfersUnfrozen"
)

// TokenEvent represents any observable notification emitted by the ledger
type TokenEvent interface {
	Type() EventType
	Timestamp() time.Time
}

// TransferOccurred is emitted once per ledger movement. A delegated transfer
// emits up to three of these, each sourced at the original signer.
type TransferOccurred struct {
	from      string
	to        string
	amount    *uint256.Int
	timestamp time.Time
}

func NewTransferOccurred(from, to string, amount *uint256.Int) *TransferOccurred {
	return &TransferOccurred{
		from:      from,
		to:        to,
		amount:    new(uint256.Int).Set(amount),
		timestamp: time.Now(),
	}
}

func (e *TransferOccurred) Type() EventType {
	return EventTransferOccurred
}

func (e *TransferOccurred) Timestamp() time.Time {
	return e.timestamp
}

func (e *TransferOccurred) From() string {
	return e.from
}

func (e *TransferOccurred) To() string {
	return e.to
}

func (e *TransferOccurred) Amount() *uint256.Int {
	return e.amount
}

// TokensMinted is emitted when supply is issued to the owner. The source
// account is empty: minted value comes from nowhere.
type TokensMinted struct {
	to        string
	amount    *uint256.Int
	timestamp time.Time
}

func NewTokensMinted(to string, amount *uint256.Int) *TokensMinted {
	return &TokensMinted{
		to:        to,
		amount:    new(uint256.Int).Set(amount),
		timestamp: time.Now(),
	}
}

func (e *TokensMinted) Type() EventType {
	return EventTokensMinted
}

func (e *TokensMinted) Timestamp() time.Time {
	return e.timestamp
}

func (e *TokensMinted) To() string {
	return e.to
}

func (e *TokensMinted) Amount() *uint256.Int {
	return e.amount
}

// TokensBurned is emitted when supply is destroyed from the owner's balance.
// The destination account is empty: burned value goes nowhere.
type TokensBurned struct {
	from      string
	amount    *uint256.Int
	timestamp time.Time
}

func NewTokensBurned(from string, amount *uint256.Int) *TokensBurned {
	return &TokensBurned{
		from:      from,
		amount:    new(uint256.Int).Set(amount),
		timestamp: time.Now(),
	}
}

func (e *TokensBurned) Type() EventType {
	return EventTokensBurned
}

func (e *TokensBurned) Timestamp() time.Time {
	return e.timestamp
}

func (e *TokensBurned) From() string {
	return e.from
}

func (e *TokensBurned) Amount() *uint256.Int {
	return e.amount
}

// TransfersFrozen is emitted when the owner flips the freeze switch on
type TransfersFrozen struct {
	timestamp time.Time
}

func NewTransfersFrozen() *TransfersFrozen {
	return &TransfersFrozen{timestamp: time.Now()}
}

func (e *TransfersFrozen) Type() EventType {
	return EventTransfersFrozen
}

func (e *TransfersFrozen) Timestamp() time.Time {
	return e.timestamp
}

// TransfersUnfrozen is emitted when the owner flips the freeze switch off
type TransfersUnfrozen struct {
	timestamp time.Time
}

func NewTransfersUnfrozen() *TransfersUnfrozen {
	return &TransfersUnfrozen{timestamp: time.Now()}
}

func (e *TransfersUnfrozen) Type() EventType {
	return EventTransfersUnfrozen
}

func (e *TransfersUnfrozen) Timestamp() time.Time {
	return e.timestamp
}
