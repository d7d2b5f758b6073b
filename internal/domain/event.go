package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind identifies a state transition of the core.
type EventKind string

const (
	EventAnnouncement      EventKind = "announcement"
	EventCollateralRateSet EventKind = "collateral_rate_set"
	EventClaimPeriodSet    EventKind = "claim_period_set"
	EventClaimPrepared     EventKind = "claim_prepared"
	EventClaimDeclared     EventKind = "claim_declared"
	EventClaimCleared      EventKind = "claim_cleared"
	EventClaimDeleted      EventKind = "claim_deleted"
	EventClaimResolved     EventKind = "claim_resolved"
	EventTokensWrapped     EventKind = "tokens_wrapped"
	EventTokensUnwrapped   EventKind = "tokens_unwrapped"
	EventTokensBurned      EventKind = "tokens_burned"
	EventTransfer          EventKind = "transfer"
	EventOfferCreated      EventKind = "offer_created"
	EventOfferReplaced     EventKind = "offer_replaced"
	EventVoteCast          EventKind = "vote_cast"
	EventOfferCompleted    EventKind = "offer_completed"
	EventOfferCancelled    EventKind = "offer_cancelled"
	EventOfferFailed       EventKind = "offer_failed"
	EventMigrated          EventKind = "migrated"
)

// Event is the structured record emitted by every state transition. It is
// consumed by off-process monitoring (journal, bus, websocket feed,
// notifications), never by the core itself.
type Event struct {
	ID        string         `json:"id"`
	Kind      EventKind      `json:"kind"`
	Token     common.Address `json:"token"`              // emitting token/registry
	Actor     common.Address `json:"actor"`              // transaction principal
	Subject   common.Address `json:"subject"`  // counterparty / target
	Currency  common.Address `json:"currency"` // settlement currency, when relevant
	Amount    *big.Int       `json:"amount,omitempty"`
	Price     *big.Int       `json:"price,omitempty"`
	Reason    string         `json:"reason,omitempty"` // human-readable outcome, e.g. contest verdicts
	Timestamp time.Time      `json:"timestamp"`
}

// EventSink receives events synchronously as transitions commit. A nil-safe
// fan-out implementation lives in internal/events.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(Event)

// Emit implements EventSink.
func (f EventSinkFunc) Emit(ev Event) { f(ev) }

// NopSink discards all events. Core components accept it when no observer
// pipeline is wired, e.g. in tests.
var NopSink EventSink = EventSinkFunc(func(Event) {})
