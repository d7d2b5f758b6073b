// Package draggable implements the wrapper token: a derivative 1:1 backed by
// escrowed equity, carrying the drag-along acquisition lifecycle, vote
// reconciliation on transfer, and the migration gateway to a successor.
package draggable

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/acquisition"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/ledger"
)

// Contest verdicts carried on the offer_failed event.
const (
	ReasonExpired     = "Offer expired"
	ReasonNoSupport   = "Not enough support."
	ReasonUnderfunded = "Offer was not sufficiently funded."
)

// Config carries the acquisition policy of a wrapper instance.
type Config struct {
	// MinEquityPercent is the minimum share of the underlying's registered
	// equity the wrapper must escrow before an offer may be initiated.
	MinEquityPercent int64
	// MinStakePercent is the minimum wrapper stake of an offering buyer.
	MinStakePercent int64
	// ReplacementPremiumPercent is the price floor of a replacement offer
	// relative to the pending one, in percent (105 = at least 5% higher).
	ReplacementPremiumPercent int64
	// Voting holds the offer timing bounds.
	Voting acquisition.Params
}

// DefaultConfig are the observed production parameters.
func DefaultConfig() Config {
	return Config{
		MinEquityPercent:          30,
		MinStakePercent:           5,
		ReplacementPremiumPercent: 105,
		Voting:                    acquisition.DefaultParams(),
	}
}

// Token is the wrapper. Its internal balances live on an owned ledger whose
// transfer observer keeps the pending offer's tallies aligned; the escrowed
// underlying and, after completion, the settlement consideration are held
// under the wrapper's own address.
type Token struct {
	mu sync.Mutex

	balances   *ledger.Ledger
	underlying domain.BurnableToken
	currency   domain.Token
	addr       common.Address
	cfg        Config

	offer         *acquisition.Offer
	acquired      bool
	acceptedPrice *big.Int

	now    func() time.Time
	events domain.EventSink
}

// New creates a wrapper over underlying settling in currency. addr is the
// wrapper's escrow principal on both collaborating ledgers. The underlying
// must be burnable: retiring wrapped units retires the escrowed equity too.
func New(name, symbol string, addr common.Address, underlying domain.BurnableToken, currency domain.Token, cfg Config, events domain.EventSink) *Token {
	if events == nil {
		events = domain.NopSink
	}
	t := &Token{
		underlying: underlying,
		currency:   currency,
		addr:       addr,
		cfg:        cfg,
		now:        time.Now,
		events:     events,
	}
	t.balances = ledger.New(ledger.Config{
		Name:    name,
		Symbol:  symbol,
		Address: addr,
		Owner:   addr,
	}, domain.NopSink)
	t.balances.SetObserver(t.reconcile)
	return t
}

// SetNow overrides the clock. Test hook.
func (t *Token) SetNow(now func() time.Time) { t.now = now }

// Address implements domain.Token.
func (t *Token) Address() common.Address { return t.addr }

// Name returns the wrapper token name.
func (t *Token) Name() string { return t.balances.Name() }

// Symbol returns the wrapper token symbol.
func (t *Token) Symbol() string { return t.balances.Symbol() }

// Holders returns a copy of all non-zero wrapper balances.
func (t *Token) Holders() map[common.Address]*big.Int {
	return t.balances.Holders()
}

// BalanceOf implements domain.Token.
func (t *Token) BalanceOf(account common.Address) *big.Int {
	return t.balances.BalanceOf(account)
}

// TotalSupply implements domain.Token. While no acquisition has completed it
// equals the escrowed underlying total.
func (t *Token) TotalSupply() *big.Int {
	return t.balances.TotalSupply()
}

// Acquired reports whether an acquisition has completed. The flag is
// monotonic; once set, wrapping and new offers are blocked forever.
func (t *Token) Acquired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acquired
}

// AcceptedPrice returns the completed acquisition's price per unit, or nil.
func (t *Token) AcceptedPrice() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.acceptedPrice == nil {
		return nil
	}
	return new(big.Int).Set(t.acceptedPrice)
}

// Offer returns a snapshot of the pending offer, if any.
func (t *Token) Offer() (domain.OfferSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.offer == nil {
		return domain.OfferSnapshot{}, false
	}
	return t.offer.Snapshot(domain.OfferStatusPending), true
}

// Transfer implements domain.Token. Vote weight follows the balance through
// the ledger observer.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.balances.Transfer(from, to, amount); err != nil {
		return err
	}
	t.events.Emit(domain.Event{
		Kind:    domain.EventTransfer,
		Token:   t.addr,
		Actor:   from,
		Subject: to,
		Amount:  new(big.Int).Set(amount),
	})
	return nil
}

// Approve implements domain.Token.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) error {
	return t.balances.Approve(owner, spender, amount)
}

// Allowance implements domain.Token.
func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	return t.balances.Allowance(owner, spender)
}

// TransferFrom implements domain.Token.
func (t *Token) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances.TransferFrom(spender, from, to, amount)
}

// Recover implements domain.RecoverableToken, letting a claim registry cover
// wrapped balances. Reconciliation removes any vote weight the lost address
// had recorded.
func (t *Token) Recover(target, to common.Address) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances.Recover(target, to)
}

// Wrap pulls amount of the underlying from caller via allowance and credits
// holder 1:1. Blocked once acquired and while an offer is pending, so the
// voting base cannot be diluted mid-vote.
func (t *Token) Wrap(caller, holder common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.acquired {
		return fmt.Errorf("draggable: wrap: %w", domain.ErrNotActive)
	}
	if t.offer != nil {
		return fmt.Errorf("draggable: wrap: %w", domain.ErrPendingOffer)
	}
	if t.underlying.BalanceOf(caller).Cmp(amount) < 0 {
		return fmt.Errorf("draggable: wrap: %w", domain.ErrShareBalanceInsufficient)
	}
	if t.underlying.Allowance(caller, t.addr).Cmp(amount) < 0 {
		return fmt.Errorf("draggable: wrap: %w", domain.ErrShareAllowanceInsufficient)
	}
	if err := t.underlying.TransferFrom(t.addr, caller, t.addr, amount); err != nil {
		return fmt.Errorf("draggable: wrap: escrow underlying: %w", err)
	}
	if err := t.balances.Mint(t.addr, holder, amount); err != nil {
		return fmt.Errorf("draggable: wrap: mint: %w", err)
	}
	t.events.Emit(domain.Event{
		Kind:    domain.EventTokensWrapped,
		Token:   t.addr,
		Actor:   caller,
		Subject: holder,
		Amount:  new(big.Int).Set(amount),
	})
	return nil
}

// Unwrap redeems amount of wrapper balance for the accepted consideration
// after a completed acquisition. Each unit pays the accepted price from the
// settlement escrow collected at completion.
func (t *Token) Unwrap(caller common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.acquired {
		return fmt.Errorf("draggable: unwrap: %w", domain.ErrNotAcquired)
	}
	if t.balances.BalanceOf(caller).Cmp(amount) < 0 {
		return fmt.Errorf("draggable: unwrap: %w", domain.ErrBalanceInsufficient)
	}
	payout := new(big.Int).Mul(amount, t.acceptedPrice)
	if err := t.currency.Transfer(t.addr, caller, payout); err != nil {
		return fmt.Errorf("draggable: unwrap: pay consideration: %w", err)
	}
	if err := t.balances.Burn(caller, amount); err != nil {
		return fmt.Errorf("draggable: unwrap: burn: %w", err)
	}
	t.events.Emit(domain.Event{
		Kind:   domain.EventTokensUnwrapped,
		Token:  t.addr,
		Actor:  caller,
		Amount: new(big.Int).Set(amount),
		Price:  new(big.Int).Set(t.acceptedPrice),
	})
	return nil
}

// Burn permanently retires amount of caller's wrapper balance together with
// the matching escrowed underlying, shrinking both supplies. Available at
// any time; after an acquisition there is no underlying escrow left, so only
// the wrapper balance is destroyed and any payout entitlement is forfeited.
func (t *Token) Burn(caller common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.balances.BalanceOf(caller).Cmp(amount) < 0 {
		return fmt.Errorf("draggable: burn: %w", domain.ErrBalanceInsufficient)
	}
	if err := t.balances.Burn(caller, amount); err != nil {
		return fmt.Errorf("draggable: burn: %w", err)
	}
	if !t.acquired {
		if err := t.underlying.Burn(t.addr, amount); err != nil {
			return fmt.Errorf("draggable: burn underlying: %w", err)
		}
	}
	t.events.Emit(domain.Event{
		Kind:   domain.EventTokensBurned,
		Token:  t.addr,
		Actor:  caller,
		Amount: new(big.Int).Set(amount),
	})
	return nil
}

// InitiateAcquisition opens an offer at pricePerUnit, or replaces the
// pending one at a premium. Preconditions, in order: no completed
// acquisition, enough equity escrowed, a minimum caller stake, full funding
// of price times supply, and — when replacing — the configured premium over
// the pending price. The displaced offer's votes are discarded.
func (t *Token) InitiateAcquisition(caller common.Address, pricePerUnit *big.Int) (domain.OfferSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.acquired {
		return domain.OfferSnapshot{}, fmt.Errorf("draggable: initiate: %w", domain.ErrOfferAlreadyAccepted)
	}
	if pricePerUnit == nil || pricePerUnit.Sign() <= 0 {
		return domain.OfferSnapshot{}, fmt.Errorf("draggable: initiate: price must be positive")
	}

	supply := t.balances.TotalSupply()
	if !t.enoughEquityRepresented(supply) {
		return domain.OfferSnapshot{}, fmt.Errorf("draggable: initiate: %w", domain.ErrEquityNotRepresented)
	}

	stake := new(big.Int).Mul(t.balances.BalanceOf(caller), big.NewInt(100))
	floor := new(big.Int).Mul(supply, big.NewInt(t.cfg.MinStakePercent))
	if stake.Cmp(floor) < 0 {
		return domain.OfferSnapshot{}, fmt.Errorf("draggable: initiate: %w", domain.ErrInsufficientStake)
	}

	if !t.funded(caller, pricePerUnit, supply) {
		return domain.OfferSnapshot{}, fmt.Errorf("draggable: initiate: %w", domain.ErrInsufficientFunding)
	}

	replaced := t.offer
	if replaced != nil {
		offered := new(big.Int).Mul(pricePerUnit, big.NewInt(100))
		required := new(big.Int).Mul(replaced.Price(), big.NewInt(t.cfg.ReplacementPremiumPercent))
		if offered.Cmp(required) < 0 {
			return domain.OfferSnapshot{}, fmt.Errorf("draggable: initiate: %w", domain.ErrOfferNotHighEnough)
		}
	}

	now := t.now()
	t.offer = acquisition.NewOffer(uuid.NewString(), caller, pricePerUnit, t.currency.Address(), now, t.cfg.Voting)

	kind := domain.EventOfferCreated
	if replaced != nil {
		kind = domain.EventOfferReplaced
	}
	t.events.Emit(domain.Event{
		Kind:      kind,
		Token:     t.addr,
		Actor:     caller,
		Currency:  t.currency.Address(),
		Price:     new(big.Int).Set(pricePerUnit),
		Timestamp: now,
	})
	return t.offer.Snapshot(domain.OfferStatusPending), nil
}

// VoteYes casts caller's live balance in favour of the pending offer.
func (t *Token) VoteYes(caller common.Address) error { return t.vote(caller, true) }

// VoteNo casts caller's live balance against the pending offer.
func (t *Token) VoteNo(caller common.Address) error { return t.vote(caller, false) }

func (t *Token) vote(caller common.Address, yes bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.offer == nil {
		return fmt.Errorf("draggable: vote: %w", domain.ErrNoPendingOffer)
	}
	weight := t.balances.BalanceOf(caller)
	t.offer.RecordVote(caller, weight, yes)
	side := "no"
	if yes {
		side = "yes"
	}
	t.events.Emit(domain.Event{
		Kind:   domain.EventVoteCast,
		Token:  t.addr,
		Actor:  caller,
		Amount: weight,
		Reason: side,
	})
	return nil
}

// CompleteAcquisition settles the pending offer: the buyer pays price times
// supply into the wrapper's settlement escrow, receives every escrowed
// underlying unit, and the acquired flag is set for good. Funding is
// re-verified at call time because it can erode after initiation.
func (t *Token) CompleteAcquisition(caller common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.offer == nil {
		return fmt.Errorf("draggable: complete: %w", domain.ErrNoPendingOffer)
	}
	if caller != t.offer.Buyer() {
		return fmt.Errorf("draggable: complete: %w", domain.ErrUnauthorized)
	}
	supply := t.balances.TotalSupply()
	now := t.now()
	if !t.offer.AbsoluteYes(supply) && !t.offer.RelativeYes(now) {
		return fmt.Errorf("draggable: complete: %w", domain.ErrInsufficientYesVotes)
	}
	price := t.offer.Price()
	if !t.funded(caller, price, supply) {
		return fmt.Errorf("draggable: complete: %w", domain.ErrOfferInsufficientlyFunded)
	}

	total := new(big.Int).Mul(price, supply)
	if err := t.currency.TransferFrom(t.addr, caller, t.addr, total); err != nil {
		return fmt.Errorf("draggable: complete: collect consideration: %w", err)
	}
	escrow := t.underlying.BalanceOf(t.addr)
	if err := t.underlying.Transfer(t.addr, caller, escrow); err != nil {
		return fmt.Errorf("draggable: complete: hand over equity: %w", err)
	}

	t.acquired = true
	t.acceptedPrice = price
	t.offer = nil

	t.events.Emit(domain.Event{
		Kind:      domain.EventOfferCompleted,
		Token:     t.addr,
		Actor:     caller,
		Currency:  t.currency.Address(),
		Amount:    total,
		Price:     price,
		Timestamp: now,
	})
	return nil
}

// CancelAcquisition lets the buyer withdraw the pending offer at any time
// before completion.
func (t *Token) CancelAcquisition(caller common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.offer == nil {
		return fmt.Errorf("draggable: cancel: %w", domain.ErrNoPendingOffer)
	}
	if caller != t.offer.Buyer() {
		return fmt.Errorf("draggable: cancel: %w", domain.ErrUnauthorized)
	}
	buyer := t.offer.Buyer()
	t.offer = nil
	t.events.Emit(domain.Event{
		Kind:  domain.EventOfferCancelled,
		Token: t.addr,
		Actor: buyer,
	})
	return nil
}

// ContestAcquisition lets anyone clear an offer that can no longer succeed:
// it has expired, the no side has made the absolute quorum unreachable, the
// voting window closed without a relative majority, or the buyer's funding
// no longer covers the consideration. The emitted event carries the verdict.
func (t *Token) ContestAcquisition(caller common.Address) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.offer == nil {
		return "", fmt.Errorf("draggable: contest: %w", domain.ErrNoPendingOffer)
	}
	now := t.now()
	supply := t.balances.TotalSupply()

	var reason string
	switch {
	case t.offer.Expired(now):
		reason = ReasonExpired
	case t.offer.FailedAbsolutely(supply):
		reason = ReasonNoSupport
	case t.offer.FailedRelatively(now):
		reason = ReasonNoSupport
	case !t.funded(t.offer.Buyer(), t.offer.Price(), supply):
		reason = ReasonUnderfunded
	default:
		return "", fmt.Errorf("draggable: contest: %w", domain.ErrContestUnsuccessful)
	}

	buyer := t.offer.Buyer()
	t.offer = nil
	t.events.Emit(domain.Event{
		Kind:      domain.EventOfferFailed,
		Token:     t.addr,
		Actor:     caller,
		Subject:   buyer,
		Reason:    reason,
		Timestamp: now,
	})
	return reason, nil
}

// Migrate hands the wrapper's escrowed underlying to a successor contract
// that has gathered a strict majority of the wrapper supply, and retires the
// successor's self-held balance so it is not double counted. Meaningless
// once acquired: the escrow already moved to the buyer.
func (t *Token) Migrate(successor common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.acquired {
		return fmt.Errorf("draggable: migrate: %w", domain.ErrNotActive)
	}
	held := t.balances.BalanceOf(successor)
	supply := t.balances.TotalSupply()
	if new(big.Int).Lsh(held, 1).Cmp(supply) <= 0 {
		return fmt.Errorf("draggable: migrate: %w", domain.ErrQuorumNotReached)
	}

	escrow := t.underlying.BalanceOf(t.addr)
	if err := t.underlying.Transfer(t.addr, successor, escrow); err != nil {
		return fmt.Errorf("draggable: migrate: move escrow: %w", err)
	}
	if err := t.balances.Burn(successor, held); err != nil {
		return fmt.Errorf("draggable: migrate: retire successor balance: %w", err)
	}

	t.events.Emit(domain.Event{
		Kind:    domain.EventMigrated,
		Token:   t.addr,
		Actor:   successor,
		Amount:  escrow,
		Subject: successor,
	})
	return nil
}

// reconcile is the ledger observer: every wrapper balance mutation flows
// through here while t.mu is held by the mutating operation.
func (t *Token) reconcile(from, to common.Address, amount *big.Int) {
	if t.offer != nil {
		t.offer.ReconcileTransfer(from, to, amount)
	}
}

// enoughEquityRepresented checks the escrowed supply against the configured
// share of the underlying's registered equity. When the underlying does not
// register total shares, its issued supply is the base.
func (t *Token) enoughEquityRepresented(supply *big.Int) bool {
	base := t.underlying.TotalSupply()
	if ts, ok := t.underlying.(interface{ TotalShares() *big.Int }); ok {
		if reg := ts.TotalShares(); reg.Sign() > 0 {
			base = reg
		}
	}
	have := new(big.Int).Mul(supply, big.NewInt(100))
	need := new(big.Int).Mul(base, big.NewInt(t.cfg.MinEquityPercent))
	return have.Cmp(need) >= 0
}

// funded reports whether buyer's settlement balance and allowance both cover
// price times supply.
func (t *Token) funded(buyer common.Address, price, supply *big.Int) bool {
	need := new(big.Int).Mul(price, supply)
	if t.currency.BalanceOf(buyer).Cmp(need) < 0 {
		return false
	}
	return t.currency.Allowance(buyer, t.addr).Cmp(need) >= 0
}
