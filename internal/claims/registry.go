// Package claims implements the collateral-backed recovery of balances on
// unreachable addresses: a two-stage commit/reveal claim, a timed resolution
// window, and the collateral escrow bookkeeping around both.
package claims

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/crypto"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

// MinClaimPeriod is the hard floor for the resolution window.
const MinClaimPeriod = 90 * 24 * time.Hour

// Config carries the policy parameters of a Registry.
type Config struct {
	// ClaimPeriod is the delay between declaring a balance lost and being
	// allowed to resolve the claim. Must be at least MinClaimPeriod.
	ClaimPeriod time.Duration

	// PreclaimMinDelay and PreclaimMaxDelay bound the window, counted from
	// the commitment timestamp, inside which the reveal must land. The
	// minimum defeats same-block front-running of the reveal; the maximum
	// bounds how long a commitment can sit unrevealed.
	PreclaimMinDelay time.Duration
	PreclaimMaxDelay time.Duration
}

// DefaultConfig are the observed production parameters.
func DefaultConfig() Config {
	return Config{
		ClaimPeriod:      180 * 24 * time.Hour,
		PreclaimMinDelay: 24 * time.Hour,
		PreclaimMaxDelay: 48 * time.Hour,
	}
}

// Registry is the per-token claim state machine. It holds a recovery-capable
// reference to the claimed token and pulls collateral in registered
// settlement currencies into its own escrow address.
type Registry struct {
	mu sync.Mutex

	token domain.RecoverableToken
	owner common.Address
	addr  common.Address // escrow principal for collateral

	cfg Config

	// rates maps currency address to collateral units per claimed unit. A
	// missing entry means the currency is unsupported.
	rates      map[common.Address]*big.Int
	currencies map[common.Address]domain.Token

	// unclaimable holds addresses that opted out; claimability defaults to
	// true for everyone else.
	unclaimable map[common.Address]bool

	preclaims map[common.Address]domain.PreClaim
	claims    map[common.Address]domain.Claim

	now    func() time.Time
	events domain.EventSink
}

// New creates a Registry over token. The owner gates collateral rates, the
// claim period, and administrative deletion. addr is the escrow principal the
// registry holds collateral under on the currency ledgers.
func New(token domain.RecoverableToken, owner, addr common.Address, cfg Config, events domain.EventSink) (*Registry, error) {
	if cfg.ClaimPeriod < MinClaimPeriod {
		return nil, fmt.Errorf("claims: claim period %s: %w", cfg.ClaimPeriod, domain.ErrPeriodTooShort)
	}
	if cfg.PreclaimMinDelay <= 0 || cfg.PreclaimMaxDelay <= cfg.PreclaimMinDelay {
		return nil, fmt.Errorf("claims: preclaim window [%s, %s] is invalid", cfg.PreclaimMinDelay, cfg.PreclaimMaxDelay)
	}
	if events == nil {
		events = domain.NopSink
	}
	return &Registry{
		token:       token,
		owner:       owner,
		addr:        addr,
		cfg:         cfg,
		rates:       make(map[common.Address]*big.Int),
		currencies:  make(map[common.Address]domain.Token),
		unclaimable: make(map[common.Address]bool),
		preclaims:   make(map[common.Address]domain.PreClaim),
		claims:      make(map[common.Address]domain.Claim),
		now:         time.Now,
		events:      events,
	}, nil
}

// SetNow overrides the clock. Test hook; all timing decisions are pure
// functions of the value it returns.
func (r *Registry) SetNow(now func() time.Time) { r.now = now }

// Address returns the registry's escrow principal.
func (r *Registry) Address() common.Address { return r.addr }

// Owner returns the administrative authority.
func (r *Registry) Owner() common.Address { return r.owner }

// SetCustomClaimCollateral registers currency as acceptable collateral at
// ratePerUnit collateral units per claimed unit. Owner only; a zero rate is
// rejected rather than interpreted as removal.
func (r *Registry) SetCustomClaimCollateral(caller common.Address, currency domain.Token, ratePerUnit *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return fmt.Errorf("claims: set collateral: %w", domain.ErrUnauthorized)
	}
	if ratePerUnit == nil || ratePerUnit.Sign() <= 0 {
		return fmt.Errorf("claims: set collateral: %w", domain.ErrInvalidRate)
	}
	r.rates[currency.Address()] = new(big.Int).Set(ratePerUnit)
	r.currencies[currency.Address()] = currency
	r.events.Emit(domain.Event{
		Kind:     domain.EventCollateralRateSet,
		Token:    r.token.Address(),
		Actor:    caller,
		Currency: currency.Address(),
		Amount:   new(big.Int).Set(ratePerUnit),
	})
	return nil
}

// CollateralRate returns the registered rate for currency, or zero when the
// currency is unsupported.
func (r *Registry) CollateralRate(currency common.Address) *big.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rate, ok := r.rates[currency]; ok {
		return new(big.Int).Set(rate)
	}
	return new(big.Int)
}

// SetClaimPeriod updates the resolution window. Owner only; the 90 day floor
// holds unconditionally.
func (r *Registry) SetClaimPeriod(caller common.Address, period time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return fmt.Errorf("claims: set claim period: %w", domain.ErrUnauthorized)
	}
	if period < MinClaimPeriod {
		return fmt.Errorf("claims: set claim period %s: %w", period, domain.ErrPeriodTooShort)
	}
	r.cfg.ClaimPeriod = period
	r.events.Emit(domain.Event{
		Kind:   domain.EventClaimPeriodSet,
		Token:  r.token.Address(),
		Actor:  caller,
		Amount: big.NewInt(int64(period / time.Second)),
	})
	return nil
}

// ClaimPeriod returns the current resolution window.
func (r *Registry) ClaimPeriod() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.ClaimPeriod
}

// SetClaimable toggles whether caller's own balance may be claimed. Opting
// out does not touch an already-open claim.
func (r *Registry) SetClaimable(caller common.Address, claimable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if claimable {
		delete(r.unclaimable, caller)
	} else {
		r.unclaimable[caller] = true
	}
}

// IsClaimable reports whether account may currently be claimed.
func (r *Registry) IsClaimable(account common.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.unclaimable[account]
}

// PrepareClaim stores caller's commitment digest. A prior commitment is
// overwritten and its window restarts.
func (r *Registry) PrepareClaim(caller common.Address, commitment common.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.preclaims[caller] = domain.PreClaim{
		Claimant:   caller,
		Commitment: commitment,
		PreparedAt: now,
	}
	r.events.Emit(domain.Event{
		Kind:      domain.EventClaimPrepared,
		Token:     r.token.Address(),
		Actor:     caller,
		Timestamp: now,
	})
}

// DeclareLost reveals caller's commitment against target and opens a claim,
// pulling balance-proportional collateral in currency into escrow. The
// validation order is part of the contract: claimability, currency support,
// target balance, preclaim window, no existing claim, commitment match, then
// collateral allowance and balance. Nothing moves until every check passes.
func (r *Registry) DeclareLost(caller, currency, target common.Address, nonce common.Hash) (domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unclaimable[target] {
		return domain.Claim{}, fmt.Errorf("claims: declare lost %s: %w", target, domain.ErrClaimsDisabled)
	}
	rate, ok := r.rates[currency]
	if !ok {
		return domain.Claim{}, fmt.Errorf("claims: declare lost %s: %w", target, domain.ErrUnsupportedCollateral)
	}
	targetBalance := r.token.BalanceOf(target)
	if targetBalance.Sign() == 0 {
		return domain.Claim{}, fmt.Errorf("claims: declare lost %s: %w", target, domain.ErrNoSharesHeld)
	}

	pre, ok := r.preclaims[caller]
	if !ok {
		return domain.Claim{}, fmt.Errorf("claims: declare lost %s: %w", target, domain.ErrNoPreclaim)
	}
	now := r.now()
	elapsed := now.Sub(pre.PreparedAt)
	if elapsed < r.cfg.PreclaimMinDelay {
		return domain.Claim{}, fmt.Errorf("claims: declare lost %s: %w", target, domain.ErrPreclaimTooEarly)
	}
	if elapsed > r.cfg.PreclaimMaxDelay {
		return domain.Claim{}, fmt.Errorf("claims: declare lost %s: %w", target, domain.ErrPreclaimTooLate)
	}

	if _, exists := r.claims[target]; exists {
		return domain.Claim{}, fmt.Errorf("claims: declare lost %s: %w", target, domain.ErrAlreadyClaimed)
	}
	if crypto.CommitmentHash(nonce, caller, target) != pre.Commitment {
		return domain.Claim{}, fmt.Errorf("claims: declare lost %s: %w", target, domain.ErrPackageInvalid)
	}

	collateral := new(big.Int).Mul(targetBalance, rate)
	cur := r.currencies[currency]
	if cur.Allowance(caller, r.addr).Cmp(collateral) < 0 {
		return domain.Claim{}, fmt.Errorf("claims: declare lost %s: %w", target, domain.ErrAllowanceInsufficient)
	}
	if cur.BalanceOf(caller).Cmp(collateral) < 0 {
		return domain.Claim{}, fmt.Errorf("claims: declare lost %s: %w", target, domain.ErrBalanceInsufficient)
	}

	if err := cur.TransferFrom(r.addr, caller, r.addr, collateral); err != nil {
		return domain.Claim{}, fmt.Errorf("claims: escrow collateral: %w", err)
	}

	claim := domain.Claim{
		Target:     target,
		Claimant:   caller,
		Currency:   currency,
		Collateral: collateral,
		DeclaredAt: now,
	}
	r.claims[target] = claim
	delete(r.preclaims, caller)

	r.events.Emit(domain.Event{
		Kind:      domain.EventClaimDeclared,
		Token:     r.token.Address(),
		Actor:     caller,
		Subject:   target,
		Currency:  currency,
		Amount:    new(big.Int).Set(collateral),
		Timestamp: now,
	})
	return claim, nil
}

// ClearClaim lets the claim's target rescue their own address: the claim is
// deleted, the target keeps the balance and receives the escrowed collateral.
// Calling without an open claim on self is a deliberate silent no-op, so a
// claimable address can clear defensively without first checking state.
func (r *Registry) ClearClaim(caller common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	claim, ok := r.claims[caller]
	if !ok {
		return nil
	}
	cur := r.currencies[claim.Currency]
	if err := cur.Transfer(r.addr, caller, claim.Collateral); err != nil {
		return fmt.Errorf("claims: clear claim: release collateral: %w", err)
	}
	delete(r.claims, caller)
	r.events.Emit(domain.Event{
		Kind:      domain.EventClaimCleared,
		Token:     r.token.Address(),
		Actor:     caller,
		Subject:   claim.Claimant,
		Currency:  claim.Currency,
		Amount:    new(big.Int).Set(claim.Collateral),
		Timestamp: r.now(),
	})
	return nil
}

// DeleteClaim is the administrative override: the owner removes an open
// claim and the collateral goes back to the claimant. Deletion is not a
// fraud verdict, so escrow is refunded rather than forfeited.
func (r *Registry) DeleteClaim(caller, target common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return fmt.Errorf("claims: delete claim %s: %w", target, domain.ErrUnauthorized)
	}
	claim, ok := r.claims[target]
	if !ok {
		return fmt.Errorf("claims: delete claim %s: %w", target, domain.ErrNoClaimFound)
	}
	cur := r.currencies[claim.Currency]
	if err := cur.Transfer(r.addr, claim.Claimant, claim.Collateral); err != nil {
		return fmt.Errorf("claims: delete claim: refund collateral: %w", err)
	}
	delete(r.claims, target)
	r.events.Emit(domain.Event{
		Kind:      domain.EventClaimDeleted,
		Token:     r.token.Address(),
		Actor:     caller,
		Subject:   target,
		Currency:  claim.Currency,
		Amount:    new(big.Int).Set(claim.Collateral),
		Timestamp: r.now(),
	})
	return nil
}

// ResolveClaim completes a claim after the claim period: the target's entire
// balance moves to the claimant and the collateral returns from escrow.
func (r *Registry) ResolveClaim(caller, target common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	claim, ok := r.claims[target]
	if !ok {
		return fmt.Errorf("claims: resolve claim %s: %w", target, domain.ErrNoClaimFound)
	}
	if caller != claim.Claimant {
		return fmt.Errorf("claims: resolve claim %s: %w", target, domain.ErrUnauthorized)
	}
	now := r.now()
	if now.Sub(claim.DeclaredAt) < r.cfg.ClaimPeriod {
		return fmt.Errorf("claims: resolve claim %s: %w", target, domain.ErrClaimPeriodNotOver)
	}

	recovered, err := r.token.Recover(target, claim.Claimant)
	if err != nil {
		return fmt.Errorf("claims: resolve claim %s: recover balance: %w", target, err)
	}
	cur := r.currencies[claim.Currency]
	if err := cur.Transfer(r.addr, claim.Claimant, claim.Collateral); err != nil {
		return fmt.Errorf("claims: resolve claim %s: return collateral: %w", target, err)
	}
	delete(r.claims, target)

	r.events.Emit(domain.Event{
		Kind:      domain.EventClaimResolved,
		Token:     r.token.Address(),
		Actor:     claim.Claimant,
		Subject:   target,
		Currency:  claim.Currency,
		Amount:    recovered,
		Timestamp: now,
	})
	return nil
}

// Claim returns the open claim on target, if any.
func (r *Registry) Claim(target common.Address) (domain.Claim, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[target]
	return c, ok
}

// PreClaim returns claimant's stored commitment, if any.
func (r *Registry) PreClaim(claimant common.Address) (domain.PreClaim, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.preclaims[claimant]
	return p, ok
}

// OpenClaims returns a snapshot of all open claims.
func (r *Registry) OpenClaims() []domain.Claim {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Claim, 0, len(r.claims))
	for _, c := range r.claims {
		out = append(out, c)
	}
	return out
}
