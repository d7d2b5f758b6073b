// Package ledger implements an in-memory fungible-balance ledger with
// allowance-based transfers, owner-gated minting, and a synchronous transfer
// observer hook. It is the concrete Token every other component is built on:
// the equity register, the settlement currencies, and the wrapper's internal
// balances are all instances of it.
package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

// Ledger is a single token instance. All methods are safe for concurrent use;
// each mutation is a serialized all-or-nothing transition.
type Ledger struct {
	mu sync.Mutex

	name   string
	symbol string
	addr   common.Address
	owner  common.Address

	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int
	totalSupply *big.Int

	// totalShares is the company's registered share count. It is at least
	// the token total supply; the difference is unissued equity. Zero means
	// the concept is unused (settlement currencies).
	totalShares *big.Int

	observer domain.TransferObserver
	events   domain.EventSink
}

// Config carries the immutable identity of a Ledger.
type Config struct {
	Name    string
	Symbol  string
	Address common.Address
	Owner   common.Address
}

// New creates an empty ledger. The owner may mint and make announcements.
func New(cfg Config, events domain.EventSink) *Ledger {
	if events == nil {
		events = domain.NopSink
	}
	return &Ledger{
		name:        cfg.Name,
		symbol:      cfg.Symbol,
		addr:        cfg.Address,
		owner:       cfg.Owner,
		balances:    make(map[common.Address]*big.Int),
		allowances:  make(map[common.Address]map[common.Address]*big.Int),
		totalSupply: new(big.Int),
		totalShares: new(big.Int),
		events:      events,
	}
}

// SetObserver registers the transfer observer. It must be called during
// wiring, before the ledger is shared.
func (l *Ledger) SetObserver(obs domain.TransferObserver) {
	l.observer = obs
}

// Name returns the token name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// Address implements domain.Token.
func (l *Ledger) Address() common.Address { return l.addr }

// Owner returns the minting/announcement authority.
func (l *Ledger) Owner() common.Address { return l.owner }

// BalanceOf implements domain.Token.
func (l *Ledger) BalanceOf(account common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(account))
}

// TotalSupply implements domain.Token.
func (l *Ledger) TotalSupply() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.totalSupply)
}

// TotalShares returns the registered company share count.
func (l *Ledger) TotalShares() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.totalShares)
}

// SetTotalShares registers the company share count. Owner only; the count can
// never fall below the already-issued supply.
func (l *Ledger) SetTotalShares(caller common.Address, count *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return fmt.Errorf("ledger: set total shares: %w", domain.ErrUnauthorized)
	}
	if count.Sign() < 0 || count.Cmp(l.totalSupply) < 0 {
		return fmt.Errorf("ledger: total shares below issued supply")
	}
	l.totalShares.Set(count)
	return nil
}

// Transfer implements domain.Token.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

// Approve implements domain.Token.
func (l *Ledger) Approve(owner, spender common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("ledger: approve: negative amount")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	inner, ok := l.allowances[owner]
	if !ok {
		inner = make(map[common.Address]*big.Int)
		l.allowances[owner] = inner
	}
	inner[spender] = new(big.Int).Set(amount)
	return nil
}

// Allowance implements domain.Token.
func (l *Ledger) Allowance(owner, spender common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.allowance(owner, spender))
}

// TransferFrom implements domain.Token. The allowance is checked and reduced
// before the balance moves.
func (l *Ledger) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	allowed := l.allowance(from, spender)
	if allowed.Cmp(amount) < 0 {
		return fmt.Errorf("ledger: transfer from %s: %w", from, domain.ErrTokenAllowanceInsufficient)
	}
	if l.balance(from).Cmp(amount) < 0 {
		return fmt.Errorf("ledger: transfer from %s: %w", from, domain.ErrTokenBalanceInsufficient)
	}
	l.allowances[from][spender] = new(big.Int).Sub(allowed, amount)
	return l.move(from, to, amount)
}

// Mint issues amount new units to to. Owner only.
func (l *Ledger) Mint(caller, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return fmt.Errorf("ledger: mint: %w", domain.ErrUnauthorized)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("ledger: mint: negative amount")
	}
	if l.totalShares.Sign() > 0 {
		issued := new(big.Int).Add(l.totalSupply, amount)
		if issued.Cmp(l.totalShares) > 0 {
			return fmt.Errorf("ledger: mint exceeds registered total shares")
		}
	}
	l.balance(to).Add(l.balance(to), amount)
	l.totalSupply.Add(l.totalSupply, amount)
	l.notify(common.Address{}, to, amount)
	return nil
}

// Burn destroys amount units held by from, shrinking total supply.
func (l *Ledger) Burn(from common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount.Sign() < 0 {
		return fmt.Errorf("ledger: burn: negative amount")
	}
	if l.balance(from).Cmp(amount) < 0 {
		return fmt.Errorf("ledger: burn: %w", domain.ErrTokenBalanceInsufficient)
	}
	l.balance(from).Sub(l.balance(from), amount)
	l.totalSupply.Sub(l.totalSupply, amount)
	l.notify(from, common.Address{}, amount)
	return nil
}

// Recover implements domain.RecoverableToken: it moves target's entire
// balance to to without an allowance. Authorization is by possession of the
// ledger reference; only the claim registry is handed one.
func (l *Ledger) Recover(target, to common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	amount := new(big.Int).Set(l.balance(target))
	if err := l.move(target, to, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// Announce emits an owner-signed broadcast message. It changes no balances;
// the event is the whole point.
func (l *Ledger) Announce(caller common.Address, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return fmt.Errorf("ledger: announce: %w", domain.ErrUnauthorized)
	}
	l.events.Emit(domain.Event{
		Kind:   domain.EventAnnouncement,
		Token:  l.addr,
		Actor:  caller,
		Reason: message,
	})
	return nil
}

// Holders returns a snapshot of all accounts with a non-zero balance.
func (l *Ledger) Holders() map[common.Address]*big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[common.Address]*big.Int, len(l.balances))
	for acct, bal := range l.balances {
		if bal.Sign() > 0 {
			out[acct] = new(big.Int).Set(bal)
		}
	}
	return out
}

// move transfers without touching allowances. Callers hold l.mu.
func (l *Ledger) move(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("ledger: transfer: negative amount")
	}
	if l.balance(from).Cmp(amount) < 0 {
		return fmt.Errorf("ledger: transfer from %s: %w", from, domain.ErrTokenBalanceInsufficient)
	}
	l.balance(from).Sub(l.balance(from), amount)
	l.balance(to).Add(l.balance(to), amount)
	l.notify(from, to, amount)
	return nil
}

// balance returns the mutable balance cell for account. Callers hold l.mu.
func (l *Ledger) balance(account common.Address) *big.Int {
	bal, ok := l.balances[account]
	if !ok {
		bal = new(big.Int)
		l.balances[account] = bal
	}
	return bal
}

func (l *Ledger) allowance(owner, spender common.Address) *big.Int {
	if inner, ok := l.allowances[owner]; ok {
		if a, ok := inner[spender]; ok {
			return a
		}
	}
	return new(big.Int)
}

func (l *Ledger) notify(from, to common.Address, amount *big.Int) {
	if l.observer != nil {
		l.observer(from, to, new(big.Int).Set(amount))
	}
}
