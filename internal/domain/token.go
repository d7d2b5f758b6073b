// Package domain defines the shared types of the draggable shares system:
// tokens, claims, acquisition offers, emitted events, and the persistence
// interfaces the service layer implements.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is the conventional fungible-balance ledger interface the core is
// expressed against. Every instance (equity, wrapper, settlement currency)
// exposes the same surface. Amounts are non-negative big integers; callers
// must not mutate returned values.
type Token interface {
	// Address identifies this token instance as a principal, so it can hold
	// balances and allowances on other tokens.
	Address() common.Address

	BalanceOf(account common.Address) *big.Int
	TotalSupply() *big.Int

	// Transfer moves amount from from to to. The from parameter plays the
	// role of the transaction sender.
	Transfer(from, to common.Address, amount *big.Int) error

	// Approve sets spender's allowance over owner's balance.
	Approve(owner, spender common.Address, amount *big.Int) error
	Allowance(owner, spender common.Address) *big.Int

	// TransferFrom moves amount from from to to, spending spender's
	// allowance granted by from.
	TransferFrom(spender, from, to common.Address, amount *big.Int) error
}

// RecoverableToken additionally supports moving a full balance without an
// allowance. Only the claim registry holds a RecoverableToken reference;
// handing one out is what authorizes recovery.
type RecoverableToken interface {
	Token

	// Recover moves target's entire balance to to and returns the amount
	// moved.
	Recover(target, to common.Address) (*big.Int, error)
}

// BurnableToken additionally supports destroying balance, shrinking the
// total supply. The wrapper requires its underlying to be burnable so that
// retiring wrapped units always retires the escrowed equity with them.
type BurnableToken interface {
	Token

	// Burn destroys amount of from's balance.
	Burn(from common.Address, amount *big.Int) error
}

// TransferObserver is invoked synchronously after every balance mutation of a
// token. Mints report the zero address as from, burns as to. The wrapper uses
// this channel to keep vote tallies aligned with live balances.
type TransferObserver func(from, to common.Address, amount *big.Int)
