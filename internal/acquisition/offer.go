// Package acquisition implements the per-offer voting engine: tallies that
// follow live balances, and quorum predicates evaluated as pure functions of
// the clock and the circulating supply.
package acquisition

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

// Params are the timing bounds shared by all offers of a wrapper.
type Params struct {
	// VotingWindow is the minimum age before the relative quorum applies.
	VotingWindow time.Duration
	// Lifetime is the age at which an offer expires regardless of votes.
	Lifetime time.Duration
}

// DefaultParams are the observed production values: a two month vote, a
// three month lifetime.
func DefaultParams() Params {
	return Params{
		VotingWindow: 60 * 24 * time.Hour,
		Lifetime:     90 * 24 * time.Hour,
	}
}

// Offer is one acquisition attempt. Price, buyer, and currency are immutable;
// only the tallies move. The Offer carries no lock: it is owned by the
// wrapper and touched only under the wrapper's operation lock.
type Offer struct {
	id        string
	buyer     common.Address
	price     *big.Int
	currency  common.Address
	createdAt time.Time
	params    Params

	yes  *big.Int
	no   *big.Int
	side map[common.Address]domain.VoteSide
}

// NewOffer creates a pending offer with zero votes.
func NewOffer(id string, buyer common.Address, price *big.Int, currency common.Address, createdAt time.Time, params Params) *Offer {
	return &Offer{
		id:        id,
		buyer:     buyer,
		price:     new(big.Int).Set(price),
		currency:  currency,
		createdAt: createdAt,
		params:    params,
		yes:       new(big.Int),
		no:        new(big.Int),
		side:      make(map[common.Address]domain.VoteSide),
	}
}

// ID returns the offer's journal identifier.
func (o *Offer) ID() string { return o.id }

// Buyer returns the offering party.
func (o *Offer) Buyer() common.Address { return o.buyer }

// Price returns the offered price per unit.
func (o *Offer) Price() *big.Int { return new(big.Int).Set(o.price) }

// Currency returns the settlement currency address.
func (o *Offer) Currency() common.Address { return o.currency }

// CreatedAt returns the offer's creation time.
func (o *Offer) CreatedAt() time.Time { return o.createdAt }

// YesVotes returns the current yes tally.
func (o *Offer) YesVotes() *big.Int { return new(big.Int).Set(o.yes) }

// NoVotes returns the current no tally.
func (o *Offer) NoVotes() *big.Int { return new(big.Int).Set(o.no) }

// Side returns which tally currently holds holder's weight.
func (o *Offer) Side(holder common.Address) domain.VoteSide {
	return o.side[holder]
}

// RecordVote casts holder's current weight on the yes or no side. Re-casting
// the same side is a tally no-op; switching sides moves the holder's exact
// recorded weight from one tally to the other. Weight already recorded is
// removed before the new side is credited, so a holder can never count twice.
func (o *Offer) RecordVote(holder common.Address, weight *big.Int, yes bool) {
	want := domain.VoteNo
	if yes {
		want = domain.VoteYes
	}
	have := o.side[holder]
	if have == want {
		return
	}
	// Remove the weight currently recorded on the other side. The recorded
	// weight equals the holder's live balance because ReconcileTransfer
	// tracks every balance move.
	switch have {
	case domain.VoteYes:
		o.yes.Sub(o.yes, weight)
	case domain.VoteNo:
		o.no.Sub(o.no, weight)
	}
	switch want {
	case domain.VoteYes:
		o.yes.Add(o.yes, weight)
	case domain.VoteNo:
		o.no.Add(o.no, weight)
	}
	o.side[holder] = want
}

// ReconcileTransfer keeps tallies aligned with balances: weight leaving a
// voted holder leaves that holder's tally, and enters the recipient's tally
// only if the recipient already voted the same side. Unvoted recipients hold
// uncounted weight until they vote. Mints and burns pass the zero address,
// which never carries a vote.
func (o *Offer) ReconcileTransfer(from, to common.Address, amount *big.Int) {
	switch o.side[from] {
	case domain.VoteYes:
		o.yes.Sub(o.yes, amount)
	case domain.VoteNo:
		o.no.Sub(o.no, amount)
	}
	switch o.side[to] {
	case domain.VoteYes:
		o.yes.Add(o.yes, amount)
	case domain.VoteNo:
		o.no.Add(o.no, amount)
	}
}

// AbsoluteYes reports whether yes votes exceed half of the circulating
// supply, which completes the offer at any time.
func (o *Offer) AbsoluteYes(totalSupply *big.Int) bool {
	doubled := new(big.Int).Lsh(o.yes, 1)
	return doubled.Cmp(totalSupply) > 0
}

// RelativeYes reports whether the offer passes on the relative quorum: the
// voting window has elapsed and yes votes exceed no votes among votes cast.
func (o *Offer) RelativeYes(now time.Time) bool {
	return now.Sub(o.createdAt) >= o.params.VotingWindow && o.yes.Cmp(o.no) > 0
}

// FailedAbsolutely reports quorum failure: the no tally is large enough that
// yes can no longer exceed half the supply even if all uncast weight voted
// yes. This permits an early contest.
func (o *Offer) FailedAbsolutely(totalSupply *big.Int) bool {
	reachable := new(big.Int).Sub(totalSupply, o.no)
	return new(big.Int).Lsh(reachable, 1).Cmp(totalSupply) <= 0
}

// FailedRelatively reports that the voting window has elapsed without a
// relative majority.
func (o *Offer) FailedRelatively(now time.Time) bool {
	return now.Sub(o.createdAt) >= o.params.VotingWindow && o.yes.Cmp(o.no) <= 0
}

// Expired reports whether the offer outlived its maximum lifetime.
func (o *Offer) Expired(now time.Time) bool {
	return now.Sub(o.createdAt) >= o.params.Lifetime
}

// Snapshot returns the read-model view of the offer.
func (o *Offer) Snapshot(status domain.OfferStatus) domain.OfferSnapshot {
	return domain.OfferSnapshot{
		ID:        o.id,
		Buyer:     o.buyer,
		Price:     o.Price(),
		Currency:  o.currency,
		CreatedAt: o.createdAt,
		YesVotes:  o.YesVotes(),
		NoVotes:   o.NoVotes(),
		Status:    status,
	}
}
