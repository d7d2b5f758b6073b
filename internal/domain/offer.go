package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// VoteSide records which tally currently holds a holder's weight.
type VoteSide string

const (
	VoteNone VoteSide = ""
	VoteYes  VoteSide = "yes"
	VoteNo   VoteSide = "no"
)

// OfferStatus labels the lifecycle of an acquisition offer in the journal.
type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusCancelled OfferStatus = "cancelled"
	OfferStatusContested OfferStatus = "contested"
	OfferStatusReplaced  OfferStatus = "replaced"
)

// OfferSnapshot is the read-model view of the pending acquisition offer.
type OfferSnapshot struct {
	ID        string
	Buyer     common.Address
	Price     *big.Int
	Currency  common.Address
	CreatedAt time.Time
	YesVotes  *big.Int
	NoVotes   *big.Int
	Status    OfferStatus
}
