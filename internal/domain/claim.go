package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ClaimStatus is the terminal-state label recorded in the claim journal. A
// claim is live only while its status is open; every other status means the
// registry no longer tracks it.
type ClaimStatus string

const (
	ClaimStatusOpen     ClaimStatus = "open"
	ClaimStatusCleared  ClaimStatus = "cleared"  // target self-rescued, kept balance, received collateral
	ClaimStatusResolved ClaimStatus = "resolved" // claimant won, received balance and collateral back
	ClaimStatusDeleted  ClaimStatus = "deleted"  // administrative removal, collateral refunded
)

// PreClaim is a commitment to a future claim. It hides the target address
// until the reveal; only the digest and its timestamp are stored.
type PreClaim struct {
	Claimant   common.Address
	Commitment common.Hash
	PreparedAt time.Time
}

// Claim is an open request by Claimant to take over Target's balance against
// posted collateral, pending the timed resolution window.
type Claim struct {
	Target     common.Address
	Claimant   common.Address
	Currency   common.Address
	Collateral *big.Int
	DeclaredAt time.Time
}
