package domain

import "errors"

// Sentinel errors returned by the core state machines. Every failing call
// leaves all balances, escrow, and vote tallies untouched; callers should
// re-read current state and retry with corrected inputs.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrLockHeld     = errors.New("lock already held")

	// Claim registry.
	ErrInvalidRate           = errors.New("collateral rate must be positive")
	ErrPeriodTooShort        = errors.New("claim period below the 90 day minimum")
	ErrClaimsDisabled        = errors.New("claims disabled for this address")
	ErrUnsupportedCollateral = errors.New("unsupported collateral type")
	ErrNoSharesHeld          = errors.New("claimed address holds no shares")
	ErrPreclaimTooEarly      = errors.New("preclaim period violated")
	ErrPreclaimTooLate       = errors.New("preclaim period end, claimed too late")
	ErrNoPreclaim            = errors.New("no matching preclaim commitment")
	ErrAlreadyClaimed        = errors.New("address already claimed")
	ErrPackageInvalid        = errors.New("package could not be validated")
	ErrAllowanceInsufficient = errors.New("currency allowance insufficient")
	ErrBalanceInsufficient   = errors.New("currency balance insufficient")
	ErrNoClaimFound          = errors.New("no claim found")
	ErrClaimPeriodNotOver    = errors.New("claim period not over")

	// Wrapper token and acquisition engine.
	ErrOfferAlreadyAccepted       = errors.New("an accepted offer exists")
	ErrEquityNotRepresented       = errors.New("contract does not represent enough equity")
	ErrInsufficientStake          = errors.New("insufficient stake to make an offer")
	ErrInsufficientFunding        = errors.New("insufficient funding")
	ErrOfferNotHighEnough         = errors.New("new offers must be at least 5% higher than the pending offer")
	ErrNoPendingOffer             = errors.New("no pending offer")
	ErrInsufficientYesVotes       = errors.New("insufficient yes votes")
	ErrOfferInsufficientlyFunded  = errors.New("offer insufficiently funded")
	ErrContestUnsuccessful        = errors.New("acquisition contest unsuccessful")
	ErrShareBalanceInsufficient   = errors.New("share balance insufficient")
	ErrShareAllowanceInsufficient = errors.New("share allowance insufficient")
	ErrTokenBalanceInsufficient   = errors.New("token balance insufficient")
	ErrTokenAllowanceInsufficient = errors.New("token allowance insufficient")
	ErrNotAcquired                = errors.New("no completed acquisition")
	ErrPendingOffer               = errors.New("a pending offer exists")

	// Migration gateway.
	ErrNotActive        = errors.New("contract is not active")
	ErrQuorumNotReached = errors.New("migration quorum not reached")
)
