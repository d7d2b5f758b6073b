package draggable

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/ledger"
)

var (
	owner    = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	alice    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000002")
	buyer    = common.HexToAddress("0x0000000000000000000000000000000000000003")
	wrapAddr = common.HexToAddress("0x00000000000000000000000000000000000000dd")
)

type fixture struct {
	wrapper  *Token
	equity   *ledger.Ledger
	currency *ledger.Ledger
	clock    time.Time
}

// newFixture builds a wrapper over a 10000 share register. Alice wraps 6000
// and bob 3000, so 90% of the equity is escrowed; the buyer holds wrapped
// stake plus a fully approved settlement balance.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	require := require.New(t)

	equity := ledger.New(ledger.Config{
		Name: "ServiceHunter AG Shares", Symbol: "SHS",
		Address: common.HexToAddress("0xe9"), Owner: owner,
	}, nil)
	currency := ledger.New(ledger.Config{
		Name: "CryptoFranc", Symbol: "XCHF",
		Address: common.HexToAddress("0xc4"), Owner: owner,
	}, nil)

	f := &fixture{
		equity:   equity,
		currency: currency,
		clock:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	f.wrapper = New("Draggable SHS", "DSHS", wrapAddr, equity, currency, DefaultConfig(), nil)
	f.wrapper.SetNow(func() time.Time { return f.clock })

	require.NoError(equity.SetTotalShares(owner, big.NewInt(10000)))
	require.NoError(equity.Mint(owner, alice, big.NewInt(6000)))
	require.NoError(equity.Mint(owner, bob, big.NewInt(3000)))
	require.NoError(equity.Mint(owner, buyer, big.NewInt(1000)))

	wrap := func(holder common.Address, amount int64) {
		require.NoError(equity.Approve(holder, wrapAddr, big.NewInt(amount)))
		require.NoError(f.wrapper.Wrap(holder, holder, big.NewInt(amount)))
	}
	wrap(alice, 6000)
	wrap(bob, 3000)
	wrap(buyer, 1000)

	// Funding for a price of 2 per unit across the full 10000 supply.
	require.NoError(currency.Mint(owner, buyer, big.NewInt(100000)))
	require.NoError(currency.Approve(buyer, wrapAddr, big.NewInt(100000)))
	return f
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func TestWrapEscrowsUnderlying(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	require.Equal(big.NewInt(10000), f.wrapper.TotalSupply())
	require.Equal(big.NewInt(6000), f.wrapper.BalanceOf(alice))
	require.Equal(big.NewInt(10000), f.equity.BalanceOf(wrapAddr))
	require.Equal(int64(0), f.equity.BalanceOf(alice).Int64())
}

func TestWrapRequiresAllowance(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	// The fixture mints the full registered count, so register headroom
	// before handing alice unwrapped shares.
	require.NoError(f.equity.SetTotalShares(owner, big.NewInt(11000)))
	require.NoError(f.equity.Mint(owner, alice, big.NewInt(50)))
	err := f.wrapper.Wrap(alice, alice, big.NewInt(50))
	require.ErrorIs(err, domain.ErrShareAllowanceInsufficient)

	err = f.wrapper.Wrap(alice, alice, big.NewInt(51))
	require.ErrorIs(err, domain.ErrShareBalanceInsufficient)
}

func TestWrapBlockedDuringOffer(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	_, err := f.wrapper.InitiateAcquisition(buyer, big.NewInt(2))
	require.NoError(err)

	require.NoError(f.equity.SetTotalShares(owner, big.NewInt(11000)))
	require.NoError(f.equity.Mint(owner, alice, big.NewInt(10)))
	require.NoError(f.equity.Approve(alice, wrapAddr, big.NewInt(10)))
	err = f.wrapper.Wrap(alice, alice, big.NewInt(10))
	require.ErrorIs(err, domain.ErrPendingOffer)
}

func TestUnwrapOnlyAfterAcquisition(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	err := f.wrapper.Unwrap(alice, big.NewInt(1))
	require.ErrorIs(err, domain.ErrNotAcquired)
}

func TestBurnRetiresEscrowedUnderlying(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	require.NoError(f.wrapper.Burn(alice, big.NewInt(100)))

	require.Equal(big.NewInt(9900), f.wrapper.TotalSupply())
	require.Equal(big.NewInt(5900), f.wrapper.BalanceOf(alice))
	// The escrow shrinks with the wrapper supply; both registers stay 1:1.
	require.Equal(big.NewInt(9900), f.equity.BalanceOf(wrapAddr))
	require.Equal(big.NewInt(9900), f.equity.TotalSupply())

	err := f.wrapper.Burn(alice, big.NewInt(6000))
	require.ErrorIs(err, domain.ErrBalanceInsufficient)
}

func TestInitiateStakeFloor(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	// 499 of 10000 is below the 5% stake floor.
	small := common.HexToAddress("0x0000000000000000000000000000000000000009")
	require.NoError(f.wrapper.Transfer(buyer, small, big.NewInt(499)))
	require.NoError(f.currency.Mint(owner, small, big.NewInt(100000)))
	require.NoError(f.currency.Approve(small, wrapAddr, big.NewInt(100000)))

	_, err := f.wrapper.InitiateAcquisition(small, big.NewInt(2))
	require.ErrorIs(err, domain.ErrInsufficientStake)

	// One more unit reaches exactly 5%.
	require.NoError(f.wrapper.Transfer(buyer, small, big.NewInt(1)))
	_, err = f.wrapper.InitiateAcquisition(small, big.NewInt(2))
	require.NoError(err)
}

func TestInitiateRequiresFunding(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	// Price 3 needs 30000; the buyer has 100000 but only approves 29999.
	require.NoError(f.currency.Approve(buyer, wrapAddr, big.NewInt(29999)))
	_, err := f.wrapper.InitiateAcquisition(buyer, big.NewInt(3))
	require.ErrorIs(err, domain.ErrInsufficientFunding)
}

func TestInitiateEquityRepresentation(t *testing.T) {
	require := require.New(t)

	equity := ledger.New(ledger.Config{Address: common.HexToAddress("0xe9"), Owner: owner}, nil)
	currency := ledger.New(ledger.Config{Address: common.HexToAddress("0xc4"), Owner: owner}, nil)
	wrapper := New("Draggable", "D", wrapAddr, equity, currency, DefaultConfig(), nil)

	// 2000 wrapped of 10000 registered shares is below the 30% floor.
	require.NoError(equity.SetTotalShares(owner, big.NewInt(10000)))
	require.NoError(equity.Mint(owner, buyer, big.NewInt(2000)))
	require.NoError(equity.Approve(buyer, wrapAddr, big.NewInt(2000)))
	require.NoError(wrapper.Wrap(buyer, buyer, big.NewInt(2000)))
	require.NoError(currency.Mint(owner, buyer, big.NewInt(100000)))
	require.NoError(currency.Approve(buyer, wrapAddr, big.NewInt(100000)))

	_, err := wrapper.InitiateAcquisition(buyer, big.NewInt(1))
	require.ErrorIs(err, domain.ErrEquityNotRepresented)
}

func TestReplacementPremium(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	// A price of 200 needs 2000000 of funding.
	require.NoError(f.currency.Mint(owner, buyer, big.NewInt(1900000)))
	require.NoError(f.currency.Approve(buyer, wrapAddr, big.NewInt(2000000)))
	_, err := f.wrapper.InitiateAcquisition(buyer, big.NewInt(200))
	require.NoError(err)

	rival := common.HexToAddress("0x0000000000000000000000000000000000000008")
	require.NoError(f.wrapper.Transfer(buyer, rival, big.NewInt(500)))
	require.NoError(f.currency.Mint(owner, rival, big.NewInt(2100000)))
	require.NoError(f.currency.Approve(rival, wrapAddr, big.NewInt(2100000)))

	// 205 is 2.5% over the pending 200; the floor is 5%.
	_, err = f.wrapper.InitiateAcquisition(rival, big.NewInt(205))
	require.ErrorIs(err, domain.ErrOfferNotHighEnough)

	snap, err := f.wrapper.InitiateAcquisition(rival, big.NewInt(210))
	require.NoError(err)
	require.Equal(rival, snap.Buyer)

	// The displaced offer's votes are gone.
	require.Equal(int64(0), snap.YesVotes.Int64())
}

func TestVoteWeightFollowsTransfers(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	_, err := f.wrapper.InitiateAcquisition(buyer, big.NewInt(2))
	require.NoError(err)

	require.NoError(f.wrapper.VoteYes(alice))
	snap, ok := f.wrapper.Offer()
	require.True(ok)
	require.Equal(big.NewInt(6000), snap.YesVotes)

	// 5000 of alice's voted weight moves to an unvoted holder and leaves
	// the tally; the recipient's weight counts once they vote.
	require.NoError(f.wrapper.Transfer(alice, bob, big.NewInt(5000)))
	snap, _ = f.wrapper.Offer()
	require.Equal(big.NewInt(1000), snap.YesVotes)

	require.NoError(f.wrapper.VoteNo(bob))
	snap, _ = f.wrapper.Offer()
	require.Equal(big.NewInt(1000), snap.YesVotes)
	require.Equal(big.NewInt(8000), snap.NoVotes)
}

func TestCompleteOnAbsoluteQuorum(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	_, err := f.wrapper.InitiateAcquisition(buyer, big.NewInt(2))
	require.NoError(err)

	// 5000 of 10000 is not a strict majority.
	require.NoError(f.wrapper.Transfer(alice, bob, big.NewInt(1000)))
	require.NoError(f.wrapper.VoteYes(alice))
	require.ErrorIs(f.wrapper.CompleteAcquisition(buyer), domain.ErrInsufficientYesVotes)

	require.NoError(f.wrapper.VoteYes(buyer))
	require.ErrorIs(f.wrapper.CompleteAcquisition(alice), domain.ErrUnauthorized)
	require.NoError(f.wrapper.CompleteAcquisition(buyer))

	require.True(f.wrapper.Acquired())
	require.Equal(big.NewInt(2), f.wrapper.AcceptedPrice())
	// The buyer paid 20000 and owns the full equity escrow.
	require.Equal(big.NewInt(10000), f.equity.BalanceOf(buyer))
	require.Equal(big.NewInt(20000), f.currency.BalanceOf(wrapAddr))
	require.Equal(big.NewInt(80000), f.currency.BalanceOf(buyer))

	// Holders cash out at the accepted price.
	require.NoError(f.wrapper.Unwrap(bob, big.NewInt(4000)))
	require.Equal(big.NewInt(8000), f.currency.BalanceOf(bob))
	require.Equal(big.NewInt(6000), f.wrapper.TotalSupply())

	// No further offers once acquired.
	_, err = f.wrapper.InitiateAcquisition(buyer, big.NewInt(5))
	require.ErrorIs(err, domain.ErrOfferAlreadyAccepted)
}

func TestCompleteOnRelativeQuorum(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	_, err := f.wrapper.InitiateAcquisition(buyer, big.NewInt(2))
	require.NoError(err)

	require.NoError(f.wrapper.VoteYes(buyer))
	require.NoError(f.wrapper.VoteNo(bob))
	require.ErrorIs(f.wrapper.CompleteAcquisition(buyer), domain.ErrInsufficientYesVotes)

	// After the voting window a simple majority of votes cast suffices.
	require.NoError(f.wrapper.VoteYes(alice))
	f.advance(60 * 24 * time.Hour)
	require.NoError(f.wrapper.CompleteAcquisition(buyer))
}

func TestCancelAcquisition(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	_, err := f.wrapper.InitiateAcquisition(buyer, big.NewInt(2))
	require.NoError(err)

	require.ErrorIs(f.wrapper.CancelAcquisition(alice), domain.ErrUnauthorized)
	require.NoError(f.wrapper.CancelAcquisition(buyer))
	_, ok := f.wrapper.Offer()
	require.False(ok)
	require.ErrorIs(f.wrapper.CancelAcquisition(buyer), domain.ErrNoPendingOffer)
}

func TestContestVerdicts(t *testing.T) {
	require := require.New(t)

	t.Run("expired", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.wrapper.InitiateAcquisition(buyer, big.NewInt(2))
		require.NoError(err)

		f.advance(90 * 24 * time.Hour)
		reason, err := f.wrapper.ContestAcquisition(alice)
		require.NoError(err)
		require.Equal(ReasonExpired, reason)
	})

	t.Run("absolute failure", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.wrapper.InitiateAcquisition(buyer, big.NewInt(2))
		require.NoError(err)

		require.NoError(f.wrapper.VoteNo(alice))
		reason, err := f.wrapper.ContestAcquisition(alice)
		require.NoError(err)
		require.Equal(ReasonNoSupport, reason)
	})

	t.Run("relative failure", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.wrapper.InitiateAcquisition(buyer, big.NewInt(2))
		require.NoError(err)

		require.NoError(f.wrapper.VoteNo(bob))
		require.NoError(f.wrapper.VoteYes(buyer))
		f.advance(60 * 24 * time.Hour)
		reason, err := f.wrapper.ContestAcquisition(alice)
		require.NoError(err)
		require.Equal(ReasonNoSupport, reason)
	})

	t.Run("underfunded", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.wrapper.InitiateAcquisition(buyer, big.NewInt(2))
		require.NoError(err)

		// Funding eroded after initiation.
		require.NoError(f.currency.Transfer(buyer, owner, big.NewInt(90000)))
		reason, err := f.wrapper.ContestAcquisition(alice)
		require.NoError(err)
		require.Equal(ReasonUnderfunded, reason)
	})

	t.Run("healthy offer survives", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.wrapper.InitiateAcquisition(buyer, big.NewInt(2))
		require.NoError(err)

		_, err = f.wrapper.ContestAcquisition(alice)
		require.ErrorIs(err, domain.ErrContestUnsuccessful)
		_, ok := f.wrapper.Offer()
		require.True(ok)
	})
}

func TestMigrateRequiresStrictMajority(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	successor := common.HexToAddress("0x0000000000000000000000000000000000000055")

	// Exactly half is not enough.
	require.NoError(f.wrapper.Transfer(alice, successor, big.NewInt(5000)))
	require.ErrorIs(f.wrapper.Migrate(successor), domain.ErrQuorumNotReached)

	require.NoError(f.wrapper.Transfer(bob, successor, big.NewInt(1)))
	require.NoError(f.wrapper.Migrate(successor))

	// The escrow moved and the successor's wrapper balance was retired.
	require.Equal(big.NewInt(10000), f.equity.BalanceOf(successor))
	require.Equal(int64(0), f.wrapper.BalanceOf(successor).Int64())
	require.Equal(big.NewInt(4999), f.wrapper.TotalSupply())
}

func TestRecoverClearsVoteWeight(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	_, err := f.wrapper.InitiateAcquisition(buyer, big.NewInt(2))
	require.NoError(err)
	require.NoError(f.wrapper.VoteYes(alice))

	moved, err := f.wrapper.Recover(alice, bob)
	require.NoError(err)
	require.Equal(big.NewInt(6000), moved)

	// The recovered weight left the yes tally with the lost address.
	snap, ok := f.wrapper.Offer()
	require.True(ok)
	require.Equal(int64(0), snap.YesVotes.Int64())
}
