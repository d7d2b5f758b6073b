package acquisition

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

var (
	buyer  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	voterA = common.HexToAddress("0x0000000000000000000000000000000000000002")
	voterB = common.HexToAddress("0x0000000000000000000000000000000000000003")
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newOffer() *Offer {
	return NewOffer("offer-1", buyer, big.NewInt(10), common.Address{}, t0, DefaultParams())
}

func TestRecordVote(t *testing.T) {
	require := require.New(t)
	o := newOffer()

	o.RecordVote(voterA, big.NewInt(100), true)
	require.Equal(big.NewInt(100), o.YesVotes())
	require.Equal(domain.VoteYes, o.Side(voterA))

	// Re-casting the same side changes nothing.
	o.RecordVote(voterA, big.NewInt(100), true)
	require.Equal(big.NewInt(100), o.YesVotes())

	// Switching sides moves the full weight across.
	o.RecordVote(voterA, big.NewInt(100), false)
	require.Equal(int64(0), o.YesVotes().Int64())
	require.Equal(big.NewInt(100), o.NoVotes())
	require.Equal(domain.VoteNo, o.Side(voterA))
}

func TestReconcileTransfer(t *testing.T) {
	require := require.New(t)
	o := newOffer()

	o.RecordVote(voterA, big.NewInt(5000), true)

	// Weight moving to an unvoted holder leaves the tally uncounted.
	o.ReconcileTransfer(voterA, voterB, big.NewInt(4500))
	require.Equal(big.NewInt(500), o.YesVotes())

	// Once the recipient votes, their full live balance counts.
	o.RecordVote(voterB, big.NewInt(4500), false)
	require.Equal(big.NewInt(500), o.YesVotes())
	require.Equal(big.NewInt(4500), o.NoVotes())

	// Transfers between same-side voters keep the tally constant.
	o.RecordVote(voterB, big.NewInt(4500), true)
	o.ReconcileTransfer(voterB, voterA, big.NewInt(1000))
	require.Equal(big.NewInt(5000), o.YesVotes())

	// Mints and burns pass the zero address, which carries no vote.
	o.ReconcileTransfer(common.Address{}, voterA, big.NewInt(10))
	require.Equal(big.NewInt(5010), o.YesVotes())
}

func TestAbsoluteQuorum(t *testing.T) {
	require := require.New(t)
	o := newOffer()
	supply := big.NewInt(1000)

	// Exactly half is not enough; the quorum is strict.
	o.RecordVote(voterA, big.NewInt(500), true)
	require.False(o.AbsoluteYes(supply))

	o.RecordVote(voterB, big.NewInt(1), true)
	require.True(o.AbsoluteYes(supply))
}

func TestFailedAbsolutely(t *testing.T) {
	require := require.New(t)
	o := newOffer()
	supply := big.NewInt(1000)

	o.RecordVote(voterA, big.NewInt(499), false)
	require.False(o.FailedAbsolutely(supply))

	// At half the supply voting no, yes can no longer exceed half.
	o.RecordVote(voterB, big.NewInt(1), false)
	require.True(o.FailedAbsolutely(supply))
}

func TestRelativeQuorum(t *testing.T) {
	require := require.New(t)
	o := newOffer()

	o.RecordVote(voterA, big.NewInt(10), true)
	o.RecordVote(voterB, big.NewInt(5), false)

	// Majority alone is not enough before the window closes.
	inWindow := t0.Add(59 * 24 * time.Hour)
	require.False(o.RelativeYes(inWindow))
	require.False(o.FailedRelatively(inWindow))

	afterWindow := t0.Add(60 * 24 * time.Hour)
	require.True(o.RelativeYes(afterWindow))

	// Without a yes majority after the window, the offer fails relatively.
	o.RecordVote(voterB, big.NewInt(5), true)
	o.RecordVote(voterA, big.NewInt(10), false)
	o.RecordVote(voterB, big.NewInt(5), false)
	require.False(o.RelativeYes(afterWindow))
	require.True(o.FailedRelatively(afterWindow))
}

func TestExpiry(t *testing.T) {
	require := require.New(t)
	o := newOffer()

	require.False(o.Expired(t0.Add(89 * 24 * time.Hour)))
	require.True(o.Expired(t0.Add(90 * 24 * time.Hour)))
}

func TestSnapshot(t *testing.T) {
	require := require.New(t)
	o := newOffer()
	o.RecordVote(voterA, big.NewInt(7), true)

	snap := o.Snapshot(domain.OfferStatusPending)
	require.Equal("offer-1", snap.ID)
	require.Equal(buyer, snap.Buyer)
	require.Equal(big.NewInt(10), snap.Price)
	require.Equal(big.NewInt(7), snap.YesVotes)
	require.Equal(domain.OfferStatusPending, snap.Status)

	// The snapshot is detached from the live tallies.
	snap.YesVotes.SetInt64(99)
	require.Equal(big.NewInt(7), o.YesVotes())
}
