package ledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

var (
	owner = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	alice = common.HexToAddress("0x0000000000000000000000000000000000000001")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000002")
	carol = common.HexToAddress("0x0000000000000000000000000000000000000003")
)

func newLedger() *Ledger {
	return New(Config{
		Name:    "ServiceHunter AG Shares",
		Symbol:  "SHS",
		Address: common.HexToAddress("0x00000000000000000000000000000000000000e9"),
		Owner:   owner,
	}, nil)
}

func TestMintAndTransfer(t *testing.T) {
	require := require.New(t)
	l := newLedger()

	require.NoError(l.Mint(owner, alice, big.NewInt(1000)))
	require.Equal(big.NewInt(1000), l.BalanceOf(alice))
	require.Equal(big.NewInt(1000), l.TotalSupply())

	require.NoError(l.Transfer(alice, bob, big.NewInt(400)))
	require.Equal(big.NewInt(600), l.BalanceOf(alice))
	require.Equal(big.NewInt(400), l.BalanceOf(bob))
	require.Equal(big.NewInt(1000), l.TotalSupply())
}

func TestMintUnauthorized(t *testing.T) {
	require := require.New(t)
	l := newLedger()

	err := l.Mint(alice, alice, big.NewInt(1))
	require.ErrorIs(err, domain.ErrUnauthorized)
	require.Equal(int64(0), l.TotalSupply().Int64())
}

func TestTransferInsufficientBalance(t *testing.T) {
	require := require.New(t)
	l := newLedger()

	require.NoError(l.Mint(owner, alice, big.NewInt(10)))
	err := l.Transfer(alice, bob, big.NewInt(11))
	require.ErrorIs(err, domain.ErrTokenBalanceInsufficient)
	require.Equal(big.NewInt(10), l.BalanceOf(alice))
}

func TestTotalSharesBoundsMinting(t *testing.T) {
	require := require.New(t)
	l := newLedger()

	require.NoError(l.SetTotalShares(owner, big.NewInt(100)))
	require.NoError(l.Mint(owner, alice, big.NewInt(100)))

	// Every further issuance exceeds the registered count.
	err := l.Mint(owner, bob, big.NewInt(1))
	require.Error(err)
	require.Equal(big.NewInt(100), l.TotalSupply())

	// The registered count cannot drop below issued supply either.
	err = l.SetTotalShares(owner, big.NewInt(99))
	require.Error(err)
	require.Equal(big.NewInt(100), l.TotalShares())

	require.NoError(l.SetTotalShares(owner, big.NewInt(250)))
	require.NoError(l.Mint(owner, bob, big.NewInt(150)))
}

func TestApproveAndTransferFrom(t *testing.T) {
	require := require.New(t)
	l := newLedger()

	require.NoError(l.Mint(owner, alice, big.NewInt(100)))
	require.NoError(l.Approve(alice, bob, big.NewInt(60)))
	require.Equal(big.NewInt(60), l.Allowance(alice, bob))

	require.NoError(l.TransferFrom(bob, alice, carol, big.NewInt(50)))
	require.Equal(big.NewInt(50), l.BalanceOf(carol))
	require.Equal(big.NewInt(10), l.Allowance(alice, bob))

	err := l.TransferFrom(bob, alice, carol, big.NewInt(11))
	require.ErrorIs(err, domain.ErrTokenAllowanceInsufficient)
}

func TestBurnShrinksSupply(t *testing.T) {
	require := require.New(t)
	l := newLedger()

	require.NoError(l.Mint(owner, alice, big.NewInt(100)))
	require.NoError(l.Burn(alice, big.NewInt(30)))
	require.Equal(big.NewInt(70), l.BalanceOf(alice))
	require.Equal(big.NewInt(70), l.TotalSupply())

	err := l.Burn(alice, big.NewInt(71))
	require.ErrorIs(err, domain.ErrTokenBalanceInsufficient)
}

func TestRecoverMovesEntireBalance(t *testing.T) {
	require := require.New(t)
	l := newLedger()

	require.NoError(l.Mint(owner, alice, big.NewInt(77)))
	moved, err := l.Recover(alice, bob)
	require.NoError(err)
	require.Equal(big.NewInt(77), moved)
	require.Equal(int64(0), l.BalanceOf(alice).Int64())
	require.Equal(big.NewInt(77), l.BalanceOf(bob))
}

func TestHoldersSnapshot(t *testing.T) {
	require := require.New(t)
	l := newLedger()

	require.NoError(l.Mint(owner, alice, big.NewInt(5)))
	require.NoError(l.Mint(owner, bob, big.NewInt(7)))
	require.NoError(l.Transfer(alice, bob, big.NewInt(5)))

	holders := l.Holders()
	require.Len(holders, 1)
	require.Equal(big.NewInt(12), holders[bob])
}

func TestTransferObserver(t *testing.T) {
	require := require.New(t)
	l := newLedger()

	var from, to common.Address
	var amount *big.Int
	l.SetObserver(func(f, t common.Address, a *big.Int) {
		from, to, amount = f, t, a
	})

	require.NoError(l.Mint(owner, alice, big.NewInt(9)))
	require.Equal(common.Address{}, from)
	require.Equal(alice, to)
	require.Equal(big.NewInt(9), amount)

	require.NoError(l.Transfer(alice, bob, big.NewInt(4)))
	require.Equal(alice, from)
	require.Equal(bob, to)
	require.Equal(big.NewInt(4), amount)
}

func TestAnnounceEmitsEvent(t *testing.T) {
	require := require.New(t)

	var got domain.Event
	l := New(Config{
		Name:    "ServiceHunter AG Shares",
		Symbol:  "SHS",
		Address: common.HexToAddress("0x00000000000000000000000000000000000000e9"),
		Owner:   owner,
	}, domain.EventSinkFunc(func(ev domain.Event) { got = ev }))

	require.ErrorIs(l.Announce(alice, "nope"), domain.ErrUnauthorized)
	require.NoError(l.Announce(owner, "annual general meeting"))
	require.Equal(domain.EventAnnouncement, got.Kind)
	require.Equal("annual general meeting", got.Reason)
}
