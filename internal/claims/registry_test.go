package claims

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/crypto"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/ledger"
)

var (
	owner    = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	claimant = common.HexToAddress("0x0000000000000000000000000000000000000001")
	target   = common.HexToAddress("0x0000000000000000000000000000000000000002")
	escrow   = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	tokAddr  = common.HexToAddress("0x00000000000000000000000000000000000000e9")
	curAddr  = common.HexToAddress("0x00000000000000000000000000000000000000c4")
)

// fixture wires a registry over a fresh share ledger with one registered
// settlement currency and a steerable clock.
type fixture struct {
	registry *Registry
	shares   *ledger.Ledger
	currency *ledger.Ledger
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	require := require.New(t)

	shares := ledger.New(ledger.Config{Name: "Shares", Symbol: "SHS", Address: tokAddr, Owner: owner}, nil)
	currency := ledger.New(ledger.Config{Name: "Swiss Franc", Symbol: "XCHF", Address: curAddr, Owner: owner}, nil)

	registry, err := New(shares, owner, escrow, DefaultConfig(), nil)
	require.NoError(err)
	require.NoError(registry.SetCustomClaimCollateral(owner, currency, big.NewInt(2)))

	f := &fixture{
		registry: registry,
		shares:   shares,
		currency: currency,
		clock:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	registry.SetNow(func() time.Time { return f.clock })

	// Target holds shares; claimant holds currency approved toward escrow.
	require.NoError(shares.Mint(owner, target, big.NewInt(100)))
	require.NoError(currency.Mint(owner, claimant, big.NewInt(1000)))
	require.NoError(currency.Approve(claimant, escrow, big.NewInt(1000)))
	return f
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

// declare runs the full commit-reveal flow with a valid 25 hour gap.
func (f *fixture) declare(t *testing.T) domain.Claim {
	t.Helper()
	nonce := common.HexToHash("0x01")
	f.registry.PrepareClaim(claimant, crypto.CommitmentHash(nonce, claimant, target))
	f.advance(25 * time.Hour)
	claim, err := f.registry.DeclareLost(claimant, curAddr, target, nonce)
	require.NoError(t, err)
	return claim
}

func TestConfigFloors(t *testing.T) {
	require := require.New(t)
	shares := ledger.New(ledger.Config{Address: tokAddr, Owner: owner}, nil)

	cfg := DefaultConfig()
	cfg.ClaimPeriod = 89 * 24 * time.Hour
	_, err := New(shares, owner, escrow, cfg, nil)
	require.ErrorIs(err, domain.ErrPeriodTooShort)

	cfg = DefaultConfig()
	cfg.PreclaimMaxDelay = cfg.PreclaimMinDelay
	_, err = New(shares, owner, escrow, cfg, nil)
	require.Error(err)
}

func TestDeclareLostEscrowsCollateral(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	claim := f.declare(t)
	// 100 shares at 2 units per share.
	require.Equal(big.NewInt(200), claim.Collateral)
	require.Equal(big.NewInt(200), f.currency.BalanceOf(escrow))
	require.Equal(big.NewInt(800), f.currency.BalanceOf(claimant))

	// The commitment is consumed by the reveal.
	_, ok := f.registry.PreClaim(claimant)
	require.False(ok)
	got, ok := f.registry.Claim(target)
	require.True(ok)
	require.Equal(claimant, got.Claimant)
}

func TestDeclareLostPreclaimWindow(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	nonce := common.HexToHash("0x01")

	f.registry.PrepareClaim(claimant, crypto.CommitmentHash(nonce, claimant, target))

	// Same-day reveal is front-runnable and rejected.
	f.advance(23 * time.Hour)
	_, err := f.registry.DeclareLost(claimant, curAddr, target, nonce)
	require.ErrorIs(err, domain.ErrPreclaimTooEarly)

	// Past the window the commitment has gone stale.
	f.advance(26 * time.Hour)
	_, err = f.registry.DeclareLost(claimant, curAddr, target, nonce)
	require.ErrorIs(err, domain.ErrPreclaimTooLate)
}

func TestDeclareLostValidation(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	nonce := common.HexToHash("0x01")

	// No commitment at all.
	f.registry.PrepareClaim(claimant, crypto.CommitmentHash(nonce, claimant, target))
	f.advance(25 * time.Hour)

	// Unsupported currency.
	_, err := f.registry.DeclareLost(claimant, common.HexToAddress("0xdead"), target, nonce)
	require.ErrorIs(err, domain.ErrUnsupportedCollateral)

	// Empty target.
	empty := common.HexToAddress("0x0000000000000000000000000000000000000009")
	_, err = f.registry.DeclareLost(claimant, curAddr, empty, nonce)
	require.ErrorIs(err, domain.ErrNoSharesHeld)

	// Wrong nonce fails the commitment check.
	_, err = f.registry.DeclareLost(claimant, curAddr, target, common.HexToHash("0x02"))
	require.ErrorIs(err, domain.ErrPackageInvalid)
}

func TestDeclareLostRespectsOptOut(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	nonce := common.HexToHash("0x01")

	f.registry.SetClaimable(target, false)
	require.False(f.registry.IsClaimable(target))

	f.registry.PrepareClaim(claimant, crypto.CommitmentHash(nonce, claimant, target))
	f.advance(25 * time.Hour)
	_, err := f.registry.DeclareLost(claimant, curAddr, target, nonce)
	require.ErrorIs(err, domain.ErrClaimsDisabled)

	f.registry.SetClaimable(target, true)
	require.True(f.registry.IsClaimable(target))
}

func TestDeclareLostInsufficientCollateral(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	nonce := common.HexToHash("0x01")

	// Allowance short of the 200 required.
	require.NoError(f.currency.Approve(claimant, escrow, big.NewInt(199)))
	f.registry.PrepareClaim(claimant, crypto.CommitmentHash(nonce, claimant, target))
	f.advance(25 * time.Hour)
	_, err := f.registry.DeclareLost(claimant, curAddr, target, nonce)
	require.ErrorIs(err, domain.ErrAllowanceInsufficient)

	// Allowance fine, balance short.
	require.NoError(f.currency.Approve(claimant, escrow, big.NewInt(1000)))
	require.NoError(f.currency.Transfer(claimant, owner, big.NewInt(900)))
	_, err = f.registry.DeclareLost(claimant, curAddr, target, nonce)
	require.ErrorIs(err, domain.ErrBalanceInsufficient)
}

func TestClearClaimRescuesTarget(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.declare(t)

	require.NoError(f.registry.ClearClaim(target))

	// Target keeps the shares and pockets the collateral.
	require.Equal(big.NewInt(100), f.shares.BalanceOf(target))
	require.Equal(big.NewInt(200), f.currency.BalanceOf(target))
	require.Equal(int64(0), f.currency.BalanceOf(escrow).Int64())
	_, ok := f.registry.Claim(target)
	require.False(ok)

	// Clearing again, or without any claim, is a silent no-op.
	require.NoError(f.registry.ClearClaim(target))
	require.NoError(f.registry.ClearClaim(owner))
	require.Equal(big.NewInt(200), f.currency.BalanceOf(target))
}

func TestDeleteClaimRefundsClaimant(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.declare(t)

	require.ErrorIs(f.registry.DeleteClaim(claimant, target), domain.ErrUnauthorized)

	require.NoError(f.registry.DeleteClaim(owner, target))
	require.Equal(big.NewInt(1000), f.currency.BalanceOf(claimant))
	require.Equal(big.NewInt(100), f.shares.BalanceOf(target))

	require.ErrorIs(f.registry.DeleteClaim(owner, target), domain.ErrNoClaimFound)
}

func TestResolveClaimAfterPeriod(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.declare(t)

	// Too early at 179 days.
	f.advance(179 * 24 * time.Hour)
	err := f.registry.ResolveClaim(claimant, target)
	require.ErrorIs(err, domain.ErrClaimPeriodNotOver)

	// Only the claimant may resolve.
	f.advance(2 * 24 * time.Hour)
	require.ErrorIs(f.registry.ResolveClaim(owner, target), domain.ErrUnauthorized)

	require.NoError(f.registry.ResolveClaim(claimant, target))
	require.Equal(big.NewInt(100), f.shares.BalanceOf(claimant))
	require.Equal(int64(0), f.shares.BalanceOf(target).Int64())
	require.Equal(big.NewInt(1000), f.currency.BalanceOf(claimant))

	require.ErrorIs(f.registry.ResolveClaim(claimant, target), domain.ErrNoClaimFound)
}

func TestDoubleClaimRejected(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.declare(t)

	other := common.HexToAddress("0x0000000000000000000000000000000000000007")
	require.NoError(f.currency.Mint(owner, other, big.NewInt(500)))
	require.NoError(f.currency.Approve(other, escrow, big.NewInt(500)))

	nonce := common.HexToHash("0x0404")
	f.registry.PrepareClaim(other, crypto.CommitmentHash(nonce, other, target))
	f.advance(25 * time.Hour)
	_, err := f.registry.DeclareLost(other, curAddr, target, nonce)
	require.ErrorIs(err, domain.ErrAlreadyClaimed)
}

func TestSetClaimPeriodFloor(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	require.ErrorIs(f.registry.SetClaimPeriod(claimant, 200*24*time.Hour), domain.ErrUnauthorized)
	require.ErrorIs(f.registry.SetClaimPeriod(owner, 89*24*time.Hour), domain.ErrPeriodTooShort)

	require.NoError(f.registry.SetClaimPeriod(owner, 90*24*time.Hour))
	require.Equal(90*24*time.Hour, f.registry.ClaimPeriod())
}

func TestSetCustomClaimCollateral(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	other := ledger.New(ledger.Config{Symbol: "USDC", Address: common.HexToAddress("0xbeef"), Owner: owner}, nil)
	require.ErrorIs(f.registry.SetCustomClaimCollateral(claimant, other, big.NewInt(1)), domain.ErrUnauthorized)
	require.ErrorIs(f.registry.SetCustomClaimCollateral(owner, other, big.NewInt(0)), domain.ErrInvalidRate)

	require.NoError(f.registry.SetCustomClaimCollateral(owner, other, big.NewInt(3)))
	require.Equal(big.NewInt(3), f.registry.CollateralRate(other.Address()))
	require.Equal(int64(0), f.registry.CollateralRate(common.HexToAddress("0x1234")).Int64())
}
