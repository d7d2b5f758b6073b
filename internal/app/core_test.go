package app

import (
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/config"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

const currencyAddr = "0x00000000000000000000000000000000000000c1"

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Owner.Address = "0x0000000000000000000000000000000000000a11"
	cfg.Equity.Address = "0x00000000000000000000000000000000000000e9"
	cfg.Equity.TotalShares = "10000"
	cfg.Equity.Allocations = []config.AllocationEntry{
		{Address: "0x0000000000000000000000000000000000000001", Amount: "6000"},
	}
	cfg.Wrapper.Address = "0x00000000000000000000000000000000000000dd"
	cfg.Currencies = []config.CurrencyConfig{
		{Name: "CryptoFranc", Symbol: "XCHF", Address: currencyAddr, Rate: "1"},
	}
	return &cfg
}

func testAppLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildCoreAssemblesLedgers(t *testing.T) {
	require := require.New(t)

	core, err := BuildCore(testConfig(), &Dependencies{}, nil, testAppLogger())
	require.NoError(err)

	require.Equal("SHS", core.Equity.Symbol())
	require.Equal(big.NewInt(10000), core.Equity.TotalShares())
	require.Equal(big.NewInt(6000),
		core.Equity.BalanceOf(common.HexToAddress("0x0000000000000000000000000000000000000001")))
	require.Contains(core.Currencies, common.HexToAddress(currencyAddr))
}

func TestBuildCoreMarksWrapperEscrowUnclaimable(t *testing.T) {
	require := require.New(t)

	core, err := BuildCore(testConfig(), &Dependencies{}, nil, testAppLogger())
	require.NoError(err)

	escrow := core.Wrapper.Address()
	require.False(core.EquityClaims.IsClaimable(escrow))

	// A claim against the escrow would otherwise seize all wrapped equity.
	claimant := common.HexToAddress("0x0000000000000000000000000000000000000007")
	_, err = core.EquityClaims.DeclareLost(claimant, common.HexToAddress(currencyAddr), escrow, common.Hash{})
	require.ErrorIs(err, domain.ErrClaimsDisabled)

	// Ordinary holders stay claimable.
	require.True(core.EquityClaims.IsClaimable(
		common.HexToAddress("0x0000000000000000000000000000000000000001")))
}
