package app

import (
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/claims"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/config"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/crypto"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/draggable"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/events"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/ledger"
)

// Core bundles the in-memory token state machines: the equity register, the
// settlement currencies, the drag-along wrapper, and the claim registries
// guarding the register and the wrapper. Every transition flows through the
// shared Recorder.
type Core struct {
	Owner      common.Address
	Equity     *ledger.Ledger
	Currencies map[common.Address]*ledger.Ledger
	Wrapper    *draggable.Token

	EquityClaims  *claims.Registry
	WrapperClaims *claims.Registry

	Recorder *events.Recorder
}

// equityAddress resolves the equity register's principal address.
func equityAddress(cfg *config.Config) common.Address {
	return tokenAddress(cfg.Equity.Address, "equity/"+cfg.Equity.Symbol)
}

// wrapperAddress resolves the wrapper's escrow principal address.
func wrapperAddress(cfg *config.Config) common.Address {
	return tokenAddress(cfg.Wrapper.Address, "wrapper/"+cfg.Wrapper.Symbol)
}

// tokenAddress returns the configured address, or one derived from the label
// when the configuration leaves it open.
func tokenAddress(configured, label string) common.Address {
	if common.IsHexAddress(configured) {
		return common.HexToAddress(configured)
	}
	return crypto.AddressFromLabel(label)
}

// resolveOwner determines the registry owner: a plain configured address, or
// the address controlled by the configured private key.
func resolveOwner(cfg config.OwnerConfig) (common.Address, error) {
	if cfg.Address != "" {
		if !common.IsHexAddress(cfg.Address) {
			return common.Address{}, fmt.Errorf("owner: invalid address %q", cfg.Address)
		}
		return common.HexToAddress(cfg.Address), nil
	}
	key, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.PrivateKey,
		EncryptedKeyPath: cfg.EncryptedKeyPath,
		KeyPassword:      cfg.KeyPassword,
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("owner: load key: %w", err)
	}
	return crypto.DeriveAddress(key)
}

// BuildCore constructs the token core from the configuration. hub may be nil;
// it is the websocket broadcaster for serve mode. The recorder is created
// first because every ledger and registry emits through it, then the
// read-model projector is attached on top of the finished core.
func BuildCore(cfg *config.Config, deps *Dependencies, hub events.Broadcaster, logger *slog.Logger) (*Core, error) {
	owner, err := resolveOwner(cfg.Owner)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	// A nil *notify.Notifier must reach the recorder as a nil interface.
	var notifier events.Notifier
	if deps.Notifier != nil {
		notifier = deps.Notifier
	}
	recorder := events.NewRecorder(deps.EventStore, deps.EventBus, hub, notifier, logger)

	equity := ledger.New(ledger.Config{
		Name:    cfg.Equity.Name,
		Symbol:  cfg.Equity.Symbol,
		Address: equityAddress(cfg),
		Owner:   owner,
	}, recorder)
	if cfg.Equity.TotalShares != "" {
		total, ok := new(big.Int).SetString(cfg.Equity.TotalShares, 10)
		if !ok || total.Sign() < 0 {
			return nil, fmt.Errorf("core: equity: invalid total_shares %q", cfg.Equity.TotalShares)
		}
		if err := equity.SetTotalShares(owner, total); err != nil {
			return nil, fmt.Errorf("core: equity: %w", err)
		}
	}
	if err := mintAllocations(equity, owner, cfg.Equity.Allocations); err != nil {
		return nil, fmt.Errorf("core: equity: %w", err)
	}

	currencies := make(map[common.Address]*ledger.Ledger, len(cfg.Currencies))
	rates := make(map[common.Address]*big.Int, len(cfg.Currencies))
	var settlement *ledger.Ledger
	for i, cc := range cfg.Currencies {
		if !common.IsHexAddress(cc.Address) {
			return nil, fmt.Errorf("core: currency %q: invalid address %q", cc.Symbol, cc.Address)
		}
		addr := common.HexToAddress(cc.Address)
		cur := ledger.New(ledger.Config{
			Name:    cc.Name,
			Symbol:  cc.Symbol,
			Address: addr,
			Owner:   owner,
		}, recorder)
		if err := mintAllocations(cur, owner, cc.Allocations); err != nil {
			return nil, fmt.Errorf("core: currency %q: %w", cc.Symbol, err)
		}
		rate := big.NewInt(1)
		if cc.Rate != "" {
			var ok bool
			rate, ok = new(big.Int).SetString(cc.Rate, 10)
			if !ok || rate.Sign() <= 0 {
				return nil, fmt.Errorf("core: currency %q: invalid collateral_rate %q", cc.Symbol, cc.Rate)
			}
		}
		currencies[addr] = cur
		rates[addr] = rate
		if i == 0 {
			settlement = cur
		}
	}
	if settlement == nil {
		return nil, fmt.Errorf("core: at least one settlement currency is required")
	}

	wrapperCfg := draggable.DefaultConfig()
	if v := cfg.Acquisition.MinEquityPercent; v > 0 {
		wrapperCfg.MinEquityPercent = v
	}
	if v := cfg.Acquisition.MinStakePercent; v > 0 {
		wrapperCfg.MinStakePercent = v
	}
	if v := cfg.Acquisition.ReplacementPremiumPercent; v > 0 {
		wrapperCfg.ReplacementPremiumPercent = v
	}
	if v := cfg.Acquisition.VotingWindow.Duration; v > 0 {
		wrapperCfg.Voting.VotingWindow = v
	}
	if v := cfg.Acquisition.OfferLifetime.Duration; v > 0 {
		wrapperCfg.Voting.Lifetime = v
	}
	wrapper := draggable.New(
		cfg.Wrapper.Name, cfg.Wrapper.Symbol, wrapperAddress(cfg),
		equity, settlement, wrapperCfg, recorder,
	)

	claimCfg := claims.DefaultConfig()
	if v := cfg.Claims.ClaimPeriod.Duration; v > 0 {
		claimCfg.ClaimPeriod = v
	}
	if v := cfg.Claims.PreclaimMinDelay.Duration; v > 0 {
		claimCfg.PreclaimMinDelay = v
	}
	if v := cfg.Claims.PreclaimMaxDelay.Duration; v > 0 {
		claimCfg.PreclaimMaxDelay = v
	}

	// Each registry escrows collateral under its token's own address.
	equityClaims, err := claims.New(equity, owner, equity.Address(), claimCfg, recorder)
	if err != nil {
		return nil, fmt.Errorf("core: equity claims: %w", err)
	}
	wrapperClaims, err := claims.New(wrapper, owner, wrapper.Address(), claimCfg, recorder)
	if err != nil {
		return nil, fmt.Errorf("core: wrapper claims: %w", err)
	}

	// The wrapper's escrow account cannot prove key loss; left claimable, a
	// claim against it would seize the entire escrowed equity.
	equityClaims.SetClaimable(wrapper.Address(), false)
	for addr, cur := range currencies {
		if err := equityClaims.SetCustomClaimCollateral(owner, cur, rates[addr]); err != nil {
			return nil, fmt.Errorf("core: equity claims: register currency: %w", err)
		}
		if err := wrapperClaims.SetCustomClaimCollateral(owner, cur, rates[addr]); err != nil {
			return nil, fmt.Errorf("core: wrapper claims: register currency: %w", err)
		}
	}

	if deps.EquityClaimStore != nil || deps.OfferStore != nil {
		claimStores := map[common.Address]domain.ClaimStore{}
		if deps.EquityClaimStore != nil {
			claimStores[equity.Address()] = deps.EquityClaimStore
		}
		if deps.WrapClaimStore != nil {
			claimStores[wrapper.Address()] = deps.WrapClaimStore
		}
		recorder.SetProjector(events.NewProjector(claimStores, deps.OfferStore, wrapper, logger))
	}

	return &Core{
		Owner:         owner,
		Equity:        equity,
		Currencies:    currencies,
		Wrapper:       wrapper,
		EquityClaims:  equityClaims,
		WrapperClaims: wrapperClaims,
		Recorder:      recorder,
	}, nil
}

func mintAllocations(l *ledger.Ledger, owner common.Address, allocs []config.AllocationEntry) error {
	for _, a := range allocs {
		if !common.IsHexAddress(a.Address) {
			return fmt.Errorf("allocation: invalid address %q", a.Address)
		}
		amount, ok := new(big.Int).SetString(a.Amount, 10)
		if !ok || amount.Sign() <= 0 {
			return fmt.Errorf("allocation %s: invalid amount %q", a.Address, a.Amount)
		}
		if err := l.Mint(owner, common.HexToAddress(a.Address), amount); err != nil {
			return fmt.Errorf("allocation %s: %w", a.Address, err)
		}
	}
	return nil
}
