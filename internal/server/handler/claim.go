package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/claims"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

// CurrencyLookup resolves a collateral currency ledger by its address.
type CurrencyLookup func(addr common.Address) (domain.Token, bool)

// ClaimHandler serves the lost-address claim lifecycle for one registry.
// The server mounts one instance per claim-enabled token, so route comments
// below use {prefix} for the mount point.
type ClaimHandler struct {
	registry   *claims.Registry
	currencies CurrencyLookup
	store      domain.ClaimStore
	logger     *slog.Logger
}

// NewClaimHandler creates a ClaimHandler. store may be nil; historical list
// endpoints then fall back to the registry's in-memory view.
func NewClaimHandler(registry *claims.Registry, currencies CurrencyLookup, store domain.ClaimStore, logger *slog.Logger) *ClaimHandler {
	return &ClaimHandler{
		registry:   registry,
		currencies: currencies,
		store:      store,
		logger:     logHandler(logger, "claim"),
	}
}

type prepareClaimRequest struct {
	Claimant   string `json:"claimant"`
	Commitment string `json:"commitment"`
}

// Prepare records a claim commitment for the claimant. A repeated call
// overwrites the previous commitment and restarts the reveal window.
// POST {prefix}/prepare
func (h *ClaimHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	var req prepareClaimRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	claimant, ok := parseAddress(req.Claimant)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid claimant address")
		return
	}
	commitment := common.HexToHash(req.Commitment)
	if commitment == (common.Hash{}) {
		writeError(w, http.StatusBadRequest, "invalid commitment")
		return
	}

	h.registry.PrepareClaim(claimant, commitment)
	writeJSON(w, http.StatusOK, map[string]any{
		"claimant":   claimant.Hex(),
		"commitment": commitment.Hex(),
	})
}

type declareLostRequest struct {
	Claimant string `json:"claimant"`
	Currency string `json:"currency"`
	Target   string `json:"target"`
	Nonce    string `json:"nonce"`
}

// Declare reveals a prepared claim, posting collateral against the target's
// balance.
// POST {prefix}/declare
func (h *ClaimHandler) Declare(w http.ResponseWriter, r *http.Request) {
	var req declareLostRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	claimant, ok := parseAddress(req.Claimant)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid claimant address")
		return
	}
	currency, ok := parseAddress(req.Currency)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid currency address")
		return
	}
	target, ok := parseAddress(req.Target)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid target address")
		return
	}
	nonce := common.HexToHash(req.Nonce)

	claim, err := h.registry.DeclareLost(claimant, currency, target, nonce)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, claimJSON(claim))
}

type clearClaimRequest struct {
	Caller string `json:"caller"`
}

// Clear lets a claimed address prove liveness, keeping its balance and
// pocketing the claimant's collateral. Clearing with no claim is a no-op.
// POST {prefix}/clear
func (h *ClaimHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var req clearClaimRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	if err := h.registry.ClearClaim(caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

type resolveClaimRequest struct {
	Caller string `json:"caller"`
}

// Resolve completes a matured claim, moving the target's balance and the
// posted collateral to the claimant.
// POST {prefix}/{target}/resolve
func (h *ClaimHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	target, ok := parseAddress(pathParam(r, "target"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid target address")
		return
	}
	var req resolveClaimRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	if err := h.registry.ResolveClaim(caller, target); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resolved": true})
}

type deleteClaimRequest struct {
	Caller string `json:"caller"`
}

// Delete removes a claim administratively, refunding the collateral.
// DELETE {prefix}/{target}
func (h *ClaimHandler) Delete(w http.ResponseWriter, r *http.Request) {
	target, ok := parseAddress(pathParam(r, "target"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid target address")
		return
	}
	var req deleteClaimRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	if err := h.registry.DeleteClaim(caller, target); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// Get responds with the open claim on a target address.
// GET {prefix}/{target}
func (h *ClaimHandler) Get(w http.ResponseWriter, r *http.Request) {
	target, ok := parseAddress(pathParam(r, "target"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid target address")
		return
	}

	claim, found := h.registry.Claim(target)
	if !found {
		writeError(w, http.StatusNotFound, "no claim found")
		return
	}
	writeJSON(w, http.StatusOK, claimJSON(claim))
}

// List responds with all open claims.
// GET {prefix}
func (h *ClaimHandler) List(w http.ResponseWriter, r *http.Request) {
	open := h.registry.OpenClaims()
	out := make([]map[string]any, 0, len(open))
	for _, c := range open {
		out = append(out, claimJSON(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(out),
		"claims": out,
	})
}

// ListByClaimant responds with the journal of claims a claimant has declared,
// including terminal ones.
// GET {prefix}/by-claimant/{claimant}
func (h *ClaimHandler) ListByClaimant(w http.ResponseWriter, r *http.Request) {
	claimant, ok := parseAddress(pathParam(r, "claimant"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid claimant address")
		return
	}
	if h.store == nil {
		writeError(w, http.StatusNotImplemented, "claim history requires the database")
		return
	}

	claims, err := h.store.ListByClaimant(r.Context(), claimant.Hex(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list claims by claimant", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	out := make([]map[string]any, 0, len(claims))
	for _, c := range claims {
		out = append(out, claimJSON(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(out),
		"claims": out,
	})
}

// GetConfig responds with the registry's claim parameters.
// GET {prefix}/config
func (h *ClaimHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	currency := r.URL.Query().Get("currency")
	out := map[string]any{
		"claim_period_seconds": int64(h.registry.ClaimPeriod() / time.Second),
	}
	if addr, ok := parseAddress(currency); ok {
		out["currency"] = addr.Hex()
		out["collateral_rate"] = bigString(h.registry.CollateralRate(addr))
	}
	writeJSON(w, http.StatusOK, out)
}

type collateralRateRequest struct {
	Caller   string `json:"caller"`
	Currency string `json:"currency"`
	Rate     string `json:"rate"`
}

// SetCollateralRate registers a collateral currency with its per-unit rate,
// owner only.
// PUT {prefix}/collateral-rate
func (h *ClaimHandler) SetCollateralRate(w http.ResponseWriter, r *http.Request) {
	var req collateralRateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	currencyAddr, ok := parseAddress(req.Currency)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid currency address")
		return
	}
	rate, ok := parseAmount(req.Rate)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid rate")
		return
	}
	currency, found := h.currencies(currencyAddr)
	if !found {
		writeError(w, http.StatusNotFound, "unknown currency")
		return
	}

	if err := h.registry.SetCustomClaimCollateral(caller, currency, rate); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"currency": currencyAddr.Hex(),
		"rate":     rate.String(),
	})
}

type claimPeriodRequest struct {
	Caller        string `json:"caller"`
	PeriodSeconds int64  `json:"period_seconds"`
}

// SetPeriod adjusts the claim resolution delay, owner only, no shorter than
// the 90 day floor.
// PUT {prefix}/period
func (h *ClaimHandler) SetPeriod(w http.ResponseWriter, r *http.Request) {
	var req claimPeriodRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	period := time.Duration(req.PeriodSeconds) * time.Second
	if err := h.registry.SetClaimPeriod(caller, period); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"claim_period_seconds": req.PeriodSeconds,
	})
}

type claimableRequest struct {
	Caller    string `json:"caller"`
	Claimable bool   `json:"claimable"`
}

// SetClaimable toggles whether the caller's own balance can be claimed.
// Custodial addresses with off-chain recovery opt out this way.
// PUT {prefix}/claimable
func (h *ClaimHandler) SetClaimable(w http.ResponseWriter, r *http.Request) {
	var req claimableRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	h.registry.SetClaimable(caller, req.Claimable)
	writeJSON(w, http.StatusOK, map[string]any{
		"address":   caller.Hex(),
		"claimable": req.Claimable,
	})
}
