package handler

import (
	"log/slog"
	"net/http"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/ledger"
)

// TokenHandler serves reads and transfer operations for a single ledger,
// either the equity register or a collateral currency. Mutating requests
// name the acting address explicitly; the service trusts its API boundary
// (see the auth middleware) rather than signatures.
type TokenHandler struct {
	ledger *ledger.Ledger
	logger *slog.Logger
}

// NewTokenHandler creates a TokenHandler for the given ledger.
func NewTokenHandler(l *ledger.Ledger, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{ledger: l, logger: logHandler(logger, "token")}
}

// GetInfo responds with the ledger's identity and supply figures.
// GET /api/equity
func (h *TokenHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":         h.ledger.Name(),
		"symbol":       h.ledger.Symbol(),
		"address":      h.ledger.Address().Hex(),
		"owner":        h.ledger.Owner().Hex(),
		"total_supply": bigString(h.ledger.TotalSupply()),
		"total_shares": bigString(h.ledger.TotalShares()),
	})
}

// GetBalance responds with one account's balance.
// GET /api/equity/balance/{address}
func (h *TokenHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(pathParam(r, "address"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": addr.Hex(),
		"balance": bigString(h.ledger.BalanceOf(addr)),
	})
}

// ListHolders responds with every non-zero balance.
// GET /api/equity/holders
func (h *TokenHandler) ListHolders(w http.ResponseWriter, r *http.Request) {
	holders := h.ledger.Holders()
	out := make(map[string]string, len(holders))
	for addr, bal := range holders {
		out[addr.Hex()] = bal.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(out),
		"holders": out,
	})
}

// GetAllowance responds with the spender allowance granted by an owner.
// GET /api/equity/allowance?owner=0x..&spender=0x..
func (h *TokenHandler) GetAllowance(w http.ResponseWriter, r *http.Request) {
	owner, ok := parseAddress(r.URL.Query().Get("owner"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid owner address")
		return
	}
	spender, ok := parseAddress(r.URL.Query().Get("spender"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid spender address")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":     owner.Hex(),
		"spender":   spender.Hex(),
		"allowance": bigString(h.ledger.Allowance(owner, spender)),
	})
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// Transfer moves a balance between two accounts.
// POST /api/equity/transfer
func (h *TokenHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	from, ok := parseAddress(req.From)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid from address")
		return
	}
	to, ok := parseAddress(req.To)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid to address")
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	if err := h.ledger.Transfer(from, to, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":   from.Hex(),
		"to":     to.Hex(),
		"amount": amount.String(),
	})
}

type approveRequest struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// Approve sets a spender allowance.
// POST /api/equity/approve
func (h *TokenHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	owner, ok := parseAddress(req.Owner)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid owner address")
		return
	}
	spender, ok := parseAddress(req.Spender)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid spender address")
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	if err := h.ledger.Approve(owner, spender, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":     owner.Hex(),
		"spender":   spender.Hex(),
		"allowance": amount.String(),
	})
}

type mintRequest struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// Mint issues new units, owner only, within the registered share count.
// POST /api/equity/mint
func (h *TokenHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	to, ok := parseAddress(req.To)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid to address")
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	if err := h.ledger.Mint(caller, to, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"to":           to.Hex(),
		"amount":       amount.String(),
		"total_supply": bigString(h.ledger.TotalSupply()),
	})
}

type setTotalSharesRequest struct {
	Caller string `json:"caller"`
	Count  string `json:"count"`
}

// SetTotalShares records the company's registered share count, owner only.
// PUT /api/equity/total-shares
func (h *TokenHandler) SetTotalShares(w http.ResponseWriter, r *http.Request) {
	var req setTotalSharesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	count, ok := parseAmount(req.Count)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid count")
		return
	}

	if err := h.ledger.SetTotalShares(caller, count); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_shares": count.String(),
	})
}

type announceRequest struct {
	Caller  string `json:"caller"`
	Message string `json:"message"`
}

// Announce publishes an owner announcement into the transition feed.
// POST /api/equity/announce
func (h *TokenHandler) Announce(w http.ResponseWriter, r *http.Request) {
	var req announceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	if err := h.ledger.Announce(caller, req.Message); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"announced": true})
}
