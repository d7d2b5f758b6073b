package handler

import (
	"log/slog"
	"net/http"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/draggable"
)

// WrapperHandler serves the drag-along wrapper: wrap/unwrap/burn plus the
// acquisition lifecycle.
type WrapperHandler struct {
	token  *draggable.Token
	offers domain.OfferStore
	logger *slog.Logger
}

// NewWrapperHandler creates a WrapperHandler. offers may be nil; the history
// endpoint then reports the pending offer only.
func NewWrapperHandler(token *draggable.Token, offers domain.OfferStore, logger *slog.Logger) *WrapperHandler {
	return &WrapperHandler{token: token, offers: offers, logger: logHandler(logger, "wrapper")}
}

// GetInfo responds with the wrapper's identity, supply, and acquisition state.
// GET /api/wrapper
func (h *WrapperHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"name":         h.token.Name(),
		"symbol":       h.token.Symbol(),
		"address":      h.token.Address().Hex(),
		"total_supply": bigString(h.token.TotalSupply()),
		"acquired":     h.token.Acquired(),
	}
	if price := h.token.AcceptedPrice(); price != nil {
		out["accepted_price"] = price.String()
	}
	writeJSON(w, http.StatusOK, out)
}

// GetBalance responds with one account's wrapper balance.
// GET /api/wrapper/balance/{address}
func (h *WrapperHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(pathParam(r, "address"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": addr.Hex(),
		"balance": bigString(h.token.BalanceOf(addr)),
	})
}

// ListHolders responds with every non-zero wrapper balance.
// GET /api/wrapper/holders
func (h *WrapperHandler) ListHolders(w http.ResponseWriter, r *http.Request) {
	holders := h.token.Holders()
	out := make(map[string]string, len(holders))
	for addr, bal := range holders {
		out[addr.Hex()] = bal.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(out),
		"holders": out,
	})
}

type wrapRequest struct {
	Caller string `json:"caller"`
	Holder string `json:"holder"`
	Amount string `json:"amount"`
}

// Wrap pulls approved equity into escrow and issues wrapper units.
// POST /api/wrapper/wrap
func (h *WrapperHandler) Wrap(w http.ResponseWriter, r *http.Request) {
	var req wrapRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	holder := caller
	if req.Holder != "" {
		if holder, ok = parseAddress(req.Holder); !ok {
			writeError(w, http.StatusBadRequest, "invalid holder address")
			return
		}
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	if err := h.token.Wrap(caller, holder, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"holder":  holder.Hex(),
		"amount":  amount.String(),
		"balance": bigString(h.token.BalanceOf(holder)),
	})
}

type unwrapRequest struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

// Unwrap redeems wrapper units for acquisition proceeds. Only possible after
// a completed acquisition.
// POST /api/wrapper/unwrap
func (h *WrapperHandler) Unwrap(w http.ResponseWriter, r *http.Request) {
	var req unwrapRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	if err := h.token.Unwrap(caller, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"caller":  caller.Hex(),
		"amount":  amount.String(),
		"balance": bigString(h.token.BalanceOf(caller)),
	})
}

type burnRequest struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

// Burn destroys wrapper units together with the escrowed equity behind them.
// POST /api/wrapper/burn
func (h *WrapperHandler) Burn(w http.ResponseWriter, r *http.Request) {
	var req burnRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	if err := h.token.Burn(caller, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"caller":  caller.Hex(),
		"amount":  amount.String(),
		"balance": bigString(h.token.BalanceOf(caller)),
	})
}

type wrapperTransferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// Transfer moves wrapper units between holders. Vote weight on a pending
// offer follows the balance.
// POST /api/wrapper/transfer
func (h *WrapperHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req wrapperTransferRequest
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

	if err := h.token.Transfer(from, to, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":   from.Hex(),
		"to":     to.Hex(),
		"amount": amount.String(),
	})
}

type initiateOfferRequest struct {
	Buyer string `json:"buyer"`
	Price string `json:"price"`
}

// InitiateOffer opens (or replaces) an acquisition offer at the given price
// per unit.
// POST /api/acquisition/offer
func (h *WrapperHandler) InitiateOffer(w http.ResponseWriter, r *http.Request) {
	var req initiateOfferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	buyer, ok := parseAddress(req.Buyer)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid buyer address")
		return
	}
	price, ok := parseAmount(req.Price)
	if !ok || price.Sign() == 0 {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}

	snapshot, err := h.token.InitiateAcquisition(buyer, price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, offerJSON(snapshot))
}

// GetOffer responds with the pending acquisition offer.
// GET /api/acquisition/offer
func (h *WrapperHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.token.Offer()
	if !ok {
		writeError(w, http.StatusNotFound, "no pending offer")
		return
	}
	writeJSON(w, http.StatusOK, offerJSON(snapshot))
}

// ListOfferHistory responds with all offers ever made, newest first.
// GET /api/acquisition/history
func (h *WrapperHandler) ListOfferHistory(w http.ResponseWriter, r *http.Request) {
	if h.offers == nil {
		writeError(w, http.StatusNotImplemented, "offer history requires the database")
		return
	}

	offers, err := h.offers.ListHistory(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list offer history", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	out := make([]map[string]any, 0, len(offers))
	for _, o := range offers {
		out = append(out, offerJSON(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(out),
		"offers": out,
	})
}

type voteRequest struct {
	Caller string `json:"caller"`
	Side   string `json:"side"` // "yes" or "no"
}

// Vote casts or switches the caller's full wrapper balance for or against
// the pending offer.
// POST /api/acquisition/vote
func (h *WrapperHandler) Vote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	var err error
	switch req.Side {
	case "yes":
		err = h.token.VoteYes(caller)
	case "no":
		err = h.token.VoteNo(caller)
	default:
		writeError(w, http.StatusBadRequest, `side must be "yes" or "no"`)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	snapshot, _ := h.token.Offer()
	writeJSON(w, http.StatusOK, offerJSON(snapshot))
}

type completeRequest struct {
	Caller string `json:"caller"`
}

// Complete settles a sufficiently supported and funded offer: consideration
// in, escrowed equity out, wrapper frozen at the accepted price.
// POST /api/acquisition/complete
func (h *WrapperHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	if err := h.token.CompleteAcquisition(caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"acquired":       true,
		"accepted_price": bigString(h.token.AcceptedPrice()),
	})
}

type cancelRequest struct {
	Caller string `json:"caller"`
}

// Cancel withdraws the pending offer, buyer only.
// POST /api/acquisition/cancel
func (h *WrapperHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	if err := h.token.CancelAcquisition(caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}

type contestRequest struct {
	Caller string `json:"caller"`
}

// Contest voids an offer that expired, lost the vote, or lost its funding.
// Anyone may call; the verdict explains which ground applied.
// POST /api/acquisition/contest
func (h *WrapperHandler) Contest(w http.ResponseWriter, r *http.Request) {
	var req contestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	reason, err := h.token.ContestAcquisition(caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contested": true,
		"reason":    reason,
	})
}

type migrateRequest struct {
	Successor string `json:"successor"`
}

// Migrate hands the escrowed equity to a successor contract holding an
// absolute majority of the wrapper supply.
// POST /api/wrapper/migrate
func (h *WrapperHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	successor, ok := parseAddress(req.Successor)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid successor address")
		return
	}

	if err := h.token.Migrate(successor); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"migrated": true})
}
