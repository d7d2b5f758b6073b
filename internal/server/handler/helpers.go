package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps core sentinel errors onto HTTP status codes and
// sends the error message as JSON.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, domainStatus(err), err.Error())
}

// domainStatus picks the HTTP status for a core error. Authorization
// failures map to 403, missing state to 404, state conflicts to 409, and
// everything else (failed preconditions on an otherwise well-formed request)
// to 422.
func domainStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNoClaimFound),
		errors.Is(err, domain.ErrNoPendingOffer):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrPendingOffer),
		errors.Is(err, domain.ErrOfferAlreadyAccepted):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

// decodeBody parses the request body as JSON into dst, with unknown fields
// rejected so typos in client payloads surface as errors.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// parseAddress validates and parses a hex address field.
func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

// parseAmount parses a non-negative decimal amount.
func parseAmount(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}

// bigString renders a big.Int for JSON output; nil becomes "0".
func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// claimJSON is the wire shape of a claim.
func claimJSON(c domain.Claim) map[string]any {
	return map[string]any{
		"target":      c.Target.Hex(),
		"claimant":    c.Claimant.Hex(),
		"currency":    c.Currency.Hex(),
		"collateral":  bigString(c.Collateral),
		"declared_at": c.DeclaredAt,
	}
}

// offerJSON is the wire shape of an offer snapshot.
func offerJSON(o domain.OfferSnapshot) map[string]any {
	return map[string]any{
		"id":         o.ID,
		"buyer":      o.Buyer.Hex(),
		"price":      bigString(o.Price),
		"currency":   o.Currency.Hex(),
		"created_at": o.CreatedAt,
		"yes_votes":  bigString(o.YesVotes),
		"no_votes":   bigString(o.NoVotes),
		"status":     string(o.Status),
	}
}
