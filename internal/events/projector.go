package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

// OfferSource exposes the authoritative pending offer. The wrapper token
// implements it.
type OfferSource interface {
	Offer() (domain.OfferSnapshot, bool)
}

// Projector keeps the relational read models aligned with the in-memory core.
// It consumes the same ordered event feed as the journal: claim transitions
// update the claims table of the emitting token, offer transitions update the
// offer history. Registered on the Recorder, which delivers events one at a
// time in emission order.
type Projector struct {
	claims map[common.Address]domain.ClaimStore // keyed by claimed token address
	offers domain.OfferStore
	source OfferSource
	logger *slog.Logger

	// pendingOfferID is the id of the last offer written as pending, used to
	// close out its row on terminal transitions. Only touched from the
	// recorder's delivery goroutine.
	pendingOfferID string
}

// NewProjector creates a Projector. claims maps each claimed token address to
// its store; offers and source may be nil when offer history is not persisted.
func NewProjector(claims map[common.Address]domain.ClaimStore, offers domain.OfferStore, source OfferSource, logger *slog.Logger) *Projector {
	return &Projector{
		claims: claims,
		offers: offers,
		source: source,
		logger: logger.With(slog.String("component", "projector")),
	}
}

// Apply folds one event into the read models. Errors are logged, not
// returned: the in-memory transition has already committed, and the journal
// row carries enough to rebuild the read model.
func (p *Projector) Apply(ctx context.Context, ev domain.Event) {
	switch ev.Kind {
	case domain.EventClaimDeclared:
		p.applyClaim(ctx, ev, domain.Claim{
			Target:     ev.Subject,
			Claimant:   ev.Actor,
			Currency:   ev.Currency,
			Collateral: ev.Amount,
			DeclaredAt: ev.Timestamp,
		}, domain.ClaimStatusOpen)
	case domain.EventClaimCleared:
		// Target rescued itself; actor is the target, subject the claimant.
		p.closeClaim(ctx, ev, ev.Actor, domain.ClaimStatusCleared)
	case domain.EventClaimDeleted:
		p.closeClaim(ctx, ev, ev.Subject, domain.ClaimStatusDeleted)
	case domain.EventClaimResolved:
		p.closeClaim(ctx, ev, ev.Subject, domain.ClaimStatusResolved)
	case domain.EventOfferCreated:
		p.upsertPending(ctx)
	case domain.EventOfferReplaced:
		p.closeOffer(ctx, domain.OfferStatusReplaced, "")
		p.upsertPending(ctx)
	case domain.EventVoteCast:
		p.upsertPending(ctx)
	case domain.EventOfferCompleted:
		p.closeOffer(ctx, domain.OfferStatusAccepted, "")
	case domain.EventOfferCancelled:
		p.closeOffer(ctx, domain.OfferStatusCancelled, "")
	case domain.EventOfferFailed:
		p.closeOffer(ctx, domain.OfferStatusContested, ev.Reason)
	}
}

func (p *Projector) applyClaim(ctx context.Context, ev domain.Event, claim domain.Claim, status domain.ClaimStatus) {
	store, ok := p.claims[ev.Token]
	if !ok {
		return
	}
	if err := store.Upsert(ctx, claim, status); err != nil {
		p.logger.WarnContext(ctx, "claim projection failed",
			slog.String("token", ev.Token.Hex()),
			slog.String("target", claim.Target.Hex()),
			slog.String("error", err.Error()),
		)
	}
}

// closeClaim moves the open claim on target to a terminal status. The event
// does not carry the full claim, so the open row supplies the declaration
// fields.
func (p *Projector) closeClaim(ctx context.Context, ev domain.Event, target common.Address, status domain.ClaimStatus) {
	store, ok := p.claims[ev.Token]
	if !ok {
		return
	}
	claim, err := store.GetOpen(ctx, target.Hex())
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.logger.WarnContext(ctx, "claim projection lookup failed",
				slog.String("target", target.Hex()),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	p.applyClaim(ctx, ev, claim, status)
}

func (p *Projector) upsertPending(ctx context.Context) {
	if p.offers == nil || p.source == nil {
		return
	}
	snapshot, ok := p.source.Offer()
	if !ok {
		return
	}
	if err := p.offers.Upsert(ctx, snapshot); err != nil {
		p.logger.WarnContext(ctx, "offer projection failed",
			slog.String("offer_id", snapshot.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	p.pendingOfferID = snapshot.ID
}

func (p *Projector) closeOffer(ctx context.Context, status domain.OfferStatus, reason string) {
	if p.offers == nil || p.pendingOfferID == "" {
		return
	}
	if err := p.offers.SetStatus(ctx, p.pendingOfferID, status, reason); err != nil {
		p.logger.WarnContext(ctx, "offer status projection failed",
			slog.String("offer_id", p.pendingOfferID),
			slog.String("error", err.Error()),
		)
	}
	p.pendingOfferID = ""
}
