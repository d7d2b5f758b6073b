// Package notify alerts operators about registry transitions. Each event is
// rendered once into a channel-neutral message (a headline plus labeled
// detail lines) and dispatched to all registered senders (Telegram, Discord),
// filtered by event kind, so an operator can watch claim declarations and
// acquisition offers without hearing about every transfer.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

// Detail is one labeled line of a notification.
type Detail struct {
	Label string
	Value string
}

// Message is a rendered notification. Kind carries the originating event
// kind so senders can style terminal outcomes differently.
type Message struct {
	Kind     domain.EventKind
	Headline string
	Details  []Detail
}

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a rendered message over the channel.
	Send(ctx context.Context, msg Message) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier renders registry events and dispatches them to one or more
// Senders. It maintains a set of allowed event kinds; Notify only forwards
// events whose kind is in the allowed set.
type Notifier struct {
	senders []Sender
	kinds   map[domain.EventKind]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// events whose kind appears in the kinds slice will be forwarded by Notify.
// If kinds is empty, all event kinds are allowed.
func NewNotifier(senders []Sender, kinds []string, logger *slog.Logger) *Notifier {
	allowed := make(map[domain.EventKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[domain.EventKind(strings.TrimSpace(k))] = true
	}
	return &Notifier{
		senders: senders,
		kinds:   allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify renders the event and sends it to all senders, only if the event
// kind is in the allowed list. If no kinds were configured (empty list), all
// events pass. Errors from individual senders are collected and returned as
// a combined error; a single sender failure does not prevent delivery to the
// remaining senders.
func (n *Notifier) Notify(ctx context.Context, ev domain.Event) error {
	if len(n.kinds) > 0 && !n.kinds[ev.Kind] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("kind", string(ev.Kind)),
		)
		return nil
	}
	if len(n.senders) == 0 {
		return nil
	}

	msg := Render(ev)

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, msg); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("kind", string(ev.Kind)),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("headline", msg.Headline),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// Render builds the channel-neutral message for a registry event. Claim and
// offer transitions get a proper headline with the figures an operator asks
// for first; anything else falls back to the raw kind.
func Render(ev domain.Event) Message {
	msg := Message{Kind: ev.Kind}
	switch ev.Kind {
	case domain.EventOfferCreated:
		msg.Headline = "Acquisition offer opened"
		msg.Details = offerDetails(ev)
	case domain.EventOfferReplaced:
		msg.Headline = "Acquisition offer replaced"
		msg.Details = offerDetails(ev)
	case domain.EventOfferCompleted:
		msg.Headline = "Acquisition completed"
		msg.Details = append(offerDetails(ev),
			Detail{"Consideration", bigString(ev.Amount)})
	case domain.EventOfferCancelled:
		msg.Headline = "Acquisition offer cancelled"
		msg.Details = []Detail{{"Buyer", ev.Actor.Hex()}}
	case domain.EventOfferFailed:
		msg.Headline = "Acquisition offer failed"
		msg.Details = []Detail{
			{"Buyer", ev.Subject.Hex()},
			{"Verdict", ev.Reason},
		}
	case domain.EventClaimDeclared:
		msg.Headline = "Lost-address claim declared"
		msg.Details = []Detail{
			{"Lost address", ev.Subject.Hex()},
			{"Claimant", ev.Actor.Hex()},
			{"Collateral", bigString(ev.Amount)},
		}
	case domain.EventClaimResolved:
		msg.Headline = "Claim resolved"
		msg.Details = []Detail{
			{"Lost address", ev.Subject.Hex()},
			{"Claimant", ev.Actor.Hex()},
			{"Recovered", bigString(ev.Amount)},
		}
	case domain.EventClaimCleared:
		msg.Headline = "Claim cleared"
		msg.Details = []Detail{{"Lost address", ev.Subject.Hex()}}
	case domain.EventClaimDeleted:
		msg.Headline = "Claim deleted"
		msg.Details = []Detail{
			{"Lost address", ev.Subject.Hex()},
			{"Collateral burned", bigString(ev.Amount)},
		}
	case domain.EventMigrated:
		msg.Headline = "Registry migrated"
		msg.Details = []Detail{
			{"Successor", ev.Subject.Hex()},
			{"Supply moved", bigString(ev.Amount)},
		}
	case domain.EventAnnouncement:
		msg.Headline = "Announcement"
		msg.Details = []Detail{{"Message", ev.Reason}}
	default:
		msg.Headline = string(ev.Kind)
		msg.Details = []Detail{{"Actor", ev.Actor.Hex()}}
		if ev.Amount != nil {
			msg.Details = append(msg.Details, Detail{"Amount", ev.Amount.String()})
		}
		if ev.Reason != "" {
			msg.Details = append(msg.Details, Detail{"Reason", ev.Reason})
		}
	}
	return msg
}

func offerDetails(ev domain.Event) []Detail {
	return []Detail{
		{"Buyer", ev.Actor.Hex()},
		{"Price per share", bigString(ev.Price)},
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
