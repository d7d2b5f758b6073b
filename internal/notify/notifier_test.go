package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

type fakeSender struct {
	name string
	err  error
	got  []Message
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	f.got = append(f.got, msg)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRenderOfferCompleted(t *testing.T) {
	require := require.New(t)

	msg := Render(domain.Event{
		Kind:   domain.EventOfferCompleted,
		Actor:  common.HexToAddress("0x01"),
		Amount: big.NewInt(120000),
		Price:  big.NewInt(12),
	})

	require.Equal("Acquisition completed", msg.Headline)
	require.Equal(domain.EventOfferCompleted, msg.Kind)
	require.Len(msg.Details, 3)
	require.Equal(Detail{"Buyer", common.HexToAddress("0x01").Hex()}, msg.Details[0])
	require.Equal(Detail{"Price per share", "12"}, msg.Details[1])
	require.Equal(Detail{"Consideration", "120000"}, msg.Details[2])
}

func TestRenderClaimDeclared(t *testing.T) {
	require := require.New(t)

	lost := common.HexToAddress("0x02")
	claimant := common.HexToAddress("0x03")
	msg := Render(domain.Event{
		Kind:    domain.EventClaimDeclared,
		Actor:   claimant,
		Subject: lost,
		Amount:  big.NewInt(5000),
	})

	require.Equal("Lost-address claim declared", msg.Headline)
	require.Equal([]Detail{
		{"Lost address", lost.Hex()},
		{"Claimant", claimant.Hex()},
		{"Collateral", "5000"},
	}, msg.Details)
}

func TestRenderOfferFailedCarriesVerdict(t *testing.T) {
	require := require.New(t)

	msg := Render(domain.Event{
		Kind:    domain.EventOfferFailed,
		Subject: common.HexToAddress("0x04"),
		Reason:  "Offer expired",
	})

	require.Equal("Acquisition offer failed", msg.Headline)
	require.Equal(Detail{"Verdict", "Offer expired"}, msg.Details[1])
}

func TestRenderUnknownKindFallsBack(t *testing.T) {
	require := require.New(t)

	msg := Render(domain.Event{
		Kind:   domain.EventTransfer,
		Actor:  common.HexToAddress("0x05"),
		Amount: big.NewInt(7),
	})

	require.Equal("transfer", msg.Headline)
	require.Equal(Detail{"Amount", "7"}, msg.Details[1])
}

func TestNotifyFiltersByKind(t *testing.T) {
	require := require.New(t)

	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, []string{"claim_declared"}, testLogger())

	require.NoError(n.Notify(context.Background(), domain.Event{Kind: domain.EventTransfer}))
	require.Empty(sender.got)

	require.NoError(n.Notify(context.Background(), domain.Event{Kind: domain.EventClaimDeclared}))
	require.Len(sender.got, 1)
	require.Equal("Lost-address claim declared", sender.got[0].Headline)
}

func TestNotifyEmptyFilterAllowsEverything(t *testing.T) {
	require := require.New(t)

	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, nil, testLogger())

	require.NoError(n.Notify(context.Background(), domain.Event{Kind: domain.EventTransfer}))
	require.Len(sender.got, 1)
}

func TestNotifyCollectsSenderErrors(t *testing.T) {
	require := require.New(t)

	broken := &fakeSender{name: "broken", err: errors.New("boom")}
	healthy := &fakeSender{name: "healthy"}
	n := NewNotifier([]Sender{broken, healthy}, nil, testLogger())

	err := n.Notify(context.Background(), domain.Event{Kind: domain.EventAnnouncement, Reason: "hi"})
	require.Error(err)
	require.Contains(err.Error(), "broken")
	// One bad channel must not block the other.
	require.Len(healthy.got, 1)
}

func TestFormatMarkdown(t *testing.T) {
	require := require.New(t)

	text := FormatMarkdown(Message{
		Headline: "Claim resolved",
		Details: []Detail{
			{"Claimant", "0x0000000000000000000000000000000000000003"},
			{"Recovered", "42"},
		},
	})

	require.Equal("*Claim resolved*\nClaimant: `0x0000000000000000000000000000000000000003`\nRecovered: 42", text)
}

func TestEmbedColorByOutcome(t *testing.T) {
	require := require.New(t)

	require.Equal(colorGreen, embedColor(domain.EventOfferCompleted))
	require.Equal(colorRed, embedColor(domain.EventOfferFailed))
	require.Equal(colorAmber, embedColor(domain.EventClaimDeclared))
	require.Equal(colorNeutral, embedColor(domain.EventTransfer))
}
