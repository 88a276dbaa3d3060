package drafting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/wardstate/internal/platform/apperr"
)

var req = Request{
	Kind:    KindAutopsyReport,
	Subject: "John Doe",
	Facts:   map[string]string{"Cause of death": "Cardiac arrest", "Date of death": "2026-04-12", "Notes": " "},
}

func TestGuarded_PassesThrough(t *testing.T) {
	d := Guarded(TemplateDrafter{}, time.Second, nil)
	text, err := d.Draft(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Autopsy report: John Doe\n\nCause of death: Cardiac arrest\nDate of death: 2026-04-12\n", text)
}

func TestGuarded_MapsFailures(t *testing.T) {
	tests := map[string]Drafter{
		"error": Func(func(context.Context, Request) (string, error) {
			return "", errors.New("quota exceeded")
		}),
		"empty": Func(func(context.Context, Request) (string, error) {
			return "  \n", nil
		}),
		"timeout": Func(func(ctx context.Context, _ Request) (string, error) {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			return "late", nil
		}),
		"panic": Func(func(context.Context, Request) (string, error) {
			panic("boom")
		}),
	}
	for name, d := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Guarded(d, 20*time.Millisecond, nil).Draft(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperr.IsCollaborator(err), "got %v", err)
		})
	}
}

func TestGuarded_RespectsCallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	block := Func(func(ctx context.Context, _ Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := Guarded(block, 0, nil).Draft(ctx, req)
	assert.True(t, apperr.IsCollaborator(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTemplateDrafter_Referral(t *testing.T) {
	text, err := TemplateDrafter{}.Draft(context.Background(), Request{
		Kind: KindReferralLetter, Subject: "Ada", Instructions: "Please review for surgery.",
	})
	require.NoError(t, err)
	assert.Contains(t, text, "Referral letter for Ada")
	assert.Contains(t, text, "Please review for surgery.")

	_, err = TemplateDrafter{}.Draft(context.Background(), Request{Kind: "poem"})
	assert.Error(t, err)
}
