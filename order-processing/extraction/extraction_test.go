package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kalpanik-operations/order-processing/types"
)

func str(s string) *string { return &s }
func num(n int) *int       { return &n }
func prio(p types.Priority) *types.Priority {
	return &p
}

func TestRuleExtractor(t *testing.T) {
	tests := []struct {
		text string
		want Extraction
	}{
		{
			text: "Hi! Need 15 pcs of Cotton T-Shirts by tomorrow 3pm, urgent please",
			want: Extraction{Product: str("cotton t-shirt"), Quantity: num(15), Unit: str("pcs"), Priority: prio(types.PriorityUrgent), Deadline: str("tomorrow 3pm")},
		},
		{
			text: "2 denim jeans before friday",
			want: Extraction{Product: str("denim jean"), Quantity: num(2), Deadline: str("friday")},
		},
		{
			text: "can I get 4 pieces canvas tote bags tomorrow at 10am? no rush",
			want: Extraction{Product: str("canvas tote bag"), Quantity: num(4), Unit: str("pcs"), Priority: prio(types.PriorityLow), Deadline: str("tomorrow at 10am")},
		},
		{
			text: "wool scarf please, ASAP",
			want: Extraction{Priority: prio(types.PriorityUrgent)},
		},
		{
			text: "I want 3 boxes",
			want: Extraction{Quantity: num(3), Unit: str("boxes")},
		},
		{
			text: "   ",
			want: Extraction{},
		},
	}
	ex := NewRuleExtractor()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ex.Extract(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleExtractorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRuleExtractor().Extract(ctx, "5 scarves")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyKeepsCallerFields(t *testing.T) {
	qty := 7
	p := types.OrderPayload{CustomerRef: "cust-1", ProductRef: "PRD-002", Quantity: &qty}
	e := Extraction{Product: str("wool scarf"), Quantity: num(1), Unit: str("pcs"), Priority: prio(types.PriorityHigh), Deadline: str("today")}

	got := Apply(p, e)
	assert.Equal(t, "PRD-002", got.ProductRef)
	assert.Equal(t, 7, *got.Quantity)
	assert.Equal(t, "pcs", got.Unit)
	assert.Equal(t, types.PriorityHigh, got.Priority)
	assert.Equal(t, "today", got.Deadline)

	*e.Quantity = 99
	empty := Apply(types.OrderPayload{}, e)
	*e.Quantity = 1
	assert.Equal(t, 99, *empty.Quantity)
}
