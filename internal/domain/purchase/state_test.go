package purchase_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"musicvault/internal/domain/payment"
	"musicvault/internal/domain/purchase"
)

func TestValidateTransition(t *testing.T) {
	receipt := &payment.Receipt{TransactionRef: "sig"}

	allowed := []struct {
		from, to purchase.State
	}{
		{purchase.Idle{}, purchase.PaymentProcessing{}},
		{purchase.PaymentProcessing{}, purchase.PaymentProcessing{Action: &purchase.Action{Type: purchase.ActionSignTransaction}}},
		{purchase.PaymentProcessing{}, purchase.PaymentConfirmed{}},
		{purchase.PaymentProcessing{}, purchase.Idle{}},
		{purchase.PaymentProcessing{}, purchase.Failed{Stage: purchase.StagePayment}},
		{purchase.PaymentConfirmed{}, purchase.MintProcessing{}},
		{purchase.PaymentConfirmed{}, purchase.Failed{Stage: purchase.StageMint, Reason: purchase.FailureMinting, Receipt: receipt}},
		{purchase.MintProcessing{}, purchase.MintConfirmed{}},
		{purchase.MintProcessing{}, purchase.Failed{Stage: purchase.StageMint, Receipt: receipt}},
		{purchase.Failed{}, purchase.Idle{}},
	}
	for _, tc := range allowed {
		require.NoError(t, purchase.ValidateTransition(tc.from, tc.to), "%s -> %s", tc.from.Kind(), tc.to.Kind())
	}

	rejected := []struct {
		from, to purchase.State
	}{
		{purchase.Idle{}, purchase.MintProcessing{}},
		{purchase.Idle{}, purchase.PaymentConfirmed{}},
		{purchase.PaymentProcessing{}, purchase.MintProcessing{}},
		{purchase.PaymentConfirmed{}, purchase.Idle{}},
		{purchase.MintConfirmed{}, purchase.Idle{}},
		{purchase.Failed{}, purchase.PaymentProcessing{}},
		{purchase.MintProcessing{}, purchase.Failed{Stage: purchase.StageMint}},
		{purchase.PaymentConfirmed{}, purchase.Failed{Stage: purchase.StageMint}},
		{nil, purchase.Idle{}},
	}
	for _, tc := range rejected {
		require.ErrorIs(t, purchase.ValidateTransition(tc.from, tc.to), purchase.ErrInvalidTransition)
	}
}

func TestSlotsOf(t *testing.T) {
	tests := map[string]struct {
		state purchase.State
		want  purchase.Slots
	}{
		"idle":               {purchase.Idle{}, purchase.Slots{Payment: purchase.SlotIdle, Minting: purchase.SlotIdle}},
		"payment processing": {purchase.PaymentProcessing{}, purchase.Slots{Payment: purchase.SlotProcessing, Minting: purchase.SlotIdle}},
		"payment confirmed":  {purchase.PaymentConfirmed{}, purchase.Slots{Payment: purchase.SlotConfirmed, Minting: purchase.SlotIdle}},
		"mint processing":    {purchase.MintProcessing{}, purchase.Slots{Payment: purchase.SlotConfirmed, Minting: purchase.SlotProcessing}},
		"mint confirmed":     {purchase.MintConfirmed{}, purchase.Slots{Payment: purchase.SlotConfirmed, Minting: purchase.SlotConfirmed}},
		"payment failed":     {purchase.Failed{Stage: purchase.StagePayment}, purchase.Slots{Payment: purchase.SlotFailed, Minting: purchase.SlotIdle}},
		"mint failed":        {purchase.Failed{Stage: purchase.StageMint}, purchase.Slots{Payment: purchase.SlotConfirmed, Minting: purchase.SlotFailed}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, purchase.SlotsOf(tc.state))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	require.True(t, purchase.IsTerminal(purchase.PaymentConfirmed{}, purchase.SaleDigitalOnly))
	require.False(t, purchase.IsTerminal(purchase.PaymentConfirmed{}, purchase.SaleLicenseOnly))
	require.True(t, purchase.IsProcessing(purchase.PaymentConfirmed{}, purchase.SaleLicenseOnly))
	require.False(t, purchase.IsProcessing(purchase.PaymentConfirmed{}, purchase.SaleDigitalOnly))
	require.True(t, purchase.IsTerminal(purchase.Failed{}, purchase.SaleDigitalOnly))
	require.False(t, purchase.IsProcessing(purchase.Failed{}, purchase.SaleDigitalOnly))
}
