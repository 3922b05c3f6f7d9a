package domain

import (
	"testing"

	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingPayment(t *testing.T) *Payment {
	t.Helper()

	payment, err := OpenPendingPayment(
		models.GenerateUUID(),
		models.GenerateUUID(),
		3,
		models.NewMoney(4500, "USD"),
		"buyer@example.com",
	)
	require.NoError(t, err)
	return payment
}

func TestOpenPendingPayment(t *testing.T) {
	payment := pendingPayment(t)

	assert.Equal(t, PaymentStatusPending, payment.Status)
	assert.Equal(t, PaymentMethodCreditCard, payment.Method)
	assert.NotEmpty(t, payment.ID)
	assert.NotEmpty(t, payment.TransactionID)
	assert.Empty(t, payment.MaskedCardNumber)
	assert.Empty(t, payment.CardHolderName)
	assert.Equal(t, 0, payment.RetryCount)
	assert.Equal(t, 1, payment.Version.Value)
	assert.Empty(t, payment.Events())
}

func TestOpenPendingPaymentValidation(t *testing.T) {
	tests := []struct {
		name    string
		orderID models.ID
		amount  models.Money
		wantErr string
	}{
		{
			name:    "missing order ID",
			orderID: "",
			amount:  models.NewMoney(1000, "USD"),
			wantErr: "order ID is required",
		},
		{
			name:    "negative amount",
			orderID: models.GenerateUUID(),
			amount:  models.NewMoney(-100, "USD"),
			wantErr: "amount cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenPendingPayment(tt.orderID, models.GenerateUUID(), 1, tt.amount, "buyer@example.com")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestOpenPendingPaymentZeroAmount(t *testing.T) {
	payment, err := OpenPendingPayment(
		models.GenerateUUID(), models.GenerateUUID(), 1,
		models.NewMoney(0, "USD"), "buyer@example.com",
	)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, payment.Status)
}

func TestPaymentApprove(t *testing.T) {
	payment := pendingPayment(t)

	require.NoError(t, payment.Approve())

	assert.Equal(t, PaymentStatusSuccess, payment.Status)
	assert.Equal(t, 0, payment.RetryCount)
	assert.Equal(t, 2, payment.Version.Value)

	require.Len(t, payment.Events(), 1)
	event := payment.Events()[0]
	assert.Equal(t, events.PaymentConfirmedEvent, event.EventType)

	data, ok := event.Data.(events.PaymentConfirmedData)
	require.True(t, ok)
	assert.Equal(t, payment.OrderID, data.OrderID)
	assert.Equal(t, payment.ID, data.PaymentID)
	assert.Equal(t, payment.Amount, data.Amount)
	assert.Equal(t, "SUCCESS", data.Status)
	assert.Equal(t, payment.CustomerEmail, data.CustomerEmail)
}

func TestPaymentApproveTwice(t *testing.T) {
	payment := pendingPayment(t)

	require.NoError(t, payment.Approve())
	payment.ClearEvents()

	assert.ErrorIs(t, payment.Approve(), ErrAlreadySettled)
	assert.Equal(t, PaymentStatusSuccess, payment.Status)
	assert.Empty(t, payment.Events())
}

func TestPaymentReject(t *testing.T) {
	payment := pendingPayment(t)

	require.NoError(t, payment.Reject("card declined"))

	assert.Equal(t, PaymentStatusFailed, payment.Status)
	assert.Equal(t, "card declined", payment.FailureReason)
	assert.Equal(t, 0, payment.RetryCount)

	require.Len(t, payment.Events(), 1)
	event := payment.Events()[0]
	assert.Equal(t, events.PaymentFailedEvent, event.EventType)

	data, ok := event.Data.(events.PaymentFailedData)
	require.True(t, ok)
	assert.Equal(t, payment.OrderID, data.OrderID)
	assert.Equal(t, payment.ProductID, data.ProductID)
	assert.Equal(t, int64(3), data.Quantity)
	assert.Equal(t, "card declined", data.Reason)
}

func TestPaymentRejectDefaultReason(t *testing.T) {
	payment := pendingPayment(t)

	require.NoError(t, payment.Reject(""))

	assert.Equal(t, "payment rejected", payment.FailureReason)

	require.Len(t, payment.Events(), 1)
	data, ok := payment.Events()[0].Data.(events.PaymentFailedData)
	require.True(t, ok)
	assert.Equal(t, "payment rejected", data.Reason)
}

func TestPaymentRejectWithoutCompensationData(t *testing.T) {
	payment, err := OpenPendingPayment(
		models.GenerateUUID(), "", 0,
		models.NewMoney(4500, "USD"), "buyer@example.com",
	)
	require.NoError(t, err)
	require.False(t, payment.CanCompensate())

	require.NoError(t, payment.Reject("card declined"))

	assert.Equal(t, PaymentStatusFailed, payment.Status)
	assert.Empty(t, payment.Events())
}

func TestPaymentRejectAfterApprove(t *testing.T) {
	payment := pendingPayment(t)

	require.NoError(t, payment.Approve())
	payment.ClearEvents()

	assert.ErrorIs(t, payment.Reject("too late"), ErrAlreadySettled)
	assert.Equal(t, PaymentStatusSuccess, payment.Status)
	assert.Empty(t, payment.FailureReason)
	assert.Empty(t, payment.Events())
}

func TestPaymentIsRetryable(t *testing.T) {
	payment := pendingPayment(t)
	assert.False(t, payment.IsRetryable())

	require.NoError(t, payment.Reject("card declined"))
	assert.True(t, payment.IsRetryable())

	payment.RetryCount = MaxRetryCount
	assert.False(t, payment.IsRetryable())
}
