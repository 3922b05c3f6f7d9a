package application

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/payment-service/domain"
	"github.com/sagamart/order-system/payment-service/mocks"
	"github.com/sagamart/order-system/shared/events"
	"github.com/sagamart/order-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func openedPayment(t *testing.T) *domain.Payment {
	t.Helper()

	payment, err := domain.OpenPendingPayment(
		models.GenerateUUID(),
		models.GenerateUUID(),
		3,
		models.NewMoney(4500, "USD"),
		"buyer@example.com",
	)
	require.NoError(t, err)
	return payment
}

func TestSettlePaymentApprove(t *testing.T) {
	repo := mocks.NewPaymentRepository(t)
	uc := NewSettlePayment(repo)

	payment := openedPayment(t)

	repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)

	var settled *domain.Payment
	repo.On("Settle", mock.Anything, mock.AnythingOfType("*domain.Payment")).
		Run(func(args mock.Arguments) {
			settled = args.Get(1).(*domain.Payment)
		}).
		Return(nil)

	response, err := uc.Execute(context.Background(), &SettlePaymentCommand{
		PaymentID: payment.ID.String(),
		Action:    SettleActionApprove,
	})
	require.NoError(t, err)

	assert.Equal(t, "SUCCESS", response.Status)
	assert.Equal(t, payment.OrderID.String(), response.OrderID)

	require.NotNil(t, settled)
	require.Len(t, settled.Events(), 1)
	assert.Equal(t, events.PaymentConfirmedEvent, settled.Events()[0].EventType)
}

func TestSettlePaymentReject(t *testing.T) {
	repo := mocks.NewPaymentRepository(t)
	uc := NewSettlePayment(repo)

	payment := openedPayment(t)

	repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)

	var settled *domain.Payment
	repo.On("Settle", mock.Anything, mock.AnythingOfType("*domain.Payment")).
		Run(func(args mock.Arguments) {
			settled = args.Get(1).(*domain.Payment)
		}).
		Return(nil)

	response, err := uc.Execute(context.Background(), &SettlePaymentCommand{
		PaymentID: payment.ID.String(),
		Action:    SettleActionReject,
		Reason:    "card declined",
	})
	require.NoError(t, err)

	assert.Equal(t, "FAILED", response.Status)
	assert.Equal(t, "card declined", response.FailureReason)

	require.NotNil(t, settled)
	require.Len(t, settled.Events(), 1)
	assert.Equal(t, events.PaymentFailedEvent, settled.Events()[0].EventType)
}

func TestSettlePaymentValidation(t *testing.T) {
	tests := []struct {
		name string
		cmd  *SettlePaymentCommand
	}{
		{
			name: "missing payment ID",
			cmd:  &SettlePaymentCommand{Action: SettleActionApprove},
		},
		{
			name: "unknown action",
			cmd:  &SettlePaymentCommand{PaymentID: models.GenerateUUID().String(), Action: "refund"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewPaymentRepository(t)
			uc := NewSettlePayment(repo)

			_, err := uc.Execute(context.Background(), tt.cmd)
			assert.ErrorContains(t, err, "invalid command")
			repo.AssertNotCalled(t, "Settle")
		})
	}
}

func TestSettlePaymentNotFound(t *testing.T) {
	repo := mocks.NewPaymentRepository(t)
	uc := NewSettlePayment(repo)

	paymentID := models.GenerateUUID()
	repo.On("FindByID", mock.Anything, paymentID).Return(nil, domain.ErrPaymentNotFound)

	_, err := uc.Execute(context.Background(), &SettlePaymentCommand{
		PaymentID: paymentID.String(),
		Action:    SettleActionApprove,
	})
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	repo.AssertNotCalled(t, "Settle")
}

func TestSettlePaymentAlreadySettled(t *testing.T) {
	repo := mocks.NewPaymentRepository(t)
	uc := NewSettlePayment(repo)

	payment := openedPayment(t)
	require.NoError(t, payment.Approve())
	payment.ClearEvents()

	repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)

	_, err := uc.Execute(context.Background(), &SettlePaymentCommand{
		PaymentID: payment.ID.String(),
		Action:    SettleActionReject,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
	repo.AssertNotCalled(t, "Settle")
}

func TestSettlePaymentRepositoryError(t *testing.T) {
	repo := mocks.NewPaymentRepository(t)
	uc := NewSettlePayment(repo)

	payment := openedPayment(t)

	repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
	repo.On("Settle", mock.Anything, mock.AnythingOfType("*domain.Payment")).
		Return(errors.New("connection refused"))

	_, err := uc.Execute(context.Background(), &SettlePaymentCommand{
		PaymentID: payment.ID.String(),
		Action:    SettleActionApprove,
	})
	assert.ErrorContains(t, err, "failed to settle payment")
}
