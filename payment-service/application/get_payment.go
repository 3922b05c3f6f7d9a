package application

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sagamart/order-system/payment-service/domain"
	"github.com/sagamart/order-system/shared/models"
)

// GetPaymentQuery looks a payment up by its ID or by the order it
// belongs to
type GetPaymentQuery struct {
	PaymentID string `json:"payment_id,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	PaymentID        string       `json:"payment_id"`
	OrderID          string       `json:"order_id"`
	ProductID        string       `json:"product_id,omitempty"`
	Quantity         int64        `json:"quantity,omitempty"`
	Amount           models.Money `json:"amount"`
	Status           string       `json:"status"`
	PaymentMethod    string       `json:"payment_method"`
	TransactionID    string       `json:"transaction_id"`
	CustomerEmail    string       `json:"customer_email"`
	MaskedCardNumber string       `json:"masked_card_number,omitempty"`
	CardHolderName   string       `json:"card_holder_name,omitempty"`
	FailureReason    string       `json:"failure_reason,omitempty"`
	RetryCount       int          `json:"retry_count"`
}

// GetPayment use case retrieves a single payment
type GetPayment struct {
	paymentRepository domain.PaymentRepository
}

// NewGetPayment creates a new GetPayment use case
func NewGetPayment(paymentRepository domain.PaymentRepository) *GetPayment {
	return &GetPayment{paymentRepository: paymentRepository}
}

// Execute retrieves a payment
func (uc *GetPayment) Execute(ctx context.Context, query *GetPaymentQuery) (*PaymentResponse, error) {
	var (
		payment *domain.Payment
		err     error
	)

	switch {
	case query.PaymentID != "":
		var paymentID models.ID
		paymentID, err = models.NewID(query.PaymentID)
		if err != nil {
			return nil, errors.Wrap(err, "invalid payment ID")
		}
		payment, err = uc.paymentRepository.FindByID(ctx, paymentID)
	case query.OrderID != "":
		var orderID models.ID
		orderID, err = models.NewID(query.OrderID)
		if err != nil {
			return nil, errors.Wrap(err, "invalid order ID")
		}
		payment, err = uc.paymentRepository.FindByOrderID(ctx, orderID)
	default:
		return nil, errors.New("payment ID or order ID is required")
	}

	if err != nil {
		return nil, err
	}

	return toPaymentResponse(payment), nil
}

func toPaymentResponse(payment *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		PaymentID:        payment.ID.String(),
		OrderID:          payment.OrderID.String(),
		ProductID:        payment.ProductID.String(),
		Quantity:         payment.Quantity,
		Amount:           payment.Amount,
		Status:           string(payment.Status),
		PaymentMethod:    string(payment.Method),
		TransactionID:    payment.TransactionID,
		CustomerEmail:    payment.CustomerEmail,
		MaskedCardNumber: payment.MaskedCardNumber,
		CardHolderName:   payment.CardHolderName,
		FailureReason:    payment.FailureReason,
		RetryCount:       payment.RetryCount,
	}
}
