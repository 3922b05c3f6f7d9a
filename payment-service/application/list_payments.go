package application

import (
	"context"

	"github.com/sagamart/order-system/payment-service/domain"
)

const defaultPageSize = 50

// Payment list filters
const (
	PaymentFilterAll       = "all"
	PaymentFilterPending   = "pending"
	PaymentFilterRetryable = "retryable"
)

// ListPaymentsQuery represents the query to list payments. The retryable
// filter returns FAILED payments still under the retry cap, for an
// external sweep to re-settle.
type ListPaymentsQuery struct {
	Filter string `json:"filter"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// ListPaymentsResponse represents a page of payments
type ListPaymentsResponse struct {
	Payments []*PaymentResponse `json:"payments"`
}

// ListPayments use case lists payments
type ListPayments struct {
	paymentRepository domain.PaymentRepository
}

// NewListPayments creates a new ListPayments use case
func NewListPayments(paymentRepository domain.PaymentRepository) *ListPayments {
	return &ListPayments{paymentRepository: paymentRepository}
}

// Execute lists payments
func (uc *ListPayments) Execute(ctx context.Context, query *ListPaymentsQuery) (*ListPaymentsResponse, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		payments []*domain.Payment
		err      error
	)

	switch query.Filter {
	case PaymentFilterPending:
		payments, err = uc.paymentRepository.FindPending(ctx)
	case PaymentFilterRetryable:
		payments, err = uc.paymentRepository.FindFailedForRetry(ctx)
	default:
		payments, err = uc.paymentRepository.FindAll(ctx, limit, offset)
	}
	if err != nil {
		return nil, err
	}

	responses := make([]*PaymentResponse, len(payments))
	for i, payment := range payments {
		responses[i] = toPaymentResponse(payment)
	}

	return &ListPaymentsResponse{Payments: responses}, nil
}
