package events

import (
	"github.com/sagamart/order-system/shared/models"
)

// Typed payloads for the saga topics. Every event carries enough data for
// its consumer to act without calling back into the producer.

// OrderPlacedData starts the saga. StockReservedData repeats the same
// fields on purpose: total price and customer email must travel unchanged
// so the payment service opens the payment with the original amount.
type OrderPlacedData struct {
	OrderID       models.ID    `json:"order_id"`
	ProductID     models.ID    `json:"product_id"`
	Quantity      int64        `json:"quantity"`
	TotalPrice    models.Money `json:"total_price"`
	CustomerEmail string       `json:"customer_email"`
}

type StockReservedData struct {
	OrderID       models.ID    `json:"order_id"`
	ProductID     models.ID    `json:"product_id"`
	Quantity      int64        `json:"quantity"`
	TotalPrice    models.Money `json:"total_price"`
	CustomerEmail string       `json:"customer_email"`
}

type OrderCancelledData struct {
	OrderID models.ID `json:"order_id"`
	Reason  string    `json:"reason"`
}

type PaymentConfirmedData struct {
	OrderID       models.ID    `json:"order_id"`
	PaymentID     models.ID    `json:"payment_id"`
	Amount        models.Money `json:"amount"`
	Status        string       `json:"status"`
	CustomerEmail string       `json:"customer_email"`
}

type PaymentFailedData struct {
	OrderID   models.ID `json:"order_id"`
	ProductID models.ID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	PaymentID models.ID `json:"payment_id"`
	Reason    string    `json:"reason"`
}

type StockReleasedData struct {
	OrderID   models.ID `json:"order_id"`
	ProductID models.ID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	Reason    string    `json:"reason"`
}
