package payment

type PaymentError int

const (
	// errorgen:status=404
	ErrPaymentNotFound PaymentError = iota
	ErrCardDeclined                 // errorgen:status=402
	ErrInsufficientFunds            // errorgen:status=402
	ErrGatewayDown                  // errorgen:status=503
	ErrLedger

	// ErrUnknown is kept for older callers
	ErrUnknown = ErrLedger
)

const unrelated = 3

var messages = map[PaymentError]string{
	ErrPaymentNotFound:   "payment not found",
	ErrCardDeclined:      "card declined",
	ErrInsufficientFunds: "insufficient funds",
	ErrGatewayDown:       "payment gateway unavailable",
	ErrLedger:            "ledger error",
}

func (e PaymentError) Error() string {
	return messages[e]
}
