package orders

//go:generate go run github.com/fernandezvara/svckit/cmd/errorgen -type=OrderError

// OrderError enumerates the failures the orders API reports to clients
type OrderError int

const (
	ErrOrderNotFound     OrderError = iota + 1 // errorgen:status=404
	ErrInvalidOrder                            // errorgen:status=400
	ErrInsufficientStock                       // errorgen:status=409
	ErrDuplicateOrder                          // errorgen:status=409
	ErrUnavailable                             // errorgen:status=503
	ErrInvalidCursor                           // errorgen:status=400
	ErrStorage
)

func (e OrderError) Error() string {
	switch e {
	case ErrOrderNotFound:
		return "order not found"
	case ErrInvalidOrder:
		return "invalid order"
	case ErrInsufficientStock:
		return "insufficient stock"
	case ErrDuplicateOrder:
		return "order already exists"
	case ErrUnavailable:
		return "orders temporarily unavailable"
	case ErrInvalidCursor:
		return "invalid page cursor"
	case ErrStorage:
		return "storage error"
	}
	return "order error"
}
