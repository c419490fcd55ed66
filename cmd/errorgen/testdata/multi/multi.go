package multi

type AuthError int

const (
	ErrUnauthenticated AuthError = iota + 1 // errorgen:status=401
	ErrForbidden                            // errorgen:status=403
)

func (e AuthError) Error() string {
	switch e {
	case ErrUnauthenticated:
		return "unauthenticated"
	case ErrForbidden:
		return "forbidden"
	}
	return "auth error"
}

type RateError uint8

const ErrThrottled RateError = 1 // errorgen:status=429

func (e RateError) Error() string {
	return "too many requests"
}
