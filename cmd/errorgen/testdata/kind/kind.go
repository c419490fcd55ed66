package kind

type Kind string

const (
	KindInvalid  Kind = "invalid"  // errorgen:status=422
	KindConflict Kind = "conflict" // errorgen:status=409
	KindInternal Kind = "internal"
)

func (k Kind) String() string {
	return string(k)
}
