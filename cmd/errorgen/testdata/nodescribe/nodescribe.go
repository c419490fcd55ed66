package nodescribe

type Bare int

const (
	BareOne Bare = iota
	BareTwo
)
