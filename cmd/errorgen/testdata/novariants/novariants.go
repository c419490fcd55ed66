package novariants

type Empty int

func (e Empty) Error() string {
	return "empty"
}
