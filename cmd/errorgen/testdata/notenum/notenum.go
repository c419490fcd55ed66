package notenum

type Failure struct {
	Reason string
}

func (f Failure) Error() string {
	return f.Reason
}
