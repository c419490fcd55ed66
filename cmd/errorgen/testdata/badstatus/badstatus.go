package badstatus

type Broken int

const (
	BrokenOK Broken = iota
	BrokenBad // errorgen:status=999
)

func (b Broken) Error() string {
	return "broken"
}
