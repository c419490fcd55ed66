package dupvalue

type Clash int

const (
	ClashMissing  Clash = 1 // errorgen:status=404
	ClashConflict Clash = 1 // errorgen:status=409
)

type Repeat int

const (
	RepeatFirst Repeat = iota
	RepeatSecond
	RepeatThird Repeat = 0x1
)

func (c Clash) Error() string {
	return "clash"
}

func (r Repeat) Error() string {
	return "repeat"
}
