package desktop

import "github.com/go-vgo/robotgo"

// Input is the OS input-injection boundary. Handlers and the step runner
// call this set only, never lower-level primitives.
type Input interface {
	MoveTo(x, y int) error
	Click() error
	TypeText(text string) error
	PressKey(key string) error
}

// Robot injects real input events.
type Robot struct{}

func (Robot) MoveTo(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (Robot) Click() error {
	robotgo.Click()
	return nil
}

func (Robot) TypeText(text string) error {
	robotgo.TypeStr(text)
	return nil
}

func (Robot) PressKey(key string) error {
	return robotgo.KeyTap(key)
}
