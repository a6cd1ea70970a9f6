package input

import (
	"fmt"
	"strings"
)

// A PaddleButton identifies a button of a standard NES controller/paddle.
type PaddleButton byte

const (
	PadA PaddleButton = iota
	PadB
	PadSelect
	PadStart
	PadUp
	PadDown
	PadLeft
	PadRight

	PadButtonCount
)

var buttonNames = [PadButtonCount]string{
	"A", "B",
	"Select", "Start",
	"Up", "Down", "Left", "Right",
}

func (pd PaddleButton) String() string {
	if pd < PadButtonCount {
		return buttonNames[pd]
	}
	return fmt.Sprintf("PaddleButton(%d)", pd)
}

// Buttons is the state of the 8 buttons of a paddle, bit i set when button
// PaddleButton(i) is pressed. This is also the order in which the console
// reads them.
type Buttons uint8

func (b Buttons) Pressed(btn PaddleButton) bool {
	return b&(1<<btn) != 0
}

func (b *Buttons) Set(btn PaddleButton, pressed bool) {
	if pressed {
		*b |= 1 << btn
	} else {
		*b &^= 1 << btn
	}
}

func (b Buttons) String() string {
	var names []string
	for btn := range PadButtonCount {
		if b.Pressed(btn) {
			names = append(names, btn.String())
		}
	}
	return strings.Join(names, ",")
}

func (b Buttons) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText parses a comma-separated list of button names, case
// insensitive.
func (b *Buttons) UnmarshalText(text []byte) error {
	var bs Buttons
	for _, name := range strings.Split(string(text), ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		found := false
		for btn := range PadButtonCount {
			if strings.EqualFold(name, buttonNames[btn]) {
				bs.Set(btn, true)
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown paddle button %q", name)
		}
	}
	*b = bs
	return nil
}

// A Provider provides the state of the paddles, polled by the console each
// time the game latches them.
type Provider interface {
	// Buttons returns the state of the paddle plugged on port (0 or 1).
	Buttons(port int) Buttons
}

// Config holds the paddles configuration.
type Config struct {
	Paddles [2]PaddleConfig `toml:"paddles"`
}

type PaddleConfig struct {
	Plugged bool `toml:"plugged"`

	// Buttons held down during the whole emulation. Mostly useful for
	// headless runs.
	Hold Buttons `toml:"hold"`
}

// Static is a Provider returning a fixed state per paddle, which can be
// modified between frames.
type Static struct {
	State [2]Buttons
}

// NewStatic returns a Static provider from cfg. Unplugged paddles never
// report a pressed button.
func NewStatic(cfg Config) *Static {
	s := &Static{}
	for i, pad := range cfg.Paddles {
		if pad.Plugged {
			s.State[i] = pad.Hold
		}
	}
	return s
}

func (s *Static) Buttons(port int) Buttons {
	if port < 0 || port >= len(s.State) {
		return 0
	}
	return s.State[port]
}
