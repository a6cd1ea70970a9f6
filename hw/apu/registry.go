package apu

import (
	"errors"
	"fmt"
)

// Each channel owns a window of 4 consecutive registers.
const regsPerChannel = 4

var (
	ErrRegistrySealed = errors.New("channel registry is sealed")
	ErrBadWindow      = errors.New("channel register window must span 4 addresses")
	ErrOverlap        = errors.New("channel register window overlaps another channel")
)

type window struct {
	lo, hi uint16
	ch     Channel
}

// Registry routes register writes to the channel owning the address. Once
// sealed, no more channels can be registered.
type Registry struct {
	windows []window
	sealed  bool
}

// RegisterChannel maps the inclusive address range [lo, hi] to ch.
func (r *Registry) RegisterChannel(lo, hi uint16, ch Channel) error {
	if r.sealed {
		return ErrRegistrySealed
	}
	if hi < lo || hi-lo+1 != regsPerChannel {
		return fmt.Errorf("%w: $%04X-$%04X", ErrBadWindow, lo, hi)
	}
	for _, w := range r.windows {
		if lo <= w.hi && w.lo <= hi {
			return fmt.Errorf("%w: $%04X-$%04X", ErrOverlap, lo, hi)
		}
	}
	r.windows = append(r.windows, window{lo: lo, hi: hi, ch: ch})
	return nil
}

func (r *Registry) Seal() { r.sealed = true }

// Channel returns the channel mapped at addr, or nil.
func (r *Registry) Channel(addr uint16) Channel {
	if w := r.find(addr); w != nil {
		return w.ch
	}
	return nil
}

// RouteWrite forwards a write to the channel mapped at addr, passing it the
// register offset within its window. Writes to unmapped addresses are ignored.
func (r *Registry) RouteWrite(addr uint16, val uint8) {
	if w := r.find(addr); w != nil {
		w.ch.WriteRegister(addr-w.lo, val)
	}
}

func (r *Registry) find(addr uint16) *window {
	for i := range r.windows {
		if addr >= r.windows[i].lo && addr <= r.windows[i].hi {
			return &r.windows[i]
		}
	}
	return nil
}
