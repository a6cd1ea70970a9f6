package emu

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"nesemu/emu/log"
)

// FrameHook is called after each emulated frame.
type FrameHook func(nes *NES) error

// Emulator runs the console frame after frame, at the configured speed.
type Emulator struct {
	NES *NES

	fpsLimit  int
	maxFrames uint64
	hooks     []FrameHook

	// mu serializes the emulation loop and state saves.
	mu sync.Mutex

	// These are accessed concurrently by the emulator loop and the UI.
	quit    atomic.Bool
	paused  atomic.Bool
	reset   atomic.Bool
	restart atomic.Bool
}

func NewEmulator(nes *NES) *Emulator {
	return &Emulator{
		NES:      nes,
		fpsLimit: nes.Config().Emulation.FPSLimit,
	}
}

// SetFPSLimit caps the emulation speed, 0 means as fast as possible.
func (e *Emulator) SetFPSLimit(fps int) { e.fpsLimit = max(fps, 0) }

// SetMaxFrames stops the loop after n frames. 0 means no limit.
func (e *Emulator) SetMaxFrames(n uint64) { e.maxFrames = n }

func (e *Emulator) AddFrameHook(hook FrameHook) {
	e.hooks = append(e.hooks, hook)
}

// Run starts the console and runs the emulation loop until ctx is done,
// Stop is called, the frame limit is reached or a frame hook fails.
func (e *Emulator) Run(ctx context.Context) error {
	e.NES.Start()
	if !e.NES.IsRunning() {
		return ErrNoROM
	}
	defer e.NES.Stop()

	var tick <-chan time.Time
	if e.fpsLimit > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(e.fpsLimit))
		defer ticker.Stop()
		tick = ticker.C
	}

	start := time.Now()
	for {
		if e.quit.Load() {
			break
		}
		if e.maxFrames != 0 && e.Frames() >= e.maxFrames {
			break
		}

		if e.paused.Load() {
			// Don't burn cpu while paused.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
		} else if err := e.runFrame(); err != nil {
			return err
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	log.ModEmu.InfoZ("Emulation loop exited").
		Uint64("frames", e.Frames()).
		Duration("elapsed", time.Since(start)).
		End()
	return nil
}

func (e *Emulator) runFrame() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.NES.RunOneFrame()
	for _, hook := range e.hooks {
		if err := hook(e.NES); err != nil {
			return err
		}
	}
	e.handleReset()
	return nil
}

// Frames returns the number of frames emulated so far.
func (e *Emulator) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.NES.Frames()
}

// Peek reads the CPU address space between 2 frames, without side effects.
func (e *Emulator) Peek(addr uint16) uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.NES.Peek8(addr)
}

// SaveState saves the console state into the file at path, between 2
// frames.
func (e *Emulator) SaveState(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := e.NES.StateSave(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	log.ModEmu.InfoZ("state saved").String("path", path).End()
	return nil
}

// SetPause, Stop, Reset and Restart allows to control
// the emulator loop in a concurrent-safe way.

func (e *Emulator) SetPause(pause bool) { e.paused.Store(pause) }
func (e *Emulator) Reset()              { e.reset.Store(true) }
func (e *Emulator) Restart()            { e.restart.Store(true) }
func (e *Emulator) Stop()               { e.quit.Store(true) }

func (e *Emulator) IsPaused() bool { return e.paused.Load() }

func (e *Emulator) handleReset() {
	if e.reset.CompareAndSwap(true, false) {
		log.ModEmu.InfoZ("Performing soft reset").End()
		e.NES.SoftReset()
	} else if e.restart.CompareAndSwap(true, false) {
		log.ModEmu.InfoZ("Performing hard reset").End()
		e.NES.Reset()
	}
}
