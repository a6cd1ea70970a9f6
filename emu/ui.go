package emu

import (
	"image"

	"nesemu/hw/input"
)

// UIFactory creates the front-end parts the console talks to. The console
// never polls devices or draws itself, it only goes through these.
type UIFactory interface {
	CreateInputHandler() input.Provider
	CreateScreenView(scale int) ScreenView
	ConfigureUISettings(enableAudio bool, fpsLimit int, enablePPULogging bool)
}

// ScreenView receives the frames produced by the PPU.
type ScreenView interface {
	ShowFrame(frame *image.RGBA)
}

// LoadHooks are notified of the progress of a ROM load.
type LoadHooks interface {
	OnLoadProgress(percent int)
	OnError(msg string)
}

// NopUI is the default UIFactory, used when none is provided.
type NopUI struct{}

func (NopUI) CreateInputHandler() input.Provider  { return input.NewStatic(input.Config{}) }
func (NopUI) CreateScreenView(int) ScreenView     { return nopScreen{} }
func (NopUI) ConfigureUISettings(bool, int, bool) {}
func (NopUI) OnLoadProgress(int)                  {}
func (NopUI) OnError(string)                      {}

type nopScreen struct{}

func (nopScreen) ShowFrame(*image.RGBA) {}

// HeadlessUI feeds the paddles from a static input configuration, and
// keeps the last frame around.
type HeadlessUI struct {
	NopUI
	Input input.Config

	screen *lastFrame
}

func (ui *HeadlessUI) CreateInputHandler() input.Provider {
	return input.NewStatic(ui.Input)
}

func (ui *HeadlessUI) CreateScreenView(int) ScreenView {
	if ui.screen == nil {
		ui.screen = &lastFrame{}
	}
	return ui.screen
}

// LastFrame returns the last frame shown, or nil.
func (ui *HeadlessUI) LastFrame() *image.RGBA {
	if ui.screen == nil || ui.screen.img == nil {
		return nil
	}
	return ui.screen.img
}

type lastFrame struct {
	img *image.RGBA
}

func (f *lastFrame) ShowFrame(frame *image.RGBA) {
	if f.img == nil {
		f.img = image.NewRGBA(frame.Rect)
	}
	copy(f.img.Pix, frame.Pix)
}
