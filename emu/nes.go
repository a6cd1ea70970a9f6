package emu

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"nesemu/emu/log"
	"nesemu/hw"
	"nesemu/hw/apu"
	"nesemu/hw/hwdefs"
	"nesemu/hw/hwio"
	"nesemu/hw/input"
	"nesemu/hw/mappers"
	"nesemu/hw/snapshot"
	"nesemu/ines"
)

var (
	ErrBadStateVersion = snapshot.ErrBadVersion
	ErrNoROM           = errors.New("no valid rom loaded")
	ErrEmptyPRG        = errors.New("rom has no PRG ROM")
)

// Size of battery-backed PRG RAM, at $6000.
const batteryRAMSize = 0x2000

// NES is the whole console: CPU, PPU, APU, memories, joypads and the
// cartridge mapper, once a ROM is loaded.
type NES struct {
	CPU    *hw.CPU
	PPU    *hw.PPU
	APU    *apu.APU
	Mixer  *apu.Mixer
	CPUMem *hwio.Mem
	IO     *hwio.Table // $2000-$401F registers
	Ports  *input.Ports

	// Set by LoadROM.
	Mapper  mappers.Mapper
	Rom     *ines.Rom
	romPath string

	cfg    Config
	ui     UIFactory
	hooks  LoadHooks
	screen ScreenView
	rng    *rand.Rand

	valid  bool
	frames atomic.Uint64
}

type Option func(*NES)

// WithConfig sets the console configuration.
func WithConfig(cfg Config) Option {
	return func(nes *NES) { nes.cfg = cfg }
}

// WithUI sets the front-end. If ui also implements LoadHooks, it receives
// ROM load notifications.
func WithUI(ui UIFactory) Option {
	return func(nes *NES) { nes.ui = ui }
}

func WithLoadHooks(hooks LoadHooks) Option {
	return func(nes *NES) { nes.hooks = hooks }
}

// Build creates a powered-off console, with no cartridge.
func Build(opts ...Option) *NES {
	nes := &NES{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(nes)
	}
	nes.cfg.Check()
	if nes.ui == nil {
		nes.ui = NopUI{}
	}
	if nes.hooks == nil {
		if hooks, ok := nes.ui.(LoadHooks); ok {
			nes.hooks = hooks
		} else {
			nes.hooks = NopUI{}
		}
	}

	seed := uint64(nes.cfg.Emulation.RAMSeed)
	if seed == 0 {
		seed = rand.Uint64()
	}
	nes.rng = rand.New(rand.NewPCG(seed, seed>>1|1))

	// Until a cartridge is inserted the CPU sees its flat memory.
	nes.CPUMem = hwio.NewMem("cpu", snapshot.CPUMemSize)
	nes.CPU = hw.NewCPU(hw.BuildOpcodeTable(), nes.CPUMem)
	nes.PPU = hw.NewPPU(nes.CPU)
	nes.Mixer = apu.NewMixer(nes.cfg.Audio.SampleRate)
	nes.Mixer.SetMuted(!nes.cfg.Audio.Enabled)
	nes.APU = apu.New(nes.CPU, nes.Mixer)
	nes.APU.SetMemReader(nes.CPUMem)
	nes.Ports = input.NewPorts(nes.ui.CreateInputHandler())

	nes.IO = hwio.NewTable("io")
	nes.PPU.MapRegisters(nes.IO)
	nes.APU.MapRegisters(nes.IO)
	nes.Ports.MapRegisters(nes.IO)

	nes.screen = nes.ui.CreateScreenView(nes.cfg.Video.Scale)

	nes.ui.ConfigureUISettings(nes.cfg.Audio.Enabled, nes.cfg.Emulation.FPSLimit, nes.cfg.Emulation.PPULogging)
	if nes.cfg.Emulation.PPULogging {
		log.EnableDebugModules(log.ModPPU.Mask())
	}
	if nes.cfg.TraceOut != nil {
		nes.CPU.SetTraceOutput(nes.cfg.TraceOut)
		nes.CPU.SetTraceDots(nes.PPU.Position)
	}

	log.AddContext(nes)
	nes.ClearCPUMemory()
	return nes
}

func (nes *NES) AddLogContext(z *log.EntryZ) {
	z.Uint64("frame", nes.frames.Load())
}

// Config returns the console configuration.
func (nes *NES) Config() Config { return nes.cfg }

// IsValid reports whether a valid ROM is loaded.
func (nes *NES) IsValid() bool { return nes.valid }

// Frames returns the number of frames run since the ROM was loaded.
func (nes *NES) Frames() uint64 { return nes.frames.Load() }

// LoadROM stops the emulation and loads the ROM at path. On failure, the
// console is left without cartridge and can't be started.
func (nes *NES) LoadROM(path string) error {
	nes.Stop()
	nes.hooks.OnLoadProgress(0)

	rom, err := ines.Open(path)
	if err != nil {
		nes.unload()
		nes.hooks.OnError(err.Error())
		return err
	}
	nes.hooks.OnLoadProgress(50)

	if err := nes.insert(rom); err != nil {
		nes.hooks.OnError(err.Error())
		return err
	}
	nes.romPath = path
	nes.loadBattery()
	nes.hooks.OnLoadProgress(100)
	return nil
}

// InsertROM loads an already parsed ROM.
func (nes *NES) InsertROM(rom *ines.Rom) error {
	nes.Stop()
	if err := nes.insert(rom); err != nil {
		nes.hooks.OnError(err.Error())
		return err
	}
	return nil
}

func (nes *NES) insert(rom *ines.Rom) error {
	nes.unload()
	if len(rom.PRG) == 0 {
		return ErrEmptyPRG
	}

	m, err := mappers.New(rom, mappers.Hardware{
		CPUMem: nes.CPUMem,
		PPUMem: nes.PPU.Mem,
		PPU:    nes.PPU,
		IO:     nes.IO,
	})
	if err != nil {
		return err
	}

	nes.Mapper = m
	nes.Rom = rom
	nes.CPU.Bus = m
	nes.APU.SetMemReader(m)
	nes.valid = true
	// A new cartridge doesn't inherit the previous one's RAM.
	nes.reset(false)

	log.ModEmu.InfoZ("rom loaded").
		String("mapper", m.Name()).
		Stringer("mirroring", rom.Mirroring()).
		End()
	return nil
}

func (nes *NES) unload() {
	nes.valid = false
	nes.Mapper = nil
	nes.Rom = nil
	nes.romPath = ""
	nes.CPU.Bus = nes.CPUMem
	nes.APU.SetMemReader(nes.CPUMem)
}

// Start begins the emulation. It's a no-op if no valid ROM is loaded.
func (nes *NES) Start() {
	if !nes.valid || nes.CPU.IsRunning() {
		return
	}
	nes.CPU.BeginExecution()
}

func (nes *NES) Stop() {
	nes.CPU.EndExecution()
}

func (nes *NES) IsRunning() bool {
	return nes.CPU.IsRunning()
}

// Reset performs a hard reset, memories are cleared and the cartridge
// banks are mapped again. Battery-backed RAM survives.
func (nes *NES) Reset() {
	nes.reset(true)
}

func (nes *NES) reset(keepBattery bool) {
	var battery []byte
	if keepBattery && nes.Rom != nil && nes.Rom.HasPersistent() {
		battery = make([]byte, batteryRAMSize)
		nes.CPUMem.ReadSlice(0x6000, battery)
	}

	if nes.Mapper != nil {
		nes.Mapper.Reset()
	}

	nes.CPUMem.Reset()
	nes.PPU.Mem.Reset()
	nes.PPU.SprMem.Reset()
	nes.ClearCPUMemory()

	if nes.Mapper != nil {
		// Banks have been wiped out with the memories.
		if err := nes.Mapper.Load(nes.Rom); err != nil {
			log.ModEmu.ErrorZ("failed to reload rom").Error("err", err).End()
			nes.unload()
		}
	}
	if battery != nil {
		nes.CPUMem.WriteSlice(0x6000, battery)
	}

	nes.CPU.Reset(hwdefs.HardReset)
	nes.PPU.Reset()
	nes.APU.Reset()
	nes.Ports.Reset()
	nes.frames.Store(0)
}

// SoftReset is the equivalent of pressing the reset button. Memories are
// left untouched.
func (nes *NES) SoftReset() {
	nes.CPU.Reset(hwdefs.SoftReset)
	nes.APU.Reset()
	nes.Ports.Reset()
}

// ClearCPUMemory fills the internal RAM with its pseudo-random power-up
// content.
func (nes *NES) ClearCPUMemory() {
	ram := nes.CPUMem.Data[:0x2000]
	for i := range ram {
		switch r := nes.rng.IntN(100); {
		case r < 33:
			ram[i] = 0x00
		case r < 66:
			ram[i] = 0xFF
		default:
			ram[i] = uint8(nes.rng.IntN(256))
		}
	}
	for p := 0; p < 4; p++ {
		i := p * 0x800
		ram[i+0x008] = 0xF7
		ram[i+0x009] = 0xEF
		ram[i+0x00A] = 0xDF
		ram[i+0x00F] = 0xBF
	}
}

// EnableSound mutes or unmutes the audio output.
func (nes *NES) EnableSound(enable bool) {
	running := nes.IsRunning()
	nes.Stop()
	nes.Mixer.SetMuted(!enable)
	nes.cfg.Audio.Enabled = enable
	if running {
		nes.Start()
	}
}

// Step runs a single CPU step, and the PPU and APU for as many cycles.
func (nes *NES) Step() int {
	cycles := nes.CPU.Step()
	nes.PPU.Run(cycles * hwdefs.PPUDotsPerCycle)
	nes.APU.Step(cycles)
	return cycles
}

// Peek8 reads addr as the CPU would, but without side effects on the
// registers.
func (nes *NES) Peek8(addr uint16) uint8 {
	switch {
	case addr < 0x2000:
		return nes.CPUMem.Data[addr&0x07FF]
	case addr < 0x6000:
		return nes.IO.Peek8(addr)
	}
	return nes.CPUMem.Data[addr]
}

// RunOneFrame runs the console until the PPU completes a frame, and sends
// it to the screen. It ignores Start and Stop, which only gate the Emulator
// loop, so that a stopped console can be advanced frame by frame.
func (nes *NES) RunOneFrame() {
	if !nes.valid {
		return
	}
	frame := nes.PPU.Frame
	for nes.PPU.Frame == frame {
		nes.Step()
	}
	nes.APU.EndFrame()
	nes.frames.Add(1)
	nes.screen.ShowFrame(nes.PPU.Output())
}

// StateSave writes the console state into w. The emulation is paused while
// saving.
func (nes *NES) StateSave(w io.Writer) error {
	if !nes.valid {
		return ErrNoROM
	}
	if nes.IsRunning() {
		nes.Stop()
		defer nes.Start()
	}

	state := snapshot.NES{
		Version: snapshot.Version,
		CPUMem:  nes.CPUMem.SaveState(),
		PPUMem:  nes.PPU.Mem.SaveState(),
		SprMem:  nes.PPU.SprMem.SaveState(),
		CPU:     nes.CPU.SaveState(),
		Mapper:  nes.Mapper.SaveState(),
		PPU:     nes.PPU.SaveState(),
	}
	if err := state.Encode(w); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// StateLoad restores a state previously written with StateSave. On error,
// the console state is left untouched.
func (nes *NES) StateLoad(r io.Reader) error {
	if !nes.valid {
		return ErrNoROM
	}
	if nes.IsRunning() {
		nes.Stop()
		defer nes.Start()
	}

	var state snapshot.NES
	if err := state.Decode(r); err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	// The mapper state is the only part that can still be rejected. It
	// remaps banks, so memories are restored after it.
	if err := nes.Mapper.LoadState(state.Mapper); err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	for _, m := range []struct {
		mem *hwio.Mem
		buf []byte
	}{
		{nes.CPUMem, state.CPUMem},
		{nes.PPU.Mem, state.PPUMem},
		{nes.PPU.SprMem, state.SprMem},
	} {
		if err := m.mem.LoadState(m.buf); err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}
	}
	nes.CPU.LoadState(state.CPU)
	nes.PPU.LoadState(state.PPU)

	log.ModEmu.InfoZ("state loaded").
		Hex16("pc", nes.CPU.PC).
		Blob("mapper", state.Mapper).
		End()
	return nil
}

func (nes *NES) batteryPath() string {
	if nes.romPath == "" || nes.Rom == nil || !nes.Rom.HasPersistent() {
		return ""
	}
	return strings.TrimSuffix(nes.romPath, filepath.Ext(nes.romPath)) + ".sav"
}

func (nes *NES) loadBattery() {
	path := nes.batteryPath()
	if path == "" {
		return
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.ModEmu.WarnZ("failed to read battery ram").String("path", path).Error("err", err).End()
		}
		return
	}
	nes.CPUMem.WriteSlice(0x6000, buf[:min(len(buf), batteryRAMSize)])
	log.ModEmu.InfoZ("battery ram loaded").String("path", path).End()
}

func (nes *NES) saveBattery() error {
	path := nes.batteryPath()
	if path == "" {
		return nil
	}
	buf := make([]byte, batteryRAMSize)
	nes.CPUMem.ReadSlice(0x6000, buf)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to save battery ram: %w", err)
	}
	return nil
}

// Close stops the emulation and saves battery-backed RAM. The console
// can't be used afterwards.
func (nes *NES) Close() error {
	nes.Stop()
	err := nes.saveBattery()
	log.RemoveContext(nes)
	nes.unload()
	return err
}
