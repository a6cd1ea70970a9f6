package emu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nesemu/hw/hwdefs"
	"nesemu/ines"
)

// testProgram enables the vblank NMI and loops forever. The NMI handler
// counts frames at $11.
var testProgram = []byte{
	0xA9, 0x00, // 8000: LDA #$00
	0x85, 0x11, // 8002: STA $11
	0xA9, 0x80, // 8004: LDA #$80
	0x8D, 0x00, 0x20, // 8006: STA $2000
	0xE6, 0x10, // 8009: INC $10
	0x4C, 0x09, 0x80, // 800B: JMP $8009
	0xE6, 0x11, // 800E: INC $11
	0x40, // 8010: RTI
}

const nmiCounter = 0x11

func testROM(battery bool) *ines.Rom {
	prg := make([]byte, 0x4000)
	copy(prg, testProgram)
	// NMI, reset and IRQ vectors.
	copy(prg[0x3FFA:], []byte{0x0E, 0x80, 0x00, 0x80, 0x0E, 0x80})

	rom := ines.New(0, hwdefs.VertMirroring, prg, make([]byte, 0x2000))
	rom.SetBattery(battery)
	return rom
}

func writeROM(t *testing.T, rom *ines.Rom) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.nes")
	var buf bytes.Buffer
	if _, err := rom.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type hooksRecorder struct {
	HeadlessUI
	progress []int
	errors   []string
}

func (h *hooksRecorder) OnLoadProgress(percent int) { h.progress = append(h.progress, percent) }
func (h *hooksRecorder) OnError(msg string)         { h.errors = append(h.errors, msg) }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Emulation.RAMSeed = 1234
	cfg.Emulation.FPSLimit = 0
	return cfg
}

func newTestNES(t *testing.T) *NES {
	t.Helper()

	nes := Build(WithConfig(testConfig()))
	if err := nes.InsertROM(testROM(false)); err != nil {
		t.Fatalf("InsertROM() error: %v", err)
	}
	t.Cleanup(func() { nes.Close() })
	return nes
}

func saveState(t *testing.T, nes *NES) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := nes.StateSave(&buf); err != nil {
		t.Fatalf("StateSave() error: %v", err)
	}
	return buf.Bytes()
}

func TestBuild(t *testing.T) {
	nes := Build()
	defer nes.Close()

	if nes.CPU == nil || nes.PPU == nil || nes.APU == nil || nes.Mixer == nil || nes.CPUMem == nil || nes.Ports == nil {
		t.Fatalf("Build() returned an incomplete console: %+v", nes)
	}
	if nes.IsValid() {
		t.Errorf("IsValid() = true without rom")
	}

	nes.Start()
	if nes.IsRunning() {
		t.Errorf("Start() without rom should be a no-op")
	}

	nes.RunOneFrame()
	if nes.Frames() != 0 {
		t.Errorf("RunOneFrame() without rom ran %d frames", nes.Frames())
	}

	if err := nes.StateSave(&bytes.Buffer{}); !errors.Is(err, ErrNoROM) {
		t.Errorf("StateSave() error = %v, want %v", err, ErrNoROM)
	}
}

func TestClearCPUMemory(t *testing.T) {
	nes1 := Build(WithConfig(testConfig()))
	defer nes1.Close()
	nes2 := Build(WithConfig(testConfig()))
	defer nes2.Close()

	ram := nes1.CPUMem.Data[:0x2000]
	for p := 0; p < 4; p++ {
		base := p * 0x800
		got := []uint8{ram[base+0x8], ram[base+0x9], ram[base+0xA], ram[base+0xF]}
		want := []uint8{0xF7, 0xEF, 0xDF, 0xBF}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("block 0x%04X mismatch (-want +got):\n%s", base, diff)
		}
	}

	// Same seed, same content.
	if !bytes.Equal(ram, nes2.CPUMem.Data[:0x2000]) {
		t.Errorf("RAM content differs with the same seed")
	}

	// Mostly 0x00 and 0xFF.
	var zeroes, ones int
	for _, b := range ram {
		switch b {
		case 0x00:
			zeroes++
		case 0xFF:
			ones++
		}
	}
	if zeroes < 0x2000/5 || ones < 0x2000/5 {
		t.Errorf("got %d 0x00 and %d 0xFF bytes, want about a third of each", zeroes, ones)
	}
}

func TestLoadROM(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		ui := &hooksRecorder{}
		nes := Build(WithConfig(testConfig()), WithUI(ui))
		defer nes.Close()

		if err := nes.LoadROM(writeROM(t, testROM(false))); err != nil {
			t.Fatalf("LoadROM() error: %v", err)
		}
		if !nes.IsValid() {
			t.Fatalf("IsValid() = false")
		}
		if diff := cmp.Diff([]int{0, 50, 100}, ui.progress); diff != "" {
			t.Errorf("progress mismatch (-want +got):\n%s", diff)
		}
		if len(ui.errors) != 0 {
			t.Errorf("unexpected errors: %v", ui.errors)
		}
		if nes.CPU.PC != 0x8000 {
			t.Errorf("PC = 0x%04X, want 0x8000", nes.CPU.PC)
		}
		if nes.Mapper.Name() != "NROM" {
			t.Errorf("mapper = %s, want NROM", nes.Mapper.Name())
		}
		if nes.PPU.Mirroring() != hwdefs.VertMirroring {
			t.Errorf("mirroring = %v, want %v", nes.PPU.Mirroring(), hwdefs.VertMirroring)
		}

		nes.Start()
		if !nes.IsRunning() {
			t.Errorf("IsRunning() = false after Start()")
		}
		nes.Stop()
		if nes.IsRunning() {
			t.Errorf("IsRunning() = true after Stop()")
		}
	})

	t.Run("invalid", func(t *testing.T) {
		ui := &hooksRecorder{}
		nes := Build(WithConfig(testConfig()), WithUI(ui))
		defer nes.Close()

		path := filepath.Join(t.TempDir(), "bad.nes")
		if err := os.WriteFile(path, []byte("not a rom at all"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := nes.LoadROM(path); err == nil {
			t.Fatalf("LoadROM() should fail")
		}
		if nes.IsValid() {
			t.Errorf("IsValid() = true after invalid rom")
		}
		if len(ui.errors) != 1 {
			t.Errorf("got %d errors, want 1", len(ui.errors))
		}
		if nes.Mapper != nil {
			t.Errorf("mapper created for an invalid rom")
		}
		nes.Start()
		if nes.IsRunning() {
			t.Errorf("Start() with invalid rom should be a no-op")
		}
	})

	t.Run("unsupported mapper", func(t *testing.T) {
		nes := Build(WithConfig(testConfig()))
		defer nes.Close()

		rom := ines.New(5, hwdefs.HorzMirroring, make([]byte, 0x4000), nil)
		if err := nes.InsertROM(rom); err == nil {
			t.Fatalf("InsertROM() should fail for mapper 5")
		}
		if nes.IsValid() {
			t.Errorf("IsValid() = true")
		}
	})
}

func TestRunOneFrame(t *testing.T) {
	ui := &HeadlessUI{}
	nes := Build(WithConfig(testConfig()), WithUI(ui))
	defer nes.Close()
	if err := nes.InsertROM(testROM(false)); err != nil {
		t.Fatal(err)
	}

	for range 3 {
		nes.RunOneFrame()
	}
	if got := nes.CPUMem.Data[nmiCounter]; got != 3 {
		t.Errorf("NMI counter = %d, want 3", got)
	}
	if nes.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", nes.Frames())
	}
	if ui.LastFrame() == nil {
		t.Errorf("no frame shown")
	}
	if got := nes.Mixer.SamplesAvailable(); got == 0 {
		t.Errorf("no audio samples produced")
	}
}

func TestRunOneFrameWhileStopped(t *testing.T) {
	nes := newTestNES(t)
	nes.Start()
	nes.Stop()

	nes.RunOneFrame()
	nes.RunOneFrame()
	if nes.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", nes.Frames())
	}
	if nes.IsRunning() {
		t.Errorf("RunOneFrame() restarted the console")
	}
}

func TestPeek8(t *testing.T) {
	nes := newTestNES(t)
	nes.RunOneFrame()

	nes.PPU.PPUSTATUS.Value |= 0x80
	for range 2 {
		if got := nes.Peek8(0x3FFA); got&0x80 == 0 {
			t.Fatalf("Peek8($3FFA) = %02X, want vblank set", got)
		}
	}
	if got := nes.Peek8(0x0811); got != nes.CPUMem.Data[nmiCounter] {
		t.Errorf("Peek8($0811) = %02X, want %02X", got, nes.CPUMem.Data[nmiCounter])
	}
	if got := nes.Peek8(0x8000); got != testProgram[0] {
		t.Errorf("Peek8($8000) = %02X, want %02X", got, testProgram[0])
	}
	if got := nes.Peek8(0x5000); got != 0x50 {
		t.Errorf("Peek8($5000) = %02X, want 50 (open bus)", got)
	}
	if got := nes.IO.Read8(0x2002); got&0x80 == 0 {
		t.Errorf("read PPUSTATUS = %02X after peeks, want vblank set", got)
	}
}

func TestInsertEmptyPRG(t *testing.T) {
	nes := Build(WithConfig(testConfig()))
	defer nes.Close()

	rom := ines.New(0, hwdefs.HorzMirroring, nil, make([]byte, 0x2000))
	if err := nes.InsertROM(rom); !errors.Is(err, ErrEmptyPRG) {
		t.Fatalf("InsertROM() error = %v, want %v", err, ErrEmptyPRG)
	}
	if nes.IsValid() {
		t.Errorf("IsValid() = true")
	}
	nes.RunOneFrame()
	if nes.Frames() != 0 {
		t.Errorf("RunOneFrame() ran %d frames without PRG", nes.Frames())
	}
}

func TestReset(t *testing.T) {
	nes := newTestNES(t)
	for range 2 {
		nes.RunOneFrame()
	}

	nes.Reset()
	if nes.Frames() != 0 {
		t.Errorf("Frames() = %d after reset", nes.Frames())
	}
	if nes.CPU.PC != 0x8000 {
		t.Errorf("PC = 0x%04X, want 0x8000", nes.CPU.PC)
	}
	if got := nes.CPUMem.Data[0x8000]; got != testProgram[0] {
		t.Errorf("PRG not mapped after reset, got 0x%02X at $8000", got)
	}
	if got := nes.CPUMem.Data[0x0808]; got != 0xF7 {
		t.Errorf("RAM[$0808] = 0x%02X, want 0xF7", got)
	}

	nes.RunOneFrame()
	if got := nes.CPUMem.Data[nmiCounter]; got != 1 {
		t.Errorf("NMI counter = %d, want 1", got)
	}
}

func TestStateRoundTrip(t *testing.T) {
	nes := newTestNES(t)
	for range 2 {
		nes.RunOneFrame()
	}

	state := saveState(t, nes)
	if diff := cmp.Diff(state, saveState(t, nes)); diff != "" {
		t.Fatalf("StateSave() is not idempotent (-first +second):\n%s", diff)
	}

	nes.RunOneFrame()
	if got := nes.CPUMem.Data[nmiCounter]; got != 3 {
		t.Fatalf("NMI counter = %d, want 3", got)
	}

	if err := nes.StateLoad(bytes.NewReader(state)); err != nil {
		t.Fatalf("StateLoad() error: %v", err)
	}
	if got := nes.CPUMem.Data[nmiCounter]; got != 2 {
		t.Errorf("NMI counter = %d after load, want 2", got)
	}
	if diff := cmp.Diff(state, saveState(t, nes)); diff != "" {
		t.Errorf("state mismatch after load (-want +got):\n%s", diff)
	}
}

func TestStateLoadFreshConsole(t *testing.T) {
	nes := newTestNES(t)
	for range 5 {
		nes.RunOneFrame()
	}
	state := saveState(t, nes)

	// Another power-up RAM, the state must override it.
	cfg := testConfig()
	cfg.Emulation.RAMSeed = 99
	other := Build(WithConfig(cfg))
	defer other.Close()
	if err := other.InsertROM(testROM(false)); err != nil {
		t.Fatal(err)
	}
	if err := other.StateLoad(bytes.NewReader(state)); err != nil {
		t.Fatalf("StateLoad() error: %v", err)
	}

	compare := func(what string) {
		t.Helper()
		if diff := cmp.Diff(nes.CPU.SaveState(), other.CPU.SaveState()); diff != "" {
			t.Errorf("%s: CPU mismatch (-want +got):\n%s", what, diff)
		}
		for _, m := range []struct {
			name      string
			want, got []byte
		}{
			{"cpu", nes.CPUMem.Data[:0x800], other.CPUMem.Data[:0x800]},
			{"ppu", nes.PPU.Mem.SaveState(), other.PPU.Mem.SaveState()},
			{"oam", nes.PPU.SprMem.SaveState(), other.PPU.SprMem.SaveState()},
		} {
			if !bytes.Equal(m.want, m.got) {
				t.Errorf("%s: %s memory mismatch", what, m.name)
			}
		}
		if diff := cmp.Diff(nes.PPU.SaveState(), other.PPU.SaveState()); diff != "" {
			t.Errorf("%s: PPU mismatch (-want +got):\n%s", what, diff)
		}
	}
	compare("after load")

	for i := range 3 {
		nes.RunOneFrame()
		other.RunOneFrame()
		compare(fmt.Sprintf("frame %d", i+1))
		if !bytes.Equal(nes.PPU.Output().Pix, other.PPU.Output().Pix) {
			t.Errorf("frame %d: screen mismatch", i+1)
		}
	}
	if got := other.CPUMem.Data[nmiCounter]; got != 8 {
		t.Errorf("NMI counter = %d, want 8", got)
	}
}

func TestStateLoadErrors(t *testing.T) {
	nes := newTestNES(t)
	nes.RunOneFrame()
	state := saveState(t, nes)

	badVersion := append([]byte(nil), state...)
	badVersion[0] = 2

	tests := []struct {
		name    string
		buf     []byte
		wantErr error
	}{
		{"bad version", badVersion, ErrBadStateVersion},
		{"truncated", state[:len(state)-5], nil},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Run a frame so that the live state differs from the saved one.
			nes.RunOneFrame()
			before := saveState(t, nes)

			nes.Start()
			err := nes.StateLoad(bytes.NewReader(tt.buf))
			if err == nil {
				t.Fatalf("StateLoad() should fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("StateLoad() error = %v, want %v", err, tt.wantErr)
			}
			if !nes.IsRunning() {
				t.Errorf("running state not restored")
			}
			nes.Stop()

			if diff := cmp.Diff(before, saveState(t, nes)); diff != "" {
				t.Errorf("state modified by failed load (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStateSaveKeepsRunning(t *testing.T) {
	nes := newTestNES(t)
	nes.Start()
	saveState(t, nes)
	if !nes.IsRunning() {
		t.Errorf("IsRunning() = false after StateSave")
	}
}

func TestEnableSound(t *testing.T) {
	nes := newTestNES(t)
	nes.EnableSound(false)
	if !nes.Mixer.Muted() {
		t.Errorf("mixer not muted")
	}
	nes.EnableSound(true)
	if nes.Mixer.Muted() {
		t.Errorf("mixer still muted")
	}
}

func TestBatteryRAM(t *testing.T) {
	path := writeROM(t, testROM(true))

	nes := Build(WithConfig(testConfig()))
	if err := nes.LoadROM(path); err != nil {
		t.Fatal(err)
	}
	nes.CPUMem.Data[0x6000] = 0x5A
	nes.CPUMem.Data[0x7FFF] = 0xA5
	if err := nes.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	sav := filepath.Join(filepath.Dir(path), "test.sav")
	buf, err := os.ReadFile(sav)
	if err != nil {
		t.Fatalf("battery file not written: %v", err)
	}
	if len(buf) != batteryRAMSize || buf[0] != 0x5A || buf[batteryRAMSize-1] != 0xA5 {
		t.Fatalf("unexpected battery file content")
	}

	nes = Build(WithConfig(testConfig()))
	defer nes.Close()
	if err := nes.LoadROM(path); err != nil {
		t.Fatal(err)
	}
	if nes.CPUMem.Data[0x6000] != 0x5A {
		t.Errorf("battery ram not restored")
	}
}

func TestBatteryRAMSurvivesReset(t *testing.T) {
	path := writeROM(t, testROM(true))
	sav := filepath.Join(filepath.Dir(path), "test.sav")
	want := make([]byte, batteryRAMSize)
	for i := range want {
		want[i] = uint8(i*7 + 0x5A)
	}
	if err := os.WriteFile(sav, want, 0o644); err != nil {
		t.Fatal(err)
	}

	nes := Build(WithConfig(testConfig()))
	if err := nes.LoadROM(path); err != nil {
		t.Fatal(err)
	}
	nes.Reset()
	if got := nes.CPUMem.Data[0x6000]; got != 0x5A {
		t.Errorf("after Reset: $6000 = %02X, want 5A", got)
	}
	if err := nes.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	got, err := os.ReadFile(sav)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("battery file changed by a hard reset (-want +got):\n%s", diff)
	}
}

func TestInsertROMDropsPreviousBattery(t *testing.T) {
	nes := Build(WithConfig(testConfig()))
	defer nes.Close()
	if err := nes.InsertROM(testROM(true)); err != nil {
		t.Fatal(err)
	}
	nes.CPUMem.Data[0x6000] = 0x5A
	if err := nes.InsertROM(testROM(true)); err != nil {
		t.Fatal(err)
	}
	if got := nes.CPUMem.Data[0x6000]; got != 0 {
		t.Errorf("$6000 = %02X after inserting another cartridge, want 00", got)
	}
}

func TestEmulatorRun(t *testing.T) {
	nes := newTestNES(t)

	e := NewEmulator(nes)
	e.SetFPSLimit(0)
	e.SetMaxFrames(5)

	var hooked int
	e.AddFrameHook(func(*NES) error {
		hooked++
		return nil
	})
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if hooked != 5 || e.Frames() != 5 {
		t.Errorf("got %d hooks and %d frames, want 5", hooked, e.Frames())
	}
	if nes.IsRunning() {
		t.Errorf("console still running after Run()")
	}

	statePath := filepath.Join(t.TempDir(), "state.bin")
	if err := e.SaveState(statePath); err != nil {
		t.Fatalf("SaveState() error: %v", err)
	}
	f, err := os.Open(statePath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := nes.StateLoad(f); err != nil {
		t.Errorf("StateLoad() error: %v", err)
	}
}

func TestEmulatorStop(t *testing.T) {
	nes := newTestNES(t)
	e := NewEmulator(nes)
	e.SetFPSLimit(0)

	errHook := errors.New("stop")
	e.AddFrameHook(func(nes *NES) error {
		if nes.Frames() == 2 {
			return errHook
		}
		return nil
	})
	if err := e.Run(context.Background()); !errors.Is(err, errHook) {
		t.Fatalf("Run() error = %v, want %v", err, errHook)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want %v", err, context.Canceled)
	}
}

func TestEmulatorNoROM(t *testing.T) {
	nes := Build()
	defer nes.Close()
	if err := NewEmulator(nes).Run(context.Background()); !errors.Is(err, ErrNoROM) {
		t.Errorf("Run() error = %v, want %v", err, ErrNoROM)
	}
}
