package apu

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nesemu/hw/hwdefs"
	"nesemu/hw/hwio"
)

type fakeCPU struct {
	irq    hwdefs.IRQSource
	halted int
}

func (c *fakeCPU) SetIRQ(src hwdefs.IRQSource)            { c.irq |= src }
func (c *fakeCPU) ClearIRQ(src hwdefs.IRQSource)          { c.irq &^= src }
func (c *fakeCPU) HasIRQSource(src hwdefs.IRQSource) bool { return c.irq&src != 0 }
func (c *fakeCPU) HaltCycles(n int)                       { c.halted += n }

type fakeMem map[uint16]uint8

func (m fakeMem) Read8(addr uint16) uint8 { return m[addr] }

// testAPU drives the APU through a CPU I/O table.
type testAPU struct {
	*APU
	io *hwio.Table
}

func (a testAPU) WriteRegister(addr uint16, val uint8) { a.io.Write8(addr, val) }
func (a testAPU) ReadStatus() uint8                    { return a.io.Read8(StatusReg) }

func newTestAPU() (testAPU, *fakeCPU) {
	cpu := &fakeCPU{}
	a := New(cpu, NewMixer(DefaultSampleRate))
	io := hwio.NewTable("io")
	a.MapRegisters(io)
	return testAPU{a, io}, cpu
}

var channelOpts = []cmp.Option{
	cmp.AllowUnexported(squareChannel{}, triangleChannel{}, dmcChannel{}, envelope{}, lengthCounter{}, timer{}),
	cmp.Comparer(func(x, y cpu) bool { return x == y }),
}

// snapshotChannels returns the state of every channel but noise.
func snapshotChannels(a testAPU) []any {
	return []any{*a.square1, *a.square2, *a.triangle, *a.dmc}
}

func TestNoiseDisableSilences(t *testing.T) {
	a, _ := newTestAPU()

	a.WriteRegister(StatusReg, 0x08)
	a.WriteRegister(0x400C, 0x1F) // constant volume 15
	a.WriteRegister(0x400F, 0x08) // length index 1
	if a.noise.length.counter != 254 {
		t.Fatalf("length counter = %d, want 254", a.noise.length.counter)
	}

	a.noise.SetEnabled(false)
	if a.noise.length.counter != 0 {
		t.Errorf("length counter = %d after disable, want 0", a.noise.length.counter)
	}
	if got := a.noise.CurrentSample(); got != 0 {
		t.Errorf("CurrentSample() = %d after disable, want 0", got)
	}
	if a.noise.LengthStatus() {
		t.Errorf("LengthStatus() = true after disable")
	}
}

func TestNoiseLengthIgnoredWhileDisabled(t *testing.T) {
	a, _ := newTestAPU()
	a.WriteRegister(0x400F, 0x08)
	if a.noise.length.counter != 0 {
		t.Errorf("length counter = %d, want 0", a.noise.length.counter)
	}
}

func TestNoiseSample(t *testing.T) {
	a, _ := newTestAPU()
	a.WriteRegister(StatusReg, 0x08)
	a.WriteRegister(0x400C, 0x1A) // constant volume 10
	a.WriteRegister(0x400E, 0x00) // shortest period
	a.WriteRegister(0x400F, 0x08)

	seen := map[uint8]bool{}
	for range 200 {
		a.noise.clockTimer()
		seen[a.noise.CurrentSample()] = true
	}
	if diff := cmp.Diff(map[uint8]bool{0: true, 10: true}, seen); diff != "" {
		t.Errorf("noise samples mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvelope(t *testing.T) {
	t.Run("reset has priority", func(t *testing.T) {
		var env envelope
		env.write(0x03)
		env.volume = 2
		env.decayCounter = 1
		env.restart()
		env.clock()
		if env.volume != 0xF || env.decayCounter != 4 || env.reset {
			t.Errorf("after reset clock: volume=%d counter=%d reset=%t", env.volume, env.decayCounter, env.reset)
		}
	})
	t.Run("decay", func(t *testing.T) {
		var env envelope
		env.write(0x00) // rate 0: decrement each clock
		env.restart()
		env.clock()
		for want := uint8(14); want > 0; want-- {
			env.clock()
			if env.masterVolume != want {
				t.Fatalf("masterVolume = %d, want %d", env.masterVolume, want)
			}
		}
		env.clock()
		env.clock()
		if env.masterVolume != 0 {
			t.Errorf("masterVolume = %d, want 0 without loop", env.masterVolume)
		}
	})
	t.Run("loop", func(t *testing.T) {
		var env envelope
		env.write(0x20)
		env.volume = 0
		env.decayCounter = 1
		env.clock()
		if env.volume != 0xF {
			t.Errorf("volume = %d, want 15 with loop", env.volume)
		}
	})
	t.Run("constant volume", func(t *testing.T) {
		var env envelope
		env.write(0x17)
		env.restart()
		env.clock()
		if env.masterVolume != 7 {
			t.Errorf("masterVolume = %d, want 7", env.masterVolume)
		}
	})
}

// $400C layout: --LC VVVV. decayDisable mirrors C, the constant volume bit,
// and loop mirrors L, which also halts the length counter.
const (
	noiseDecayDisableBit = 4
	noiseLoopBit         = 5
)

func TestRegistryRoutes400C(t *testing.T) {
	tests := []struct {
		val          uint8
		decayDisable bool
		decayRate    uint8
		loop         bool
	}{
		// 0x0F leaves bit 4 clear: the envelope decays despite the maximum
		// volume in the low nibble.
		{val: 0x0F, decayDisable: false, decayRate: 0xF, loop: false},
		{val: 1<<noiseDecayDisableBit | 0x0F, decayDisable: true, decayRate: 0xF, loop: false},
		{val: 1<<noiseLoopBit | 1<<noiseDecayDisableBit, decayDisable: true, decayRate: 0x0, loop: true},
	}
	for _, tt := range tests {
		a, _ := newTestAPU()
		before := snapshotChannels(a)

		a.WriteRegister(0x400C, tt.val)

		env := a.noise.env
		if env.decayDisable != tt.decayDisable || env.decayRate != tt.decayRate || env.loop != tt.loop {
			t.Errorf("$400C=%02X: envelope = %+v", tt.val, env)
		}
		if a.noise.length.halt != tt.loop {
			t.Errorf("$400C=%02X: length halt = %t, want %t", tt.val, a.noise.length.halt, tt.loop)
		}
		if tt.decayDisable && env.masterVolume != tt.decayRate {
			t.Errorf("$400C=%02X: masterVolume = %d, want %d", tt.val, env.masterVolume, tt.decayRate)
		}
		if diff := cmp.Diff(before, snapshotChannels(a), channelOpts...); diff != "" {
			t.Errorf("$400C=%02X: other channels changed (-before +after):\n%s", tt.val, diff)
		}
	}
}

type recordChannel struct {
	writes []uint16
}

func (c *recordChannel) WriteRegister(offset uint16, val uint8) { c.writes = append(c.writes, offset) }
func (c *recordChannel) ClockLengthCounter()                    {}
func (c *recordChannel) ClockEnvelope()                         {}
func (c *recordChannel) CurrentSample() uint8                   { return 0 }
func (c *recordChannel) SetEnabled(bool)                        {}
func (c *recordChannel) IsEnabled() bool                        { return false }
func (c *recordChannel) LengthStatus() bool                     { return false }
func (c *recordChannel) Reset()                                 {}

func TestRegistry(t *testing.T) {
	var r Registry
	ch := &recordChannel{}
	if err := r.RegisterChannel(0x4000, 0x4003, ch); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		lo, hi  uint16
		wantErr error
	}{
		{"overlap", 0x4002, 0x4005, ErrOverlap},
		{"too small", 0x4004, 0x4005, ErrBadWindow},
		{"too large", 0x4004, 0x4008, ErrBadWindow},
		{"reversed", 0x4007, 0x4004, ErrBadWindow},
		{"ok", 0x4004, 0x4007, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.RegisterChannel(tt.lo, tt.hi, &recordChannel{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RegisterChannel() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	r.Seal()
	if err := r.RegisterChannel(0x4008, 0x400B, &recordChannel{}); !errors.Is(err, ErrRegistrySealed) {
		t.Errorf("RegisterChannel() after Seal error = %v, want %v", err, ErrRegistrySealed)
	}

	r.RouteWrite(0x4000, 1)
	r.RouteWrite(0x4003, 1)
	r.RouteWrite(0x4009, 1) // unmapped
	if diff := cmp.Diff([]uint16{0, 3}, ch.writes); diff != "" {
		t.Errorf("routed offsets mismatch (-want +got):\n%s", diff)
	}
	if r.Channel(0x4001) != ch {
		t.Errorf("Channel($4001) isn't the registered channel")
	}
	if r.Channel(0x4020) != nil {
		t.Errorf("Channel($4020) = %v, want nil", r.Channel(0x4020))
	}
}

func TestUnmappedWriteIsNoop(t *testing.T) {
	a, cpu := newTestAPU()
	before := snapshotChannels(a)
	a.WriteRegister(0x4009, 0xFF)
	a.WriteRegister(0x400D, 0xFF)

	if diff := cmp.Diff(before, snapshotChannels(a), channelOpts...); diff != "" {
		t.Errorf("unmapped write changed state (-before +after):\n%s", diff)
	}
	if cpu.irq != 0 {
		t.Errorf("irq = %s, want none", cpu.irq)
	}
}

func TestStatus(t *testing.T) {
	a, cpu := newTestAPU()

	a.WriteRegister(StatusReg, 0x0F)
	a.WriteRegister(0x4003, 0x08)
	a.WriteRegister(0x400B, 0x08)
	a.WriteRegister(0x400F, 0x08)
	cpu.SetIRQ(hwdefs.FrameCounter)

	if got := a.io.Peek8(StatusReg); got != 0x4D {
		t.Errorf("peek status = %02X, want 4D", got)
	}
	if got := a.ReadStatus(); got != 0x4D {
		t.Errorf("ReadStatus() = %02X, want 4D", got)
	}
	if got := a.Status(); got != 0x0D {
		t.Errorf("Status() = %02X after read, want 0D", got)
	}

	cpu.SetIRQ(hwdefs.DMC)
	a.WriteRegister(StatusReg, 0x00)
	if got := a.Status(); got != 0 {
		t.Errorf("Status() = %02X after disabling all, want 00", got)
	}
}

func TestFrameCounterIRQ(t *testing.T) {
	t.Run("4-step", func(t *testing.T) {
		a, cpu := newTestAPU()
		a.Step(29827)
		if cpu.HasIRQSource(hwdefs.FrameCounter) {
			t.Fatalf("frame IRQ raised too early")
		}
		a.Step(1)
		if !cpu.HasIRQSource(hwdefs.FrameCounter) {
			t.Fatalf("frame IRQ not raised at cycle 29828")
		}
		a.EndFrame()
	})
	t.Run("inhibited", func(t *testing.T) {
		a, cpu := newTestAPU()
		a.WriteRegister(FrameCounterReg, 0x40)
		a.Step(30000)
		if cpu.HasIRQSource(hwdefs.FrameCounter) {
			t.Errorf("frame IRQ raised while inhibited")
		}
		a.EndFrame()
	})
	t.Run("5-step", func(t *testing.T) {
		a, cpu := newTestAPU()
		a.WriteRegister(FrameCounterReg, 0x80)
		a.Step(40000)
		if cpu.HasIRQSource(hwdefs.FrameCounter) {
			t.Errorf("frame IRQ raised in 5-step mode")
		}
		a.EndFrame()
	})
	t.Run("inhibit clears", func(t *testing.T) {
		a, cpu := newTestAPU()
		cpu.SetIRQ(hwdefs.FrameCounter)
		a.WriteRegister(FrameCounterReg, 0x40)
		if cpu.HasIRQSource(hwdefs.FrameCounter) {
			t.Errorf("frame IRQ not cleared by inhibit")
		}
	})
}

func TestLengthCounterHalfFrame(t *testing.T) {
	a, _ := newTestAPU()
	a.WriteRegister(StatusReg, 0x01)
	a.WriteRegister(0x4003, 0x18) // length index 3: 2

	// 5-step mode clocks a half frame on write.
	a.WriteRegister(FrameCounterReg, 0x80)
	if got := a.square1.length.counter; got != 1 {
		t.Fatalf("length = %d, want 1", got)
	}
	a.Step(14913)
	if a.square1.LengthStatus() {
		t.Errorf("square1 still active after 2 half frames")
	}
	a.EndFrame()
}

func TestDMC(t *testing.T) {
	a, cpu := newTestAPU()
	a.SetMemReader(fakeMem{0xC000: 0xFF})

	a.WriteRegister(0x4010, 0x8F) // IRQ, fastest rate
	a.WriteRegister(0x4011, 0x40)
	a.WriteRegister(0x4012, 0x00)
	a.WriteRegister(0x4013, 0x00) // 1 byte
	a.WriteRegister(StatusReg, 0x10)

	if cpu.halted != dmcReadHalt {
		t.Errorf("halted = %d, want %d", cpu.halted, dmcReadHalt)
	}
	if !cpu.HasIRQSource(hwdefs.DMC) {
		t.Errorf("DMC IRQ not raised at end of sample")
	}
	if got := a.dmc.CurrentSample(); got != 0x40 {
		t.Errorf("CurrentSample() = %02X, want 40", got)
	}

	// 8 silent bits, then the 8 set bits of the fetched byte.
	a.Step(54 * 17)
	if got := a.dmc.CurrentSample(); got != 0x40+16 {
		t.Errorf("CurrentSample() = %02X, want %02X", got, 0x40+16)
	}
	a.EndFrame()

	a.WriteRegister(StatusReg, 0x00)
	if a.dmc.CurrentSample() != 0 {
		t.Errorf("disabled DMC outputs %d", a.dmc.CurrentSample())
	}
	if cpu.HasIRQSource(hwdefs.DMC) {
		t.Errorf("$4015 write didn't clear the DMC IRQ")
	}
}

func TestMix(t *testing.T) {
	if got := mix([hwdefs.NumAudioChannels]uint8{}); got != 0 {
		t.Errorf("mix(silence) = %d, want 0", got)
	}
	loud := mix([hwdefs.NumAudioChannels]uint8{15, 15, 15, 15, 127})
	quiet := mix([hwdefs.NumAudioChannels]uint8{1, 0, 0, 0, 0})
	if quiet <= 0 || loud <= quiet {
		t.Errorf("mix() not monotonic: quiet=%d loud=%d", quiet, loud)
	}
}

func TestMixerOutput(t *testing.T) {
	a, _ := newTestAPU()
	a.WriteRegister(StatusReg, 0x01)
	a.WriteRegister(0x4000, 0xBF) // 50% duty, constant volume 15
	a.WriteRegister(0x4002, 0xFD)
	a.WriteRegister(0x4003, 0x08)

	a.Step(hwdefs.CPUCyclesPerFrame)
	a.EndFrame()

	m := a.Mixer()
	n := m.SamplesAvailable()
	if n < 700 || n > 770 {
		t.Fatalf("SamplesAvailable() = %d, want ~735", n)
	}
	out := make([]int16, n)
	if got := m.ReadSamples(out); got != n {
		t.Fatalf("ReadSamples() = %d, want %d", got, n)
	}
	nonzero := false
	for _, s := range out {
		if s != 0 {
			nonzero = true
			break
		}
	}
	if !nonzero {
		t.Errorf("square wave produced only silence")
	}

	m.SetMuted(true)
	m.Reset()
	a.Step(hwdefs.CPUCyclesPerFrame)
	a.EndFrame()
	out = out[:m.ReadSamples(out)]
	for i, s := range out {
		if s != 0 {
			t.Fatalf("muted sample %d = %d", i, s)
		}
	}
}
