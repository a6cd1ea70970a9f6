package apu

import (
	"github.com/arl/blip"

	"nesemu/emu/log"
	"nesemu/hw/hwdefs"
)

const DefaultSampleRate = 44100

// Mixer combines the channel outputs with the non-linear NES mixing formula
// and resamples the result to the output sample rate.
type Mixer struct {
	buf *blip.Buffer

	clockRate  uint32
	sampleRate uint32

	prevOut int16
	muted   bool
	size    int
	scratch []int16
}

// NewMixer returns a mixer producing samples at sampleRate.
func NewMixer(sampleRate int) *Mixer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	size := sampleRate / 10
	m := &Mixer{
		buf:        blip.NewBuffer(size),
		size:       size,
		scratch:    make([]int16, size),
		clockRate:  hwdefs.NTSCCPUClock,
		sampleRate: uint32(sampleRate),
	}
	m.buf.SetRates(float64(m.clockRate), float64(m.sampleRate))
	return m
}

func (m *Mixer) SampleRate() int { return int(m.sampleRate) }

// SetMuted mutes or unmutes the output. A muted mixer keeps producing samples
// but they're all silent.
func (m *Mixer) SetMuted(muted bool) {
	m.muted = muted
}

func (m *Mixer) Muted() bool { return m.muted }

func (m *Mixer) Reset() {
	m.prevOut = 0
	m.buf.Clear()
}

// mix computes the mixed output level, from the per-channel levels.
func mix(out [hwdefs.NumAudioChannels]uint8) int16 {
	squareOut := float64(out[Square1]) + float64(out[Square2])
	tndOut := float64(out[DPCM]) +
		2.7516713261*float64(out[Triangle]) +
		1.8493587125*float64(out[Noise])

	squareVolume := uint16((95.88 * 5000.0) / (8128.0/squareOut + 100.0))
	tndVolume := uint16((159.79 * 5000.0) / (22638.0/tndOut + 100.0))
	return int16(squareVolume + tndVolume)
}

// update records the channels output at the given cycle of the current frame.
func (m *Mixer) update(time uint32, out [hwdefs.NumAudioChannels]uint8) {
	cur := mix(out) * 4
	if m.muted {
		cur = 0
	}
	if delta := cur - m.prevOut; delta != 0 {
		m.buf.AddDelta(uint64(time), int32(delta))
		m.prevOut = cur
	}
}

// EndFrame ends the current audio frame, which lasted the given number of
// CPU cycles, making its samples available to ReadSamples.
// Samples that haven't been read after a few frames are dropped.
func (m *Mixer) EndFrame(cycles uint32) {
	if avail := m.buf.SamplesAvailable(); avail > m.size/2 {
		m.buf.ReadSamples(m.scratch, avail, blip.Mono)
		log.ModSound.DebugZ("dropped audio samples").Int("count", avail).End()
	}
	m.buf.EndFrame(int(cycles))
	log.ModSound.DebugZ("end audio frame").
		Uint32("cycles", cycles).
		Int("avail", m.buf.SamplesAvailable()).
		End()
}

// SamplesAvailable returns the number of samples ready to be read.
func (m *Mixer) SamplesAvailable() int {
	return m.buf.SamplesAvailable()
}

// ReadSamples reads at most len(out) mono samples into out and returns the
// number of samples read.
func (m *Mixer) ReadSamples(out []int16) int {
	return m.buf.ReadSamples(out, len(out), blip.Mono)
}
