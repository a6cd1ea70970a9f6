// Package wavrec records the console audio output into a WAV file.
package wavrec

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"nesemu/emu/log"
)

const (
	bitDepth  = 16
	pcmFormat = 1
)

// SampleSource provides mono 16-bit samples, like apu.Mixer does.
type SampleSource interface {
	SampleRate() int
	ReadSamples(out []int16) int
}

// Recorder encodes samples read from a SampleSource. Samples are written
// as they're drained, the WAV header is finalized by Close.
type Recorder struct {
	enc *wav.Encoder
	buf *audio.IntBuffer
	tmp []int16

	nsamples int
}

func New(w io.WriteSeeker, sampleRate int) *Recorder {
	return &Recorder{
		enc: wav.NewEncoder(w, sampleRate, bitDepth, 1, pcmFormat),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
		tmp: make([]int16, 1024),
	}
}

// Drain reads all the available samples from src and encodes them.
func (r *Recorder) Drain(src SampleSource) error {
	for {
		n := src.ReadSamples(r.tmp)
		if n == 0 {
			return nil
		}
		r.buf.Data = r.buf.Data[:0]
		for _, s := range r.tmp[:n] {
			r.buf.Data = append(r.buf.Data, int(s))
		}
		if err := r.enc.Write(r.buf); err != nil {
			return fmt.Errorf("wavrec: %w", err)
		}
		r.nsamples += n
	}
}

// Samples returns the number of samples recorded so far.
func (r *Recorder) Samples() int { return r.nsamples }

// Close finalizes the WAV file. It doesn't close the underlying writer.
func (r *Recorder) Close() error {
	if err := r.enc.Close(); err != nil {
		return fmt.Errorf("wavrec: %w", err)
	}
	log.ModSound.InfoZ("wav recording done").Int("samples", r.nsamples).End()
	return nil
}
