package main

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"runtime"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"

	"nesemu/emu"
)

type batchResult struct {
	rom       string
	mapper    uint16
	frames    uint64
	frameSHA1 string
	err       error
}

func (r *batchResult) encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("rom", func(e *jx.Encoder) { e.Str(r.rom) })
		e.Field("mapper", func(e *jx.Encoder) { e.Int(int(r.mapper)) })
		e.Field("frames", func(e *jx.Encoder) { e.UInt64(r.frames) })
		if r.frameSHA1 != "" {
			e.Field("frame_sha1", func(e *jx.Encoder) { e.Str(r.frameSHA1) })
		}
		if r.err != nil {
			e.Field("error", func(e *jx.Encoder) { e.Str(r.err.Error()) })
		}
	})
}

// batchMain runs each ROM for a fixed number of frames, as fast as possible,
// and writes one JSON line per ROM, in the order they were given.
func batchMain(args Batch, w io.Writer) error {
	jobs := args.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]batchResult, len(args.RomPaths))
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, path := range args.RomPaths {
		g.Go(func() error {
			results[i] = runBatchROM(path, args.Frames)
			return nil
		})
	}
	g.Wait()

	var e jx.Encoder
	for i := range results {
		e.Reset()
		results[i].encode(&e)
		if _, err := w.Write(e.Bytes()); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func runBatchROM(path string, frames uint64) batchResult {
	res := batchResult{rom: path}

	cfg := emu.DefaultConfig()
	cfg.Audio.Enabled = false
	cfg.Emulation.FPSLimit = 0
	cfg.Emulation.RAMSeed = 1

	ui := &emu.HeadlessUI{Input: cfg.Input}
	nes := emu.Build(emu.WithConfig(cfg), emu.WithUI(ui))
	defer nes.Close()

	if err := nes.LoadROM(path); err != nil {
		res.err = err
		return res
	}
	res.mapper = nes.Rom.Mapper()

	nes.Start()
	for nes.Frames() < frames {
		nes.RunOneFrame()
	}
	nes.Stop()
	res.frames = nes.Frames()

	if frame := ui.LastFrame(); frame != nil {
		sum := sha1.Sum(frame.Pix)
		res.frameSHA1 = hex.EncodeToString(sum[:])
	}
	return res
}
