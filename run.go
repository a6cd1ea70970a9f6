package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"runtime/pprof"

	"nesemu/emu"
	"nesemu/emu/log"
	"nesemu/emu/rpc"
	"nesemu/emu/wavrec"
)

func loadConfig(path string) (emu.Config, error) {
	if path == "" {
		return emu.LoadConfigOrDefault(), nil
	}
	return emu.LoadConfig(path)
}

// runMain runs the emulator headless with the given rom.
func runMain(args Run) (err error) {
	cfg, err := loadConfig(args.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if args.FPS >= 0 {
		cfg.Emulation.FPSLimit = args.FPS
	}
	if args.SaveConfig != "" {
		if err := emu.SaveConfig(args.SaveConfig, cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}
	if args.Trace != nil {
		cfg.TraceOut = args.Trace
		defer args.Trace.Close()
	}

	ui := &emu.HeadlessUI{Input: cfg.Input}
	nes := emu.Build(emu.WithConfig(cfg), emu.WithUI(ui))
	defer func() {
		if cerr := nes.Close(); err == nil {
			err = cerr
		}
	}()

	if err := nes.LoadROM(args.RomPath); err != nil {
		return err
	}
	if args.LoadState != "" {
		if err := loadState(nes, args.LoadState); err != nil {
			return err
		}
	}

	emulator := emu.NewEmulator(nes)
	emulator.SetMaxFrames(args.Frames)

	if args.WAV != "" {
		f, err := os.Create(args.WAV)
		if err != nil {
			return err
		}
		rec := wavrec.New(f, nes.Mixer.SampleRate())
		emulator.AddFrameHook(func(nes *emu.NES) error {
			return rec.Drain(nes.Mixer)
		})
		defer func() {
			if err := rec.Close(); err != nil {
				log.ModEmu.WarnZ("failed to finalize wav file").Error("err", err).End()
			}
			f.Close()
		}()
	}

	if args.CPUProfile != "" {
		f, err := os.Create(args.CPUProfile)
		if err != nil {
			return fmt.Errorf("failed to create cpu profile file: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("failed to start cpu profile: %w", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
			fmt.Println("CPU profile written to", args.CPUProfile)
		}()
	}

	if args.RPCPort != 0 {
		server, err := rpc.NewServer(args.RPCPort, emulator)
		if err != nil {
			return fmt.Errorf("RPC error: %w", err)
		}
		defer server.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := emulator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if args.SaveState != "" {
		if err := emulator.SaveState(args.SaveState); err != nil {
			return err
		}
	}
	if args.Screenshot != "" {
		if err := saveScreenshot(ui, args.Screenshot); err != nil {
			return err
		}
	}
	return nil
}

func loadState(nes *emu.NES, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return nes.StateLoad(f)
}

func saveScreenshot(ui *emu.HeadlessUI, path string) error {
	frame := ui.LastFrame()
	if frame == nil {
		return errors.New("no frame to save")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return f.Close()
}
