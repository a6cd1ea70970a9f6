package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/alecthomas/kong"

	"nesemu/emu/log"
)

type mode byte

const (
	runMode       mode = iota // Run a ROM headless
	romInfosMode              // Show ROM infos
	stateInfoMode             // Show save-state infos
	batchMode                 // Run many ROMs in parallel
	versionMode               // Show version
)

type (
	CLI struct {
		Run       Run       `cmd:"" help:"Run ROM in emulator. (default command)" default:"withargs"`
		RomInfos  RomInfos  `cmd:"" help:"Show ROM infos." name:"rom-infos"`
		StateInfo StateInfo `cmd:"" help:"Show save-state infos." name:"state-info"`
		Batch     Batch     `cmd:"" help:"${batch_help}"`
		Version   Version   `cmd:"" help:"Show nesemu version."`

		Log logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		mode mode
	}

	Run struct {
		RomPath string `arg:"" name:"/path/to/rom" help:"ROM to run." type:"existingfile"`

		Config     string   `name:"config" help:"${config_help}" type:"existingfile"`
		SaveConfig string   `name:"save-config" help:"Write the effective configuration to file." type:"path"`
		Frames     uint64   `name:"frames" help:"Stop after N frames, 0 runs until interrupted." default:"0"`
		FPS        int      `name:"fps" help:"Override the configured fps limit, 0 is unlimited." default:"-1"`
		WAV        string   `name:"wav" help:"Record audio into a WAV file." type:"path"`
		Screenshot string   `name:"screenshot" help:"Save the last frame as PNG." type:"path"`
		SaveState  string   `name:"save-state" help:"Save state to file when the emulation stops." type:"path"`
		LoadState  string   `name:"load-state" help:"Load state from file before starting." type:"existingfile"`
		RPCPort    int      `name:"rpc-port" help:"Listen for remote control on localhost:port."`
		CPUProfile string   `name:"cpuprofile" help:"${cpuprofile_help}" type:"path"`
		Trace      *outfile `name:"trace" help:"Write CPU trace log." placeholder:"FILE|stdout|stderr"`
	}

	RomInfos struct {
		RomPath string `arg:"" name:"/path/to/rom" type:"existingfile"`
		JSON    bool   `name:"json" help:"Output JSON."`
	}

	StateInfo struct {
		StatePath string `arg:"" name:"/path/to/state" type:"existingfile"`
	}

	Batch struct {
		RomPaths []string `arg:"" name:"roms" help:"ROMs to run." type:"existingfile"`
		Frames   uint64   `name:"frames" help:"Number of frames to run per ROM." default:"600"`
		Jobs     int      `name:"jobs" short:"j" help:"Number of ROMs run in parallel, 0 means one per CPU." default:"0"`
	}

	Version struct{}
)

var vars = kong.Vars{
	"config_help":     "Configuration file, defaults to the one in the user config directory.",
	"cpuprofile_help": "Write CPU profile to file.",
	"batch_help":      "Run ROMs headless, in parallel, and report a JSON line per ROM.",
	"log_help":        "Enable logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("nesemu"),
		kong.Description("Headless NES emulator."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch strings.Fields(ctx.Command())[0] {
	case "rom-infos":
		cfg.mode = romInfosMode
	case "state-info":
		cfg.mode = stateInfoMode
	case "batch":
		cfg.mode = batchMode
	case "version":
		cfg.mode = versionMode
	default:
		cfg.mode = runMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if ctx.Command() != "" && !strings.HasPrefix(ctx.Command(), "run") {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("\nLog modules (--log mod0,mod1,...):\n")
	for _, m := range log.ModuleNames() {
		fmt.Fprintf(&sb, "  %s\n", m)
	}
	sb.WriteString("  all  enable every module\n")
	sb.WriteString("  no   disable logging, warnings and errors included\n")
	_, err := io.WriteString(os.Stderr, sb.String())
	return err
}

// logModMask is the set of modules for which debug logs are enabled.
type logModMask log.ModuleMask

// Decode implements kong.MapperValue.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	var value string
	if err := ctx.Scan.PopValueInto("log modules", &value); err != nil {
		return err
	}

	names := strings.Split(value, ",")
	switch {
	case slices.Contains(names, "no"):
		if len(names) > 1 {
			return fmt.Errorf("'no' can't be combined with other log modules")
		}
		log.Disable()
		return nil
	case slices.Contains(names, "all"):
		if len(names) > 1 {
			return fmt.Errorf("'all' can't be combined with other log modules")
		}
		log.EnableDebugModules(log.ModuleMaskAll)
		return nil
	}

	for _, name := range names {
		mod, ok := log.ModuleByName(name)
		if !ok {
			return fmt.Errorf("unknown log module %q", name)
		}
		lm |= logModMask(mod.Mask())
	}
	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// Decode opens the file named by the flag value, stdout and stderr being
// special cases.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	if err := ctx.Scan.PopValueInto("file", &f.name); err != nil {
		return err
	}
	f.close = func() error { return nil }

	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
		f.close = fd.Close
	}
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "nesemu: %s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
