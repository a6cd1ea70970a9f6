package main

import (
	"fmt"
	"os"
	"runtime/debug"
)

func main() {
	cli := parseArgs(os.Args[1:])

	switch cli.mode {
	case runMode:
		checkf(runMain(cli.Run), "failed to run rom")
	case romInfosMode:
		checkf(romInfosMain(cli.RomInfos, os.Stdout), "failed to read rom")
	case stateInfoMode:
		checkf(stateInfoMain(cli.StateInfo, os.Stdout), "failed to read save-state")
	case batchMode:
		checkf(batchMain(cli.Batch, os.Stdout), "batch failed")
	case versionMode:
		fmt.Println("nesemu", version())
	}
}

func version() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "" {
		return "(devel)"
	}
	return bi.Main.Version
}
