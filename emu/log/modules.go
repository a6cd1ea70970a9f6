package log

import (
	"slices"
	"sync"
	"sync/atomic"
)

// A Module groups the log entries of one emulator component. Warnings and
// errors are always emitted, debug and info entries only for the modules
// enabled in the debug mask.
type Module uint

type ModuleMask uint64

const ModuleMaskAll ModuleMask = ^ModuleMask(0)

// Standard modules. Packages can register their own with NewModule.
const (
	ModEmu Module = iota + 1
	ModCPU
	ModMem
	ModHwIo
	ModPPU
	ModInput
	ModSound
)

var (
	namesMu sync.RWMutex
	names   = []string{"<invalid>", "emu", "cpu", "mem", "hwio", "ppu", "input", "sound"}

	debugMask atomic.Uint64
)

// NewModule registers a new module. It panics past 63 modules.
func NewModule(name string) Module {
	namesMu.Lock()
	defer namesMu.Unlock()

	if len(names) >= 64 {
		panic("log: too many modules")
	}
	names = append(names, name)
	return Module(len(names) - 1)
}

// ModuleNames returns the names of all registered modules.
func ModuleNames() []string {
	namesMu.RLock()
	defer namesMu.RUnlock()
	return slices.Clone(names[1:])
}

func ModuleByName(name string) (Module, bool) {
	namesMu.RLock()
	defer namesMu.RUnlock()

	idx := slices.Index(names[1:], name)
	if idx < 0 {
		return 0, false
	}
	return Module(idx + 1), true
}

func EnableDebugModules(mask ModuleMask) {
	for {
		old := debugMask.Load()
		if debugMask.CompareAndSwap(old, old|uint64(mask)) {
			return
		}
	}
}

func DisableDebugModules(mask ModuleMask) {
	for {
		old := debugMask.Load()
		if debugMask.CompareAndSwap(old, old&^uint64(mask)) {
			return
		}
	}
}

func (mod Module) Mask() ModuleMask { return 1 << ModuleMask(mod) }

func (mod Module) Enabled(level Level) bool {
	switch {
	case disabled.Load():
		return false
	case level <= WarnLevel:
		return true
	}
	return debugMask.Load()&uint64(mod.Mask()) != 0
}

func (mod Module) String() string {
	namesMu.RLock()
	defer namesMu.RUnlock()
	if int(mod) < len(names) {
		return names[mod]
	}
	return names[0]
}

func (mod Module) entry(lvl Level, msg string) *EntryZ {
	if !mod.Enabled(lvl) {
		return nil
	}
	e := NewEntryZ()
	e.mod, e.lvl, e.msg = mod, lvl, msg
	return e
}

func (mod Module) DebugZ(msg string) *EntryZ { return mod.entry(DebugLevel, msg) }
func (mod Module) InfoZ(msg string) *EntryZ  { return mod.entry(InfoLevel, msg) }
func (mod Module) WarnZ(msg string) *EntryZ  { return mod.entry(WarnLevel, msg) }
func (mod Module) ErrorZ(msg string) *EntryZ { return mod.entry(ErrorLevel, msg) }
func (mod Module) FatalZ(msg string) *EntryZ { return mod.entry(FatalLevel, msg) }
func (mod Module) PanicZ(msg string) *EntryZ { return mod.entry(PanicLevel, msg) }
