package log

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/term"
	"gopkg.in/Sirupsen/logrus.v0"
)

// A Context adds fields to every log entry while it's registered.
type Context interface {
	AddLogContext(*EntryZ)
}

var (
	disabled atomic.Bool

	ctxmu    sync.Mutex
	contexts []Context
)

func init() {
	SetOutput(os.Stderr)
}

// SetOutput redirects all logs to w. Colors are only enabled when w is a
// terminal.
func SetOutput(w io.Writer) {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}

	logrus.SetOutput(w)
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:      tty,
		DisableColors:    !tty,
		DisableTimestamp: !tty,
		FullTimestamp:    tty,
	})
	// Filtering is done per module, let everything through logrus.
	logrus.SetLevel(logrus.DebugLevel)
}

// Disable turns off all logging, including warnings and errors.
func Disable() {
	disabled.Store(true)
	logrus.SetOutput(io.Discard)
}

// Enable reverts a previous call to Disable. Logs are sent to stderr.
func Enable() {
	disabled.Store(false)
	SetOutput(os.Stderr)
}

func AddContext(c Context) {
	ctxmu.Lock()
	defer ctxmu.Unlock()
	contexts = append(contexts, c)
}

func RemoveContext(c Context) {
	ctxmu.Lock()
	defer ctxmu.Unlock()
	for i := range contexts {
		if contexts[i] == c {
			contexts = append(contexts[:i], contexts[i+1:]...)
			return
		}
	}
}

func addContexts(z *EntryZ) {
	ctxmu.Lock()
	defer ctxmu.Unlock()
	for _, c := range contexts {
		c.AddLogContext(z)
	}
}
