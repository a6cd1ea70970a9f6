package log

import (
	"fmt"
	"sync"
	"time"

	"gopkg.in/Sirupsen/logrus.v0"
)

type Level uint32

// Same ordering as logrus levels, lower is more severe.
const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

const maxFields = 16

// EntryZ is a log entry with a fixed-size field buffer. All methods accept a
// nil receiver, which is what disabled modules return, so the chain costs
// nothing when logging is off.
type EntryZ struct {
	mod     Module
	lvl     Level
	msg     string
	fields  [maxFields]field
	nfields int
}

var entryPool = sync.Pool{New: func() any { return new(EntryZ) }}

func NewEntryZ() *EntryZ {
	e := entryPool.Get().(*EntryZ)
	e.nfields = 0
	return e
}

func (e *EntryZ) add(f field) *EntryZ {
	if e == nil {
		return nil
	}
	if e.nfields < len(e.fields) {
		e.fields[e.nfields] = f
		e.nfields++
	}
	return e
}

func (e *EntryZ) hex(key string, v uint64, width uint8) *EntryZ {
	return e.add(field{key: key, kind: kindHex, width: width, num: v})
}

func (e *EntryZ) Bool(key string, v bool) *EntryZ {
	var n uint64
	if v {
		n = 1
	}
	return e.add(field{key: key, kind: kindBool, num: n})
}

func (e *EntryZ) String(key string, v string) *EntryZ {
	return e.add(field{key: key, kind: kindString, str: v})
}

func (e *EntryZ) Stringer(key string, v fmt.Stringer) *EntryZ {
	return e.add(field{key: key, kind: kindStringer, val: v})
}

func (e *EntryZ) Hex8(key string, v uint8) *EntryZ   { return e.hex(key, uint64(v), 2) }
func (e *EntryZ) Hex16(key string, v uint16) *EntryZ { return e.hex(key, uint64(v), 4) }

func (e *EntryZ) Int(key string, v int) *EntryZ {
	return e.add(field{key: key, kind: kindInt, num: uint64(v)})
}

func (e *EntryZ) Uint8(key string, v uint8) *EntryZ   { return e.Uint64(key, uint64(v)) }
func (e *EntryZ) Uint16(key string, v uint16) *EntryZ { return e.Uint64(key, uint64(v)) }
func (e *EntryZ) Uint32(key string, v uint32) *EntryZ { return e.Uint64(key, uint64(v)) }

func (e *EntryZ) Uint64(key string, v uint64) *EntryZ {
	return e.add(field{key: key, kind: kindUint, num: v})
}

func (e *EntryZ) Error(key string, err error) *EntryZ {
	f := field{key: key, kind: kindError}
	if err != nil {
		f.val = err
	}
	return e.add(f)
}

func (e *EntryZ) Duration(key string, d time.Duration) *EntryZ {
	return e.add(field{key: key, kind: kindDuration, num: uint64(d)})
}

// Blob adds b, hex-encoded. b is not copied.
func (e *EntryZ) Blob(key string, b []byte) *EntryZ {
	return e.add(field{key: key, kind: kindBlob, val: b})
}

func (e *EntryZ) logrusFields() logrus.Fields {
	fields := make(logrus.Fields, e.nfields+1)
	fields["_mod"] = e.mod.String()
	for i := range e.fields[:e.nfields] {
		fields[e.fields[i].key] = e.fields[i].format()
	}
	return fields
}

// End emits the entry. The entry must not be used afterwards.
func (e *EntryZ) End() {
	if e == nil {
		return
	}
	addContexts(e)

	le := logrus.StandardLogger().WithFields(e.logrusFields())
	switch e.lvl {
	case DebugLevel:
		le.Debug(e.msg)
	case InfoLevel:
		le.Info(e.msg)
	case WarnLevel:
		le.Warn(e.msg)
	case ErrorLevel:
		le.Error(e.msg)
	case FatalLevel:
		le.Fatal(e.msg)
	case PanicLevel:
		msg := e.msg
		entryPool.Put(e)
		le.Panic(msg)
	}

	clear(e.fields[:e.nfields])
	e.nfields = 0
	entryPool.Put(e)
}
