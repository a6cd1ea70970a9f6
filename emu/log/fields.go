package log

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

type fieldKind uint8

const (
	kindBool fieldKind = iota
	kindString
	kindStringer
	kindHex // width in hexWidth
	kindInt
	kindUint
	kindError
	kindDuration
	kindBlob
)

// field is a single key/value pair attached to an EntryZ. Values are only
// formatted when the entry is emitted.
type field struct {
	key   string
	kind  fieldKind
	width uint8 // hex digits, for kindHex

	num uint64
	str string
	val any
}

func (f *field) format() string {
	switch f.kind {
	case kindBool:
		return strconv.FormatBool(f.num != 0)
	case kindString:
		return f.str
	case kindStringer:
		return f.val.(fmt.Stringer).String()
	case kindHex:
		s := strconv.FormatUint(f.num, 16)
		for len(s) < int(f.width) {
			s = "0" + s
		}
		return s
	case kindInt:
		return strconv.FormatInt(int64(f.num), 10)
	case kindUint:
		return strconv.FormatUint(f.num, 10)
	case kindError:
		if f.val == nil {
			return "<nil>"
		}
		return f.val.(error).Error()
	case kindDuration:
		return time.Duration(f.num).String()
	case kindBlob:
		return hex.EncodeToString(f.val.([]byte))
	}
	return "?"
}
