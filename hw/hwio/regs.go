package hwio

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type bankReg struct {
	name   string
	offset uint16
	size   int
	flags  RWFlags
	io     BankIO8
}

type tagOpts map[string]string

func parseTag(tag string) tagOpts {
	opts := make(tagOpts)
	for _, opt := range strings.Split(tag, ",") {
		if opt = strings.TrimSpace(opt); opt == "" {
			continue
		}
		k, v, _ := strings.Cut(opt, "=")
		opts[k] = v
	}
	return opts
}

func (o tagOpts) num(key string, bits int, def uint64) (uint64, error) {
	s, ok := o[key]
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func (o tagOpts) flags() RWFlags {
	_, ro := o["readonly"]
	_, wo := o["writeonly"]
	switch {
	case ro:
		return ReadOnlyFlag
	case wo:
		return WriteOnlyFlag
	}
	return ReadWriteFlag
}

var (
	reg8Type   = reflect.TypeFor[Reg8]()
	deviceType = reflect.TypeFor[Device]()
)

// regFields calls fn for each Reg8 or Device field of bank carrying a hwio
// tag.
func regFields(bank any, fn func(f reflect.StructField, v reflect.Value, opts tagOpts) error) error {
	pv := reflect.ValueOf(bank)
	if pv.Kind() != reflect.Pointer || pv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("hwio: bank must be a pointer to struct, got %T", bank)
	}
	sv := pv.Elem()
	for i := range sv.NumField() {
		f := sv.Type().Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		if f.Type != reg8Type && f.Type != deviceType {
			return fmt.Errorf("hwio: %s: invalid reg type %s", f.Name, f.Type)
		}
		if err := fn(f, sv.Field(i), parseTag(tag)); err != nil {
			return fmt.Errorf("hwio: %s: %w", f.Name, err)
		}
	}
	return nil
}

func bankGetRegs(bank any, bankNum int) ([]bankReg, error) {
	var regs []bankReg
	err := regFields(bank, func(f reflect.StructField, v reflect.Value, opts tagOpts) error {
		num, err := opts.num("bank", 8, 0)
		if err != nil || int(num) != bankNum {
			return err
		}
		if _, ok := opts["offset"]; !ok {
			return nil
		}
		off, err := opts.num("offset", 16, 0)
		if err != nil {
			return err
		}

		reg := bankReg{name: f.Name, offset: uint16(off), size: 1, flags: opts.flags()}
		switch r := v.Addr().Interface().(type) {
		case *Reg8:
			reg.io = r
		case *Device:
			if r.Size <= 0 {
				return fmt.Errorf("device has no size")
			}
			reg.io, reg.size = r, r.Size
		}
		regs = append(regs, reg)
		return nil
	})
	return regs, err
}

// InitRegs initializes the Reg8 and Device fields of bank from their "hwio"
// struct tag. On top of those described in Table.MapBank, the options are:
//
//	reset=0x12      Initial value of a Reg8.
//	rwmask=0xF0     Bits of a Reg8 the CPU can modify, defaults to 0xFF.
//	rcb[=Name]      Read callback, method of bank named Name or, by
//	                default, "Read" + the uppercased field name.
//	wcb[=Name]      Write callback, "Write" + uppercased field name.
//	pcb[=Name]      Peek callback, "Peek" + uppercased field name.
//
// For a Reg8 the callbacks have the signature of Reg8.ReadCb, Reg8.WriteCb
// and Reg8.PeekCb, for a Device those of Device.ReadCb, etc.
func InitRegs(bank any) error {
	pv := reflect.ValueOf(bank)
	return regFields(bank, func(f reflect.StructField, v reflect.Value, opts tagOpts) error {
		method := func(opt, prefix string) (any, error) {
			name, ok := opts[opt]
			if !ok {
				return nil, nil
			}
			if name == "" {
				name = prefix + strings.ToUpper(f.Name)
			}
			m := pv.MethodByName(name)
			if !m.IsValid() {
				return nil, fmt.Errorf("missing method %s", name)
			}
			return m.Interface(), nil
		}
		rcb, err := method("rcb", "Read")
		if err != nil {
			return err
		}
		wcb, err := method("wcb", "Write")
		if err != nil {
			return err
		}
		pcb, err := method("pcb", "Peek")
		if err != nil {
			return err
		}

		switch r := v.Addr().Interface().(type) {
		case *Reg8:
			reset, err := opts.num("reset", 8, 0)
			if err != nil {
				return err
			}
			rwmask, err := opts.num("rwmask", 8, 0xFF)
			if err != nil {
				return err
			}
			*r = Reg8{
				Name:   f.Name,
				Value:  uint8(reset),
				RoMask: ^uint8(rwmask),
				Flags:  opts.flags(),
			}
			return setCallbacks(&r.ReadCb, &r.WriteCb, &r.PeekCb, rcb, wcb, pcb)
		case *Device:
			size, err := opts.num("size", 16, 0)
			if err != nil {
				return err
			}
			*r = Device{Name: f.Name, Size: int(size), Flags: opts.flags()}
			return setCallbacks(&r.ReadCb, &r.WriteCb, &r.PeekCb, rcb, wcb, pcb)
		}
		return nil
	})
}

func setCallbacks(rd, wr, pk, rcb, wcb, pcb any) error {
	assign := func(dst any, cb any, what string) error {
		if cb == nil {
			return nil
		}
		dv := reflect.ValueOf(dst).Elem()
		cv := reflect.ValueOf(cb)
		if cv.Type() != dv.Type() {
			return fmt.Errorf("%s callback has type %s, want %s", what, cv.Type(), dv.Type())
		}
		dv.Set(cv)
		return nil
	}
	if err := assign(rd, rcb, "read"); err != nil {
		return err
	}
	if err := assign(wr, wcb, "write"); err != nil {
		return err
	}
	return assign(pk, pcb, "peek")
}

// MustInitRegs is like InitRegs but panics on error.
func MustInitRegs(bank any) {
	if err := InitRegs(bank); err != nil {
		panic(err)
	}
}
