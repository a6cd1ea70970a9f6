package hwio

// Device is a BankIO8 covering a whole range of addresses, each access being
// forwarded to its callbacks with the absolute address.
type Device struct {
	Name  string
	Size  int
	Flags RWFlags

	ReadCb  func(addr uint16) uint8
	PeekCb  func(addr uint16) uint8
	WriteCb func(addr uint16, val uint8)
}

func (d *Device) Read8(addr uint16, peek bool) uint8 {
	switch {
	case peek && d.PeekCb != nil:
		return d.PeekCb(addr)
	case !peek && d.ReadCb != nil:
		return d.ReadCb(addr)
	}
	return 0
}

func (d *Device) Write8(addr uint16, val uint8) {
	if d.WriteCb != nil {
		d.WriteCb(addr, val)
	}
}
