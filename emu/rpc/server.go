package rpc

import (
	"errors"
	"net"
	"net/http"
	"net/rpc"
	"strconv"
)

// Emu is the emulator as seen by the RPC server.
type Emu interface {
	Reset()
	Restart()
	SetPause(pause bool)
	IsPaused() bool
	Stop()

	Frames() uint64
	Peek(addr uint16) uint8
	SaveState(path string) error
}

type emuProxy struct {
	emu Emu
}

func (ep *emuProxy) Reset(_, _ *struct{}) error             { ep.emu.Reset(); return nil }
func (ep *emuProxy) Restart(_, _ *struct{}) error           { ep.emu.Restart(); return nil }
func (ep *emuProxy) SetPause(pause bool, _ *struct{}) error { ep.emu.SetPause(pause); return nil }
func (ep *emuProxy) Stop(_, _ *struct{}) error              { ep.emu.Stop(); return nil }

func (ep *emuProxy) IsPaused(_ *struct{}, reply *bool) error {
	*reply = ep.emu.IsPaused()
	return nil
}

func (ep *emuProxy) Frames(_ *struct{}, reply *uint64) error {
	*reply = ep.emu.Frames()
	return nil
}

func (ep *emuProxy) Peek(addr uint16, reply *uint8) error {
	*reply = ep.emu.Peek(addr)
	return nil
}

func (ep *emuProxy) SaveState(path string, _ *struct{}) error {
	return ep.emu.SaveState(path)
}

type Server struct {
	l   net.Listener
	srv *http.Server
}

// NewServer starts serving RPC calls for emu on localhost:port.
func NewServer(port int, emu Emu) (*Server, error) {
	rpcsrv := rpc.NewServer()
	if err := rpcsrv.RegisterName(serviceName, &emuProxy{emu: emu}); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, rpcsrv)

	l, err := net.Listen("tcp", "localhost:"+strconv.Itoa(port))
	if err != nil {
		return nil, err
	}

	s := &Server{l: l, srv: &http.Server{Handler: mux}}
	go func() {
		if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			modRPC.WarnZ("rpc server stopped").Error("err", err).End()
		}
	}()

	modRPC.InfoZ("rpc server listening").Int("port", port).End()
	return s, nil
}

func (s *Server) Addr() net.Addr { return s.l.Addr() }

func (s *Server) Close() error {
	return s.srv.Close()
}
