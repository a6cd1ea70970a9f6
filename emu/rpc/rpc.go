// Package rpc remotely controls a running emulator, over HTTP.
package rpc

import (
	"net"

	"nesemu/emu/log"
)

var modRPC = log.NewModule("rpc")

const serviceName = "emu"

// UnusedPort returns a free TCP port on localhost.
func UnusedPort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, err
	}
	return port, nil
}
