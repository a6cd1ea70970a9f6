package rpc

import (
	"fmt"
	"net/rpc"
	"strconv"
	"time"
)

type Client struct {
	client *rpc.Client
}

// NewClient connects to the RPC server at localhost:port, retrying for a
// little while if the server is not ready yet.
func NewClient(port int) (*Client, error) {
	var (
		client *rpc.Client
		err    error
	)
	const maxretries = 5
	for i := range maxretries {
		client, err = rpc.DialHTTP("tcp", "localhost:"+strconv.Itoa(port))
		if err == nil {
			return &Client{client: client}, nil
		}
		modRPC.WarnZ("dial tcp failed").Error("err", err).Int("retry", i).End()
		time.Sleep(250 * time.Millisecond)
	}
	return nil, fmt.Errorf("dial failed max retries: %v", err)
}

func (c *Client) Close() error {
	modRPC.DebugZ("closing rpc client").End()
	return c.client.Close()
}

func (c *Client) Reset() error              { return call(c.client, "Reset", nil) }
func (c *Client) Restart() error            { return call(c.client, "Restart", nil) }
func (c *Client) SetPause(pause bool) error { return call(c.client, "SetPause", pause) }
func (c *Client) Stop() error               { return call(c.client, "Stop", nil) }
func (c *Client) SaveState(path string) error {
	return call(c.client, "SaveState", path)
}

func (c *Client) IsPaused() (bool, error) { return request[bool](c.client, "IsPaused", nil) }
func (c *Client) Frames() (uint64, error) { return request[uint64](c.client, "Frames", nil) }

// Peek reads a byte of the CPU address space.
func (c *Client) Peek(addr uint16) (uint8, error) { return request[uint8](c.client, "Peek", addr) }

func call(client *rpc.Client, funcname string, args any) error {
	_, err := request[struct{}](client, funcname, args)
	return err
}

func request[T any](client *rpc.Client, funcname string, args any) (T, error) {
	if args == nil {
		args = &struct{}{}
	}
	var reply T
	if err := client.Call(serviceName+"."+funcname, args, &reply); err != nil {
		return reply, fmt.Errorf("rpc %s: %w", funcname, err)
	}
	return reply, nil
}
