/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"net"
	"time"
)

// LocalAddrWithFreePort returns 127.0.0.1:<port> address where port is not listened by anybody at the moment.
func LocalAddrWithFreePort() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	addr := ln.Addr().String()
	if err = ln.Close(); err != nil {
		return "", err
	}
	return addr, nil
}

// WaitListeningServer waits until the server is ready to accept TCP connections on the passed address.
func WaitListeningServer(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if conn, err := net.DialTimeout("tcp", addr, time.Second); err == nil {
			return conn.Close()
		}
		if time.Now().After(deadline) {
			return errors.New("waiting listening server timed out")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
