package utils

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingService(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	ctx := context.Background()
	assert.NoError(t, PingService(ctx, "http://"+ln.Addr().String(), time.Second))
	assert.NoError(t, PingAuthorizer(ctx, "http://"+ln.Addr().String()+"/path"))
}

func TestPingServiceErrors(t *testing.T) {
	ctx := context.Background()

	assert.Error(t, PingService(ctx, "://bad", time.Second))
	assert.ErrorContains(t, PingService(ctx, "/relative/only", time.Second), "no host")

	// Grab a free port then close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	assert.ErrorContains(t, PingService(ctx, "http://"+addr, 500*time.Millisecond), "failed to connect")
}
