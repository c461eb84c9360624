package pipehttp_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/advdv/pipehttp"
	"github.com/stretchr/testify/require"
)

func TestDialTCPSinkStreamsNDJSONLines(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	lines := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		lines <- line
	}()

	sink := pipehttp.DialTCPSink(ln.Addr().String())
	defer sink.Close()
	sink.Emit("requests", 1, map[string]string{"route": "home"})

	select {
	case line := <-lines:
		require.Contains(t, line, `"name":"requests"`)
		require.Contains(t, line, `"route":"home"`)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive metric line")
	}
}

func TestDialTCPSinkToleratesUnreachableAddress(t *testing.T) {
	sink := pipehttp.DialTCPSink("127.0.0.1:1")
	require.NotPanics(t, func() {
		sink.Emit("requests", 1, nil)
	})
}
