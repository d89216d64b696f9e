package cluster

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testServer is the far side of a net.Pipe connection: it collects every
// line the link writes and lets the test push lines back.
type testServer struct {
	conn  net.Conn
	lines chan string
}

func newTestServer(conn net.Conn) *testServer {
	s := &testServer{conn: conn, lines: make(chan string, 64)}
	go func() {
		reader := bufio.NewReader(conn)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				close(s.lines)
				return
			}
			s.lines <- strings.TrimRight(line, "\r\n")
		}
	}()
	return s
}

func (s *testServer) send(t *testing.T, line string) {
	t.Helper()
	if _, err := io.WriteString(s.conn, line+"\n"); err != nil {
		t.Fatalf("server write: %v", err)
	}
}

func (s *testServer) expectLine(t *testing.T, want string) {
	t.Helper()
	select {
	case got, ok := <-s.lines:
		if !ok {
			t.Fatalf("connection closed while waiting for %q", want)
		}
		if got != want {
			t.Fatalf("got line %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for line %q", want)
	}
}

const testCC11 = "CC11^14025.0^IT9ABC^30-Aug-2026^1845Z^CQ^W1AW^^^K1TTT^^^^15^^^IT9^^JM77^^^^"

func expectLogin(t *testing.T, server *testServer) {
	t.Helper()
	server.expectLine(t, "TEST1")
	for _, cmd := range defaultLoginCommands {
		server.expectLine(t, cmd)
	}
}

func waitState(t *testing.T, events <-chan Event, want State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("events closed while waiting for state %v", want)
			}
			if st, isStatus := ev.(StatusEvent); isStatus && st.State == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v", want)
		}
	}
}

func waitSpot(t *testing.T, events <-chan Event) SpotEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("events closed while waiting for a spot")
			}
			if sp, isSpot := ev.(SpotEvent); isSpot {
				return sp
			}
		case <-deadline:
			t.Fatal("timed out waiting for a spot")
		}
	}
}

func TestLoginBannerAndStreaming(t *testing.T) {
	serverCh := make(chan *testServer, 1)
	link := NewLink(Options{
		Host:     "cluster.example.net",
		Port:     23,
		Callsign: "TEST1",
		dial: func(addr string) (io.ReadWriteCloser, error) {
			client, server := net.Pipe()
			serverCh <- newTestServer(server)
			return client, nil
		},
	})
	link.Start()
	defer link.Stop()

	server := <-serverCh
	expectLogin(t, server)

	// Banner lines are discarded without validation.
	server.send(t, "Welcome to the AR-Cluster node")
	server.send(t, "running AR-Cluster software")
	server.send(t, testCC11)

	events := link.Events()
	waitState(t, events, StateStreaming)
	sp := waitSpot(t, events)
	if sp.Spot.Call != "IT9ABC" || sp.Spot.Band != "20m" {
		t.Fatalf("unexpected spot: %+v", sp.Spot)
	}
}

func TestCommandsQueuedUntilStreaming(t *testing.T) {
	serverCh := make(chan *testServer, 1)
	link := NewLink(Options{
		Callsign: "TEST1",
		dial: func(addr string) (io.ReadWriteCloser, error) {
			client, server := net.Pipe()
			serverCh <- newTestServer(server)
			return client, nil
		},
	})

	// Queued before any connection exists.
	link.Send("sh/dx 5")
	link.Send("set/filter dxbm/pass 20")

	link.Start()
	defer link.Stop()

	server := <-serverCh
	expectLogin(t, server)
	server.send(t, testCC11) // enters Streaming, writer starts

	// FIFO order preserved.
	server.expectLine(t, "sh/dx 5")
	server.expectLine(t, "set/filter dxbm/pass 20")

	events := link.Events()
	deadline := time.After(2 * time.Second)
	sent := 0
	for sent < 2 {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("events closed early")
			}
			if se, isSent := ev.(SentEvent); isSent {
				switch sent {
				case 0:
					if se.Command != "sh/dx 5" {
						t.Fatalf("first sent = %q", se.Command)
					}
				case 1:
					if se.Command != "set/filter dxbm/pass 20" {
						t.Fatalf("second sent = %q", se.Command)
					}
				}
				sent++
			}
		case <-deadline:
			t.Fatal("timed out waiting for sent confirmations")
		}
	}
}

func TestReconnectAfterReadFailure(t *testing.T) {
	var dials atomic.Int32
	serverCh := make(chan *testServer, 2)
	link := NewLink(Options{
		Callsign:       "TEST1",
		ReconnectDelay: 20 * time.Millisecond,
		dial: func(addr string) (io.ReadWriteCloser, error) {
			dials.Add(1)
			client, server := net.Pipe()
			serverCh <- newTestServer(server)
			return client, nil
		},
	})
	link.Start()
	defer link.Stop()

	server := <-serverCh
	expectLogin(t, server)
	server.send(t, testCC11)

	events := link.Events()
	waitState(t, events, StateStreaming)

	// Simulate the socket dropping.
	server.conn.Close()

	waitState(t, events, StateReconnecting)
	waitState(t, events, StateConnecting)

	second := <-serverCh
	expectLogin(t, second)
	if n := dials.Load(); n != 2 {
		t.Fatalf("dial count = %d, want 2", n)
	}
}

func TestStopDuringReconnectWaitAborts(t *testing.T) {
	var dials atomic.Int32
	link := NewLink(Options{
		Callsign:       "TEST1",
		ReconnectDelay: time.Hour, // must be aborted, not waited out
		dial: func(addr string) (io.ReadWriteCloser, error) {
			dials.Add(1)
			return nil, errors.New("connection refused")
		},
	})
	link.Start()

	events := link.Events()
	waitState(t, events, StateReconnecting)

	done := make(chan struct{})
	go func() {
		link.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not abort the reconnect wait")
	}

	// Drain remaining events: no further Connecting attempt may appear.
	sawStopped := false
	for ev := range events {
		st, ok := ev.(StatusEvent)
		if !ok {
			continue
		}
		if st.State == StateConnecting {
			t.Fatal("link attempted another connection after stop")
		}
		if st.State == StateStopped {
			sawStopped = true
		}
	}
	if !sawStopped {
		t.Fatal("missing Stopped transition")
	}
	if n := dials.Load(); n != 1 {
		t.Fatalf("dial count = %d, want 1", n)
	}
}

func TestSendConcurrentWithStop(t *testing.T) {
	link := NewLink(Options{
		Callsign:       "TEST1",
		ReconnectDelay: time.Hour,
		dial: func(addr string) (io.ReadWriteCloser, error) {
			return nil, errors.New("connection refused")
		},
	})
	link.Start()

	events := link.Events()
	waitState(t, events, StateReconnecting)

	// Hammer Send from several goroutines while Stop closes the link. Every
	// emit must either deliver or silently drop; none may hit the closed
	// event channel.
	var wg sync.WaitGroup
	start := make(chan struct{})
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := 0; i < 100; i++ {
				link.Send(fmt.Sprintf("sh/dx %d", i))
			}
		}()
	}
	close(start)
	link.Stop()
	wg.Wait()

	link.Send("sh/dx late") // no-op after stop

	for range events {
		// drain until close
	}
}

func TestWriteFailureRetainsCommand(t *testing.T) {
	serverCh := make(chan *testServer, 2)
	link := NewLink(Options{
		Callsign:       "TEST1",
		ReconnectDelay: 20 * time.Millisecond,
		dial: func(addr string) (io.ReadWriteCloser, error) {
			client, server := net.Pipe()
			serverCh <- newTestServer(server)
			return client, nil
		},
	})
	link.Start()
	defer link.Stop()

	server := <-serverCh
	expectLogin(t, server)
	server.send(t, testCC11)

	events := link.Events()
	waitState(t, events, StateStreaming)

	// Drop the connection, then queue a command. Whether the old writer
	// tries (and fails) the write or never picks it up, the command must
	// survive for the next streaming phase.
	server.conn.Close()
	link.Send("sh/dx 9")

	second := <-serverCh
	expectLogin(t, second)
	second.send(t, testCC11) // enters Streaming, writer starts
	second.expectLine(t, "sh/dx 9")
}

func TestSendAppendsNewlineOnce(t *testing.T) {
	serverCh := make(chan *testServer, 1)
	link := NewLink(Options{
		Callsign: "TEST1",
		dial: func(addr string) (io.ReadWriteCloser, error) {
			client, server := net.Pipe()
			serverCh <- newTestServer(server)
			return client, nil
		},
	})
	link.Start()
	defer link.Stop()

	server := <-serverCh
	expectLogin(t, server)
	server.send(t, testCC11)

	link.Send("sh/wwv\n") // caller-supplied terminator must not double up
	server.expectLine(t, "sh/wwv")
}
