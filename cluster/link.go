// Package cluster maintains the persistent telnet connection to a DX cluster
// node: login, line streaming, outbound command draining, and the fixed-delay
// reconnect loop. Parsed spots and status changes flow to the consumer over a
// single event channel.
package cluster

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ziutek/telnet"

	"dxwatch/cc11"
)

const (
	// DefaultReconnectDelay is the fixed wait between reconnect attempts.
	// Cluster uptime is volatile and operators expect the client to keep
	// trying, so there is no backoff growth and no retry ceiling.
	DefaultReconnectDelay = 5 * time.Second

	dialTimeout      = 30 * time.Second
	bannerLineLimit  = 20
	eventChanSize    = 256
	commandChanSize  = 64
	defaultReadAhead = 4096
)

// defaultLoginCommands is the fixed mode-setting sequence sent after the
// callsign during login.
var defaultLoginCommands = []string{
	"set/nofilter",
	"set/ve7cc",
	"set/skimmer",
	"set/nodedupe",
}

// Options configures a Link.
type Options struct {
	Host           string
	Port           int
	Callsign       string
	LoginCommands  []string      // defaults to the VE7CC mode sequence
	ReconnectDelay time.Duration // defaults to DefaultReconnectDelay

	// dial is injectable for tests; nil uses telnet dialing.
	dial func(addr string) (io.ReadWriteCloser, error)
	now  func() time.Time
}

// Link owns exactly one live cluster connection. Two goroutines run per
// connected link: the read loop (owns state transitions) and the command
// writer. Both terminate on Stop.
type Link struct {
	opts Options

	evMu     sync.Mutex
	events   chan Event
	evClosed bool

	cmdMu    sync.Mutex
	commands []string
	cmdReady chan struct{}

	shutdown chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	connMu sync.Mutex
	conn   io.ReadWriteCloser

	// state is read from producer goroutines for status messages, so it is
	// stored atomically; only the run loop writes it.
	state atomic.Int32
}

// NewLink prepares a link; Start opens the connection.
func NewLink(opts Options) *Link {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.LoginCommands == nil {
		opts.LoginCommands = defaultLoginCommands
	}
	if opts.dial == nil {
		opts.dial = dialTelnet
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	return &Link{
		opts:     opts,
		events:   make(chan Event, eventChanSize),
		cmdReady: make(chan struct{}, 1),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func dialTelnet(addr string) (io.ReadWriteCloser, error) {
	conn, err := telnet.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Events returns the channel carrying spots, solar updates, and status
// notifications. The channel closes after Stop completes.
func (l *Link) Events() <-chan Event {
	return l.events
}

// Start launches the connection supervisor. It returns immediately; the
// first connection attempt happens on the loop.
func (l *Link) Start() {
	go l.run()
}

// Stop requests disconnection from any state. A stop during the reconnect
// wait aborts the wait immediately; commands still queued are discarded.
func (l *Link) Stop() {
	l.stopOnce.Do(func() {
		close(l.shutdown)
	})
	l.closeConn()
	<-l.done
}

// Send queues one outbound command line. Order is preserved relative to
// other commands; a line terminator is appended on write if absent. Commands
// queued while not streaming are sent once streaming begins. After Stop,
// Send is a no-op.
func (l *Link) Send(cmd string) {
	cmd = strings.TrimRight(cmd, "\r\n")
	if cmd == "" || l.isShutdown() {
		return
	}
	l.cmdMu.Lock()
	if len(l.commands) >= commandChanSize {
		l.cmdMu.Unlock()
		l.emit(StatusEvent{State: l.State(), Message: "command queue full, dropping: " + cmd})
		return
	}
	l.commands = append(l.commands, cmd)
	l.cmdMu.Unlock()
	select {
	case l.cmdReady <- struct{}{}:
	default:
	}
}

// nextCommand pops the oldest queued command.
func (l *Link) nextCommand() (string, bool) {
	l.cmdMu.Lock()
	defer l.cmdMu.Unlock()
	if len(l.commands) == 0 {
		return "", false
	}
	cmd := l.commands[0]
	l.commands = l.commands[1:]
	return cmd, true
}

// requeueCommand puts a command back at the head of the queue, preserving
// FIFO order for the next streaming phase.
func (l *Link) requeueCommand(cmd string) {
	l.cmdMu.Lock()
	l.commands = append([]string{cmd}, l.commands...)
	l.cmdMu.Unlock()
}

// run is the connection supervisor: connect, authenticate, stream, and on
// any failure wait the fixed delay and try again until stopped.
func (l *Link) run() {
	defer close(l.done)
	defer l.closeEvents()

	for {
		if l.isShutdown() {
			l.setState(StateStopped, "Backend stopped.")
			return
		}

		l.setState(StateConnecting, "Connecting to cluster...")
		addr := net.JoinHostPort(l.opts.Host, fmt.Sprintf("%d", l.opts.Port))
		conn, err := l.opts.dial(addr)
		if err != nil {
			if l.isShutdown() {
				l.setState(StateStopped, "Backend stopped.")
				return
			}
			l.setState(StateReconnecting, fmt.Sprintf("Cluster lost, retrying in %s... (%v)", l.opts.ReconnectDelay, err))
			if !l.waitReconnect() {
				l.setState(StateStopped, "Backend stopped.")
				return
			}
			continue
		}

		l.setConn(conn)
		if l.stream(conn) {
			// explicit stop
			l.setState(StateStopped, "Backend stopped.")
			return
		}
		l.closeConn()
		l.setState(StateReconnecting, fmt.Sprintf("Cluster lost, retrying in %s...", l.opts.ReconnectDelay))
		if !l.waitReconnect() {
			l.setState(StateStopped, "Backend stopped.")
			return
		}
	}
}

// stream performs login, skips the welcome banner, and pumps lines until the
// connection fails or a stop is requested. It reports true on explicit stop.
func (l *Link) stream(conn io.ReadWriteCloser) bool {
	l.setState(StateAuthenticating, "Logging in as "+l.opts.Callsign)
	if err := l.login(conn); err != nil {
		if l.isShutdown() {
			return true
		}
		log.Printf("cluster: login write failed: %v", err)
		return false
	}

	reader := bufio.NewReaderSize(conn, defaultReadAhead)

	// Welcome banner: discard a bounded number of lines without validating
	// their content (the format varies across node operators). The first
	// line that parses as cluster traffic ends the banner early.
	banner := 0
	streaming := false

	writerDone := make(chan struct{})
	defer close(writerDone)

	for {
		if l.isShutdown() {
			l.setState(StateDisconnecting, "Disconnecting...")
			return true
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			if l.isShutdown() {
				l.setState(StateDisconnecting, "Disconnecting...")
				return true
			}
			return false
		}
		line = strings.TrimRight(line, "\r\n")

		msg := cc11.ParseLine(line, l.opts.now())
		if !streaming {
			if msg == nil && banner < bannerLineLimit {
				banner++
				continue
			}
			streaming = true
			l.setState(StateStreaming, "Cluster connected")
			go l.writeLoop(conn, writerDone)
		}

		switch m := msg.(type) {
		case cc11.SpotMessage:
			l.emit(SpotEvent{Spot: m.Spot})
		case cc11.SolarMessage:
			l.emit(SolarEvent{Solar: m.Solar})
		}
	}
}

// login sends the callsign followed by the fixed command sequence.
func (l *Link) login(conn io.Writer) error {
	if _, err := io.WriteString(conn, l.opts.Callsign+"\n"); err != nil {
		return err
	}
	for _, cmd := range l.opts.LoginCommands {
		if _, err := io.WriteString(conn, cmd+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// writeLoop drains the command queue onto the wire while streaming. A write
// failure means the connection is going away: the command goes back to the
// head of the queue for the next streaming phase and the writer exits; the
// matching read failure drives the reconnect.
func (l *Link) writeLoop(conn io.Writer, done <-chan struct{}) {
	for {
		cmd, ok := l.nextCommand()
		if !ok {
			select {
			case <-l.cmdReady:
				continue
			case <-done:
				return
			case <-l.shutdown:
				return
			}
		}
		if _, err := io.WriteString(conn, cmd+"\n"); err != nil {
			l.requeueCommand(cmd)
			l.emit(StatusEvent{State: l.State(), Message: fmt.Sprintf("Send deferred: %s (%v)", cmd, err)})
			return
		}
		l.emit(SentEvent{Command: cmd})
	}
}

// waitReconnect blocks for the fixed reconnect delay. It returns false when
// a stop aborted the wait.
func (l *Link) waitReconnect() bool {
	timer := time.NewTimer(l.opts.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-l.shutdown:
		return false
	}
}

// State returns the current connection state.
func (l *Link) State() State {
	return State(l.state.Load())
}

func (l *Link) setState(state State, message string) {
	l.state.Store(int32(state))
	l.emit(StatusEvent{State: state, Message: message})
}

// emit delivers an event without blocking the read loop. When the consumer
// falls behind the new event is dropped and logged. After closeEvents an
// emit is a no-op; producers like Send and the command writer may outlive
// the supervisor by a moment.
func (l *Link) emit(ev Event) {
	l.evMu.Lock()
	defer l.evMu.Unlock()
	if l.evClosed {
		return
	}
	select {
	case l.events <- ev:
	default:
		log.Printf("cluster: event channel full, dropping %T", ev)
	}
}

// closeEvents marks the stream finished and closes the channel. The flag and
// the close happen under the same lock emit takes, so no emit can hit a
// closed channel.
func (l *Link) closeEvents() {
	l.evMu.Lock()
	l.evClosed = true
	close(l.events)
	l.evMu.Unlock()
}

func (l *Link) setConn(conn io.ReadWriteCloser) {
	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()
}

func (l *Link) closeConn() {
	l.connMu.Lock()
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
	l.connMu.Unlock()
}

func (l *Link) isShutdown() bool {
	select {
	case <-l.shutdown:
		return true
	default:
		return false
	}
}
