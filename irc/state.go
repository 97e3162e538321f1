package irc

import (
	"context"
	"crypto/x509"
	"net"
	"sync"
	"time"
)

// ConnectionState is the session's position in the state machine of
// spec.md §4.1: Disconnected -> Connected -> Disconnecting -> Disconnected.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connected
	Disconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "Connected"
	case Disconnecting:
		return "Disconnecting"
	default:
		return "Disconnected"
	}
}

// Origin tags a logged wire frame with its direction.
type Origin int

const (
	FromServer Origin = iota
	FromClient
)

func (o Origin) String() string {
	if o == FromClient {
		return "FromClient"
	}
	return "FromServer"
}

// VerifyFunc validates a server certificate chain presented during the TLS
// handshake. An empty return means the chain is accepted; any returned
// strings are failure reasons (spec.md §6).
type VerifyFunc func(host string, port int, chain []*x509.Certificate) []string

// DialFunc establishes the byte stream used for one session: a plain TCP
// dialer, or one wrapping the connection in TLS. It is bound into
// ConnectionConfig at construction time (spec.md §6).
type DialFunc func(ctx context.Context, host string, port int) (net.Conn, error)

// ConnectionConfig is immutable for the lifetime of a session (spec.md §3).
type ConnectionConfig struct {
	Host          string
	Port          int
	Username      string
	RealName      string
	Password      string // "" means absent
	FloodCooldown time.Duration
	ReadTimeout   time.Duration
	Dial          DialFunc
	OnConnect     func(*IRCState)
	OnDisconnect  func(*IRCState, error)
	Log           func(origin Origin, line []byte)
}

// DisconnectCause classifies why a session left the Connected state
// (spec.md §7).
type DisconnectCause int

const (
	CauseClean DisconnectCause = iota
	CauseTimeout
	CauseTransport
	CauseProtocol
)

func (c DisconnectCause) String() string {
	switch c {
	case CauseTimeout:
		return "Timeout"
	case CauseTransport:
		return "TransportError"
	case CauseProtocol:
		return "ProtocolError"
	default:
		return "Clean"
	}
}

// DisconnectError wraps the cause of a session's end alongside the
// triggering error, if any; it is what OnDisconnect receives (nil for a
// clean disconnect).
type DisconnectError struct {
	Cause DisconnectCause
	Err   error
}

func (e *DisconnectError) Error() string {
	if e.Err == nil {
		return e.Cause.String()
	}
	return e.Cause.String() + ": " + e.Err.Error()
}

func (e *DisconnectError) Unwrap() error { return e.Err }

// Ignore maps an ignored nickname to the set of channels it is ignored in.
// An empty set means the nick is ignored everywhere (spec.md §3).
type Ignore map[string]map[string]struct{}

// Ignored reports whether source is covered by the ignore list, per the
// filtering rule of spec.md §4.2.
func (ig Ignore) Ignored(source EventSource) bool {
	var nick string
	switch source.Kind {
	case SourceUser:
		nick = source.User
	case SourceChannel:
		nick = source.User
	default:
		return false
	}
	channels, ok := ig[nick]
	if !ok {
		return false
	}
	if len(channels) == 0 {
		return true // globally ignored
	}
	if source.Kind != SourceChannel {
		return false
	}
	_, ok = channels[source.Channel]
	return ok
}

// Add records that nick should be ignored. An empty channel ignores the
// nick globally. Adding the same pair twice is a no-op (spec.md §8.4).
func (ig Ignore) Add(nick, channel string) {
	channels, ok := ig[nick]
	if channel == "" {
		ig[nick] = map[string]struct{}{} // global; supersedes any specific entries
		return
	}
	if ok && len(channels) == 0 {
		return // already ignored globally
	}
	if !ok {
		channels = map[string]struct{}{}
		ig[nick] = channels
	}
	channels[channel] = struct{}{}
}

// Remove undoes Add. Removing an absent entry is a no-op.
func (ig Ignore) Remove(nick, channel string) {
	channels, ok := ig[nick]
	if !ok {
		return
	}
	if channel == "" {
		delete(ig, nick)
		return
	}
	delete(channels, channel)
	if len(channels) == 0 {
		delete(ig, nick)
	}
}

// InstanceConfig is the mutable per-session configuration cell (spec.md §3).
type InstanceConfig struct {
	Nick     string
	Channels []string
	Version  string
	Handlers []EventHandler
	Ignore   Ignore
}

func (c InstanceConfig) clone() InstanceConfig {
	clone := c
	clone.Channels = append([]string(nil), c.Channels...)
	clone.Handlers = append([]EventHandler(nil), c.Handlers...)
	ig := make(Ignore, len(c.Ignore))
	for nick, channels := range c.Ignore {
		cp := make(map[string]struct{}, len(channels))
		for ch := range channels {
			cp[ch] = struct{}{}
		}
		ig[nick] = cp
	}
	clone.Ignore = ig
	return clone
}

// connStateCell, instConfigCell and userStateCell are the three independent
// state cells of spec.md §4.5. Each is a plain mutex-guarded value: the
// teacher's pack has no need for software transactional memory, and a
// per-cell sync.RWMutex gives the same "get/set/modify under lock"
// semantics spec.md asks for.
type connStateCell struct {
	mu sync.RWMutex
	v  ConnectionState
}

func (c *connStateCell) get() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v
}

func (c *connStateCell) set(v ConnectionState) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

type instConfigCell struct {
	mu sync.RWMutex
	v  InstanceConfig
}

func (c *instConfigCell) get() InstanceConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.clone()
}

func (c *instConfigCell) modify(fn func(InstanceConfig) InstanceConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v = fn(c.v)
}

type userStateCell struct {
	mu sync.RWMutex
	v  interface{}
}

func (c *userStateCell) get() interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v
}

func (c *userStateCell) set(v interface{}) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *userStateCell) modify(fn func(interface{}) interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v = fn(c.v)
}

// IRCState is the bundle of state cells and the send queue shared by the
// reader, writer and dispatcher goroutines and every handler invocation
// (spec.md §3). It is constructed once per session by NewIRCState and must
// not be reused after Start has returned.
type IRCState struct {
	conf ConnectionConfig

	connState connStateCell
	inst      instConfigCell
	user      userStateCell

	queue *sendQueue

	conn   net.Conn
	connMu sync.Mutex

	discOnce sync.Once
	discInfo *DisconnectError
	discMu   sync.RWMutex

	handlerWG sync.WaitGroup
}

func newIRCState(cconf ConnectionConfig, iconf InstanceConfig, userState interface{}) *IRCState {
	st := &IRCState{
		conf:  cconf,
		queue: newSendQueue(sendQueueCapacity),
	}
	st.inst.v = iconf.clone()
	if st.inst.v.Ignore == nil {
		st.inst.v.Ignore = Ignore{}
	}
	st.user.v = userState
	return st
}

// Snapshot is a point-in-time, mutually consistent read of all three state
// cells (spec.md §4.5).
type Snapshot struct {
	ConnState ConnectionState
	Instance  InstanceConfig
	UserState interface{}
}

// SnapshotState takes an atomic combined read of the connection state,
// instance config and user state cells.
func (st *IRCState) SnapshotState() Snapshot {
	st.connState.mu.RLock()
	defer st.connState.mu.RUnlock()
	st.inst.mu.RLock()
	defer st.inst.mu.RUnlock()
	st.user.mu.RLock()
	defer st.user.mu.RUnlock()
	return Snapshot{
		ConnState: st.connState.v,
		Instance:  st.inst.v.clone(),
		UserState: st.user.v,
	}
}

func (st *IRCState) ConnState() ConnectionState { return st.connState.get() }
func (st *IRCState) IsConnected() bool          { return st.ConnState() == Connected }
func (st *IRCState) IsDisconnecting() bool      { return st.ConnState() == Disconnecting }
func (st *IRCState) IsDisconnected() bool       { return st.ConnState() == Disconnected }

// Instance returns a copy of the current instance configuration.
func (st *IRCState) Instance() InstanceConfig { return st.inst.get() }

// ModifyInstance atomically reads, transforms and writes the instance
// config cell (the snapshotModify vocabulary of spec.md §4.5 / §9).
func (st *IRCState) ModifyInstance(fn func(InstanceConfig) InstanceConfig) {
	st.inst.modify(fn)
}

// Nick returns the current in-memory nick.
func (st *IRCState) Nick() string { return st.inst.get().Nick }

// UserState returns the current opaque user-owned state value.
func (st *IRCState) UserState() interface{} { return st.user.get() }

// SetUserState replaces the opaque user-owned state value.
func (st *IRCState) SetUserState(v interface{}) { st.user.set(v) }

// ModifyUserState atomically reads, transforms and writes the user state
// cell.
func (st *IRCState) ModifyUserState(fn func(interface{}) interface{}) {
	st.user.modify(fn)
}

// AddHandler prepends a handler to the instance's handler list (insertion
// at the head, per spec.md §3's EventHandler ordering).
func (st *IRCState) AddHandler(h EventHandler) {
	st.inst.modify(func(c InstanceConfig) InstanceConfig {
		c.Handlers = append([]EventHandler{h}, c.Handlers...)
		return c
	})
}

// SetNick updates the in-memory nick and emits a NICK message. It is the
// only operation required by spec.md §8.5 to do both in one call.
func (st *IRCState) SetNick(nick string) error {
	st.inst.modify(func(c InstanceConfig) InstanceConfig {
		c.Nick = nick
		return c
	})
	return st.Send(NewMessage("NICK", nick))
}

// LeaveChannel sends PART for channel and drops it from the auto-join list.
func (st *IRCState) LeaveChannel(channel, reason string) error {
	st.inst.modify(func(c InstanceConfig) InstanceConfig {
		c.Channels = removeChannel(c.Channels, channel)
		return c
	})
	if reason == "" {
		return st.Send(NewMessage("PART", channel))
	}
	return st.Send(NewMessage("PART", channel, reason))
}

func removeChannel(channels []string, target string) []string {
	out := make([]string, 0, len(channels))
	for _, c := range channels {
		if !sameChannel(c, target) {
			out = append(out, c)
		}
	}
	return out
}

func sameChannel(a, b string) bool {
	return CasemapASCII(a) == CasemapASCII(b)
}
