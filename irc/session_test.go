package irc

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeDial connects a session to the server side of a net.Pipe, letting
// tests drive both ends of the wire directly without a real socket.
func pipeDial(server net.Conn) DialFunc {
	return func(ctx context.Context, host string, port int) (net.Conn, error) {
		return server, nil
	}
}

func startTestSession(t *testing.T, iconf InstanceConfig) (client net.Conn, st *IRCState, done chan *DisconnectError) {
	t.Helper()
	serverSide, clientSide := net.Pipe()

	cconf := ConnectionConfig{
		Host:          "test",
		Port:          6667,
		Username:      "u",
		RealName:      "r",
		FloodCooldown: time.Millisecond,
		ReadTimeout:   0,
		Dial:          pipeDial(clientSide),
	}
	st = NewIRCState(cconf, iconf, nil)

	done = make(chan *DisconnectError, 1)
	go func() { done <- st.Start() }()

	return serverSide, st, done
}

// readLine reads one CRLF-terminated line from the server's view of the
// pipe, with a bounded wait so a protocol bug fails the test instead of
// hanging it.
func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := r.ReadString('\n')
		ch <- result{line, err}
	}()
	select {
	case res := <-ch:
		require.NoError(t, res.err)
		return res.line[:len(res.line)-2] // trim CRLF
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a line from the client")
		return ""
	}
}

// TestSessionS1PingPong covers spec.md §8's scenario S1.
func TestSessionS1PingPong(t *testing.T) {
	server, st, done := startTestSession(t, DefaultInstanceConfig("alice", nil))
	defer func() {
		go io.Copy(io.Discard, server) // keep reading so the writer can flush QUIT
		st.Disconnect()
		<-done
	}()
	r := bufio.NewReader(server)

	assert.Equal(t, "NICK alice", readLine(t, r))
	assert.Equal(t, "USER u 0 * r", readLine(t, r))

	_, err := server.Write([]byte("PING :tolsun.oulu.fi\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "PONG :tolsun.oulu.fi", readLine(t, r))
}

// TestSessionS2WelcomeJoinsChannelsInOrder covers spec.md §8's scenario S2.
func TestSessionS2WelcomeJoinsChannelsInOrder(t *testing.T) {
	server, st, done := startTestSession(t, DefaultInstanceConfig("alice", []string{"#a", "#b"}))
	defer func() {
		go io.Copy(io.Discard, server) // keep reading so the writer can flush QUIT
		st.Disconnect()
		<-done
	}()
	r := bufio.NewReader(server)

	assert.Equal(t, "NICK alice", readLine(t, r))
	assert.Equal(t, "USER u 0 * r", readLine(t, r))

	_, err := server.Write([]byte(":srv 001 alice :Welcome\r\n"))
	require.NoError(t, err)

	assert.Equal(t, "JOIN #a", readLine(t, r))
	assert.Equal(t, "JOIN #b", readLine(t, r))
}

// TestSessionS3NickCollision covers spec.md §8's scenario S3.
func TestSessionS3NickCollision(t *testing.T) {
	server, st, done := startTestSession(t, DefaultInstanceConfig("alice", nil))
	defer func() {
		go io.Copy(io.Discard, server) // keep reading so the writer can flush QUIT
		st.Disconnect()
		<-done
	}()
	r := bufio.NewReader(server)

	assert.Equal(t, "NICK alice", readLine(t, r))
	assert.Equal(t, "USER u 0 * r", readLine(t, r))

	_, err := server.Write([]byte(":srv 433 * alice :Nickname is already in use\r\n"))
	require.NoError(t, err)

	assert.Equal(t, "NICK al1ce", readLine(t, r))
}

// TestSessionS5FloodCooldown covers spec.md §8's scenario S5: consecutive
// outbound writes are separated by at least the configured cooldown.
func TestSessionS5FloodCooldown(t *testing.T) {
	server, clientSide := net.Pipe()
	cconf := ConnectionConfig{
		Host:          "test",
		Port:          6667,
		FloodCooldown: 50 * time.Millisecond,
		Dial:          pipeDial(clientSide),
		OnConnect:     func(*IRCState) {}, // skip registration traffic
	}
	st := NewIRCState(cconf, DefaultInstanceConfig("alice", nil), nil)
	done := make(chan *DisconnectError, 1)
	go func() { done <- st.Start() }()
	defer func() {
		go io.Copy(io.Discard, server) // keep reading so the writer can flush QUIT
		st.Disconnect()
		<-done
	}()

	for i := 0; i < 4; i++ {
		require.NoError(t, st.Send(NewMessage("PRIVMSG", "#c", "hi")))
	}

	r := bufio.NewReader(server)
	var timestamps []time.Time
	for i := 0; i < 4; i++ {
		readLine(t, r)
		timestamps = append(timestamps, time.Now())
	}
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		assert.GreaterOrEqual(t, gap, 45*time.Millisecond, "gap %d was %s", i, gap)
	}
}

// TestSessionS6Disconnect covers spec.md §8's scenario S6.
func TestSessionS6Disconnect(t *testing.T) {
	server, clientSide := net.Pipe()
	disconnectedClean := make(chan bool, 1)
	cconf := ConnectionConfig{
		Host:          "test",
		Port:          6667,
		Username:      "u",
		RealName:      "r",
		FloodCooldown: time.Millisecond,
		Dial:          pipeDial(clientSide),
		OnDisconnect:  func(_ *IRCState, err error) { disconnectedClean <- err == nil },
	}
	st := NewIRCState(cconf, DefaultInstanceConfig("alice", nil), nil)
	done := make(chan *DisconnectError, 1)
	go func() { done <- st.Start() }()

	r := bufio.NewReader(server)
	assert.Equal(t, "NICK alice", readLine(t, r))
	assert.Equal(t, "USER u 0 * r", readLine(t, r))

	st.Disconnect()
	assert.Equal(t, "QUIT", readLine(t, r))

	select {
	case de := <-done:
		assert.Equal(t, CauseClean, de.Cause)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Disconnect")
	}
	assert.True(t, st.IsDisconnected())

	select {
	case clean := <-disconnectedClean:
		assert.True(t, clean, "OnDisconnect must receive a nil error on a clean disconnect")
	case <-time.After(time.Second):
		t.Fatal("OnDisconnect was never called")
	}
}
