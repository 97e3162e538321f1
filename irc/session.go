package irc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/time/rate"
)

// dispatchBuffer bounds how many already-parsed events may sit ahead of the
// dispatcher; it does not need to match the send queue's capacity since it
// only smooths out bursts of inbound traffic.
const dispatchBuffer = 64

// NewIRCState constructs a session in the Disconnected state (spec.md §3).
// It is not reusable once Start has returned.
func NewIRCState(cconf ConnectionConfig, iconf InstanceConfig, userState interface{}) *IRCState {
	return newIRCState(cconf, iconf, userState)
}

// Start dials the server, drives the Connected/Disconnecting state machine
// described in spec.md §4.1 to completion, and returns only after the
// writer has stopped and the on-disconnect action has run. It never
// returns an error for a fatal session cause — those are reported through
// ConnectionConfig.OnDisconnect (spec.md §7) — the return value is a
// convenience mirror of the same information.
func (st *IRCState) Start() *DisconnectError {
	ctx := context.Background()
	conn, err := st.conf.Dial(ctx, st.conf.Host, st.conf.Port)
	if err != nil {
		return st.finish(CauseTransport, err)
	}
	st.conn = conn
	st.connState.set(Connected)

	if st.conf.OnConnect != nil {
		st.conf.OnConnect(st)
	} else {
		st.defaultOnConnect()
	}

	events := make(chan Event, dispatchBuffer)
	writerDone := make(chan struct{})
	readerDone := make(chan struct{})
	dispatcherDone := make(chan struct{})

	go func() {
		st.writerLoop()
		close(writerDone)
	}()
	go func() {
		<-writerDone
		st.connMu.Lock()
		_ = st.conn.Close()
		st.connMu.Unlock()
	}()
	go func() {
		st.readerLoop(events)
		close(readerDone)
	}()
	go func() {
		st.dispatcherLoop(events)
		close(dispatcherDone)
	}()

	<-writerDone
	<-readerDone
	<-dispatcherDone

	st.discMu.RLock()
	info := st.discInfo
	st.discMu.RUnlock()
	if info == nil {
		info = &DisconnectError{Cause: CauseClean}
	}
	return st.finish(info.Cause, info.Err)
}

func (st *IRCState) finish(cause DisconnectCause, err error) *DisconnectError {
	st.connState.set(Disconnected)
	de := &DisconnectError{Cause: cause, Err: err}
	if st.conf.OnDisconnect != nil {
		if cause == CauseClean && err == nil {
			st.conf.OnDisconnect(st, nil)
		} else {
			st.conf.OnDisconnect(st, de)
		}
	}
	return de
}

// defaultOnConnect performs the registration sequence described by
// spec.md §4.1: send NICK with the configured nick before any user
// traffic. PASS and USER are the protocol-mandated companions of NICK
// during registration and are sent alongside it.
func (st *IRCState) defaultOnConnect() {
	if st.conf.Password != "" {
		_ = st.Send(NewMessage("PASS", st.conf.Password))
	}
	_ = st.Send(NewMessage("NICK", st.Nick()))
	_ = st.Send(NewMessage("USER", st.conf.Username, "0", "*", st.conf.RealName))
}

// beginDisconnect is the single idempotent entry point for every path that
// can move the session into Disconnecting: disconnect(), reader EOF or
// fatal read error, read timeout, and writer fatal write error (spec.md
// §4.1). Only the first call's cause is kept.
func (st *IRCState) beginDisconnect(cause DisconnectCause, err error) {
	st.discOnce.Do(func() {
		st.discMu.Lock()
		st.discInfo = &DisconnectError{Cause: cause, Err: err}
		st.discMu.Unlock()
		st.connState.set(Disconnecting)
		st.queue.Close()
	})
}

// Disconnect initiates an orderly shutdown: a QUIT is enqueued (best
// effort — if a fatal error has already closed the queue, the connection
// is dying anyway and QUIT is moot), the send queue is closed, and the
// state moves to Disconnecting. Idempotent (spec.md §4.1).
func (st *IRCState) Disconnect() {
	_ = st.queue.Push(NewMessage("QUIT"))
	st.beginDisconnect(CauseClean, nil)
}

// Send enqueues an outbound message, blocking while the send queue is full
// (spec.md §4.4) and failing once the queue has been closed.
func (st *IRCState) Send(msg Message) error {
	return st.queue.Push(msg)
}

// SendRaw parses line as a single IRC message and enqueues it.
func (st *IRCState) SendRaw(line string) error {
	msg, err := ParseMessage(line)
	if err != nil {
		return fmt.Errorf("irc: %w", err)
	}
	return st.Send(msg)
}

// SendBytes is SendRaw for a raw byte slice (spec.md §6's sendBS).
func (st *IRCState) SendBytes(b []byte) error {
	return st.SendRaw(string(b))
}

func (st *IRCState) readerLoop(events chan<- Event) {
	defer close(events)

	scanner := bufio.NewScanner(st.conn)
	for {
		if st.conf.ReadTimeout > 0 {
			if err := st.conn.SetReadDeadline(time.Now().Add(st.conf.ReadTimeout)); err != nil {
				st.beginDisconnect(CauseTransport, err)
				return
			}
		}

		if !scanner.Scan() {
			err := scanner.Err()
			if err == nil {
				err = io.EOF
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				st.beginDisconnect(CauseTimeout, err)
			} else {
				st.beginDisconnect(CauseTransport, err)
			}
			return
		}

		line := scanner.Text()
		raw := append([]byte(nil), line...)
		if st.conf.Log != nil {
			st.conf.Log(FromServer, raw)
		}

		msg, err := ParseMessage(line)
		if err != nil {
			// A single malformed frame is a protocol error on that frame
			// only: log and drop it, don't tear down the session.
			continue
		}

		events <- newEvent(msg, raw)
	}
}

func (st *IRCState) writerLoop() {
	limiter := rate.NewLimiter(rate.Every(st.conf.FloodCooldown), 1)

	for {
		msg, ok := st.queue.Pop()
		if !ok {
			return
		}

		time.Sleep(limiter.Reserve().Delay())

		line := msg.String()
		if st.conf.Log != nil {
			st.conf.Log(FromClient, []byte(line))
		}

		if _, err := fmt.Fprintf(st.conn, "%s\r\n", line); err != nil {
			st.beginDisconnect(CauseTransport, err)
			return
		}
	}
}

func (st *IRCState) dispatcherLoop(events <-chan Event) {
	for ev := range events {
		dispatchEvent(st, ev)
	}
	st.handlerWG.Wait()
}
