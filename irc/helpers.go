package irc

import "errors"

var errNoReplyTarget = errors.New("irc: event has no reply target")

// replyTarget picks where a Reply to ev should go: the channel if the
// event came from one, otherwise the user directly.
func replyTarget(ev Event) string {
	switch ev.Source.Kind {
	case SourceChannel:
		return ev.Source.Channel
	case SourceUser:
		return ev.Source.User
	default:
		return ""
	}
}

// Reply sends text as a PRIVMSG back to wherever ev came from.
func (st *IRCState) Reply(ev Event, text string) error {
	target := replyTarget(ev)
	if target == "" {
		return errNoReplyTarget
	}
	return st.Send(NewMessage("PRIVMSG", target, text))
}

// SendCTCP sends a CTCP request to target via PRIVMSG (spec.md §6's ctcp).
func (st *IRCState) SendCTCP(target, verb string, args ...string) error {
	return st.Send(NewMessage("PRIVMSG", target, EncodeCTCP(verb, args...)))
}

// CTCPReply sends a CTCP response to target via NOTICE, the direction RFC
// 1459 mandates for automatic replies (spec.md §6's ctcpReply).
func (st *IRCState) CTCPReply(target, verb string, args ...string) error {
	return st.Send(NewMessage("NOTICE", target, EncodeCTCP(verb, args...)))
}

// PingArgs extracts the arguments of a Ping event: the server1 token
// always present, and server2 if the server sent a two-argument PING.
func PingArgs(ev Event) (server1, server2 string, ok bool) {
	if ev.Kind != EPing || len(ev.Message.Params) == 0 {
		return "", "", false
	}
	server1 = ev.Message.Params[0]
	if len(ev.Message.Params) > 1 {
		server2 = ev.Message.Params[1]
	}
	return server1, server2, true
}

// NumericArgs extracts the numeric code and its arguments from an ENumeric
// event.
func NumericArgs(ev Event) (code int, args []string, ok bool) {
	if ev.Kind != ENumeric {
		return 0, nil, false
	}
	code, ok = ev.Message.Numeric()
	if !ok {
		return 0, nil, false
	}
	return code, ev.Message.Params, true
}

// PrivmsgArgs extracts the target and text of an EPrivmsg or ENotice event.
func PrivmsgArgs(ev Event) (target, text string, ok bool) {
	if (ev.Kind != EPrivmsg && ev.Kind != ENotice) || len(ev.Message.Params) < 2 {
		return "", "", false
	}
	return ev.Message.Params[0], ev.Message.Params[1], true
}

// KickArgs extracts the channel, kicked nick, and optional reason of an
// EKick event.
func KickArgs(ev Event) (channel, nick, reason string, ok bool) {
	if ev.Kind != EKick || len(ev.Message.Params) < 2 {
		return "", "", "", false
	}
	channel = ev.Message.Params[0]
	nick = ev.Message.Params[1]
	if len(ev.Message.Params) > 2 {
		reason = ev.Message.Params[2]
	}
	return channel, nick, reason, true
}

// TopicArgs extracts the channel and topic text of an ENumeric-332 or
// ETopic event.
func TopicArgs(ev Event) (channel, topic string, ok bool) {
	switch ev.Kind {
	case ETopic:
		if len(ev.Message.Params) < 2 {
			return "", "", false
		}
		return ev.Message.Params[0], ev.Message.Params[1], true
	case ENumeric:
		code, args, ok2 := NumericArgs(ev)
		if !ok2 || code != 332 || len(args) < 3 {
			return "", "", false
		}
		return args[1], args[2], true
	default:
		return "", "", false
	}
}

// NickArgs extracts the new nick of an ENick event.
func NickArgs(ev Event) (newNick string, ok bool) {
	if ev.Kind != ENick || len(ev.Message.Params) < 1 {
		return "", false
	}
	return ev.Message.Params[0], true
}
