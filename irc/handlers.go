package irc

import (
	"strings"
	"time"
)

// DefaultHandlers is the fixed catalogue of mandatory protocol behaviour
// installed by DefaultInstanceConfig, one entry per bullet of spec.md
// §4.3. Each is individually replaceable by filtering it out of
// InstanceConfig.Handlers and appending a different HandlerFunc for the
// same EventKind.
func DefaultHandlers() []EventHandler {
	return []EventHandler{
		{Name: "pingHandler", Kind: EPing, Action: pingHandler},
		{Name: "ctcpPingHandler", Kind: ECTCP, Action: ctcpPingHandler},
		{Name: "ctcpVersionHandler", Kind: ECTCP, Action: ctcpVersionHandler},
		{Name: "ctcpTimeHandler", Kind: ECTCP, Action: ctcpTimeHandler},
		{Name: "welcomeNick", Kind: ENumeric, Match: isNumeric(rplWelcome), Action: welcomeNick},
		{Name: "joinOnWelcome", Kind: ENumeric, Match: isNumeric(rplWelcome), Action: joinOnWelcome},
		{Name: "nickMangler", Kind: ENumeric, Match: isAnyNumeric(errErroneusnickname, errNicknameinuse, errNickcollision), Action: nickMangler},
		{Name: "joinHandler", Kind: ENumeric, Match: isNumeric(rplTopic), Action: joinHandler},
		{Name: "kickHandler", Kind: EKick, Action: kickHandler},
	}
}

func isNumeric(code string) func(Event) bool {
	return func(ev Event) bool { return ev.Message.Command == code }
}

func isAnyNumeric(codes ...string) func(Event) bool {
	return func(ev Event) bool {
		for _, c := range codes {
			if ev.Message.Command == c {
				return true
			}
		}
		return false
	}
}

// pingHandler replies to a server PING, echoing the second token back if
// the server sent one (spec.md §4.3).
func pingHandler(st *IRCState, ev Event) {
	a, b, ok := PingArgs(ev)
	if !ok {
		return
	}
	if b != "" {
		_ = st.Send(NewMessage("PONG", b))
	} else {
		_ = st.Send(NewMessage("PONG", a))
	}
}

// ctcpPingHandler echoes a CTCP PING's arguments back unchanged.
func ctcpPingHandler(st *IRCState, ev Event) {
	c, ok := ev.AsCTCP()
	if !ok || c.Verb != "PING" || ev.Source.Kind != SourceUser {
		return
	}
	_ = st.CTCPReply(ev.Source.User, "PING", c.Args...)
}

// ctcpVersionHandler replies with the client version configured in
// InstanceConfig.
func ctcpVersionHandler(st *IRCState, ev Event) {
	c, ok := ev.AsCTCP()
	if !ok || c.Verb != "VERSION" || ev.Source.Kind != SourceUser {
		return
	}
	_ = st.CTCPReply(ev.Source.User, "VERSION", st.Instance().Version)
}

// ctcpTimeHandler replies with the current local time in the traditional
// ctime-style layout.
func ctcpTimeHandler(st *IRCState, ev Event) {
	c, ok := ev.AsCTCP()
	if !ok || c.Verb != "TIME" || ev.Source.Kind != SourceUser {
		return
	}
	_ = st.CTCPReply(ev.Source.User, "TIME", formatCTime(time.Now()))
}

func formatCTime(t time.Time) string {
	// strftime's %c in the "C" locale: "Wed Oct 11 14:23:05 2000".
	return t.Format("Mon Jan _2 15:04:05 2006")
}

// welcomeNick adopts the nick the server actually assigned us, which may
// differ from what we requested.
func welcomeNick(st *IRCState, ev Event) {
	_, args, ok := NumericArgs(ev)
	if !ok || len(args) < 1 {
		return
	}
	st.ModifyInstance(func(c InstanceConfig) InstanceConfig {
		c.Nick = args[0]
		return c
	})
}

// joinOnWelcome sends JOIN for every channel configured for auto-join,
// preserving order.
func joinOnWelcome(st *IRCState, ev Event) {
	for _, ch := range st.Instance().Channels {
		_ = st.Send(NewMessage("JOIN", ch))
	}
}

// nickSubstitutions is the substring table nickMangler applies on a
// 433/436 collision (spec.md §4.3): walked in declared order, stopping at
// the first rule whose "from" substring occurs anywhere in the nick, and
// replacing only that substring's first occurrence.
var nickSubstitutions = []struct{ from, to string }{
	{"i", "1"}, {"I", "1"}, {"l", "1"}, {"L", "1"},
	{"o", "0"}, {"O", "0"}, {"A", "4"},
	{"0", "1"}, {"1", "2"}, {"2", "3"}, {"3", "4"}, {"4", "5"},
	{"5", "6"}, {"6", "7"}, {"7", "8"}, {"8", "9"}, {"9", "-"},
}

// mangleNick applies the sanitise-on-432 or substitute-on-433/436 rule to
// nick, per the substitution table's declared order (spec.md §4.3).
func mangleNick(code, nick string) string {
	if code == errErroneusnickname {
		var b strings.Builder
		for _, r := range nick {
			if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
				b.WriteRune(r)
			}
		}
		if b.Len() == 0 {
			return "f"
		}
		return b.String()
	}

	for _, sub := range nickSubstitutions {
		if i := strings.Index(nick, sub.from); i >= 0 {
			return nick[:i] + sub.to + nick[i+len(sub.from):]
		}
	}
	return nick + "1"
}

// clampToEchoedLength keeps the last n characters of candidate when the
// server has previously truncated our nick to a shorter length than what
// we sent (spec.md §4.3, §8.10): "subsequent mangles are clamped by
// keeping the *last* N characters (not the first)".
func clampToEchoedLength(candidate string, n int) string {
	if n <= 0 || len(candidate) <= n {
		return candidate
	}
	return candidate[len(candidate)-n:]
}

// nickMangler reacts to 432 (erroneous nickname) and 433/436 (nick
// collision) by generating a replacement nick and re-sending NICK.
func nickMangler(st *IRCState, ev Event) {
	code := ev.Message.Command
	args := ev.Message.Params
	if len(args) < 2 {
		return
	}
	attempted := args[1]

	candidate := mangleNick(code, attempted)
	if echoedLen := len(st.Nick()); st.Nick() != "" && echoedLen != len(attempted) {
		candidate = clampToEchoedLength(candidate, echoedLen)
	}

	st.ModifyInstance(func(c InstanceConfig) InstanceConfig {
		c.Nick = candidate
		return c
	})
	_ = st.Send(NewMessage("NICK", candidate))
}

// joinHandler adds a channel to the in-memory list the first time its
// topic is announced, if it isn't there already.
//
// spec.md §9 flags an apparent inversion in the handler this is modelled
// on (it prepends only when the channel *is* already present, which
// defeats the purpose). This implementation follows spec.md §4.3's
// stated intent instead: prepend when the channel is absent.
func joinHandler(st *IRCState, ev Event) {
	channel, _, ok := TopicArgs(ev)
	if !ok {
		return
	}
	st.ModifyInstance(func(c InstanceConfig) InstanceConfig {
		for _, existing := range c.Channels {
			if sameChannel(existing, channel) {
				return c
			}
		}
		c.Channels = append([]string{channel}, c.Channels...)
		return c
	})
}

// kickHandler drops a channel from the in-memory list when we are the one
// kicked from it; kicks of anyone else are ignored.
func kickHandler(st *IRCState, ev Event) {
	channel, nick, _, ok := KickArgs(ev)
	if !ok {
		return
	}
	if CasemapASCII(nick) != CasemapASCII(st.Nick()) {
		return
	}
	st.ModifyInstance(func(c InstanceConfig) InstanceConfig {
		c.Channels = removeChannel(c.Channels, channel)
		return c
	})
}

// DefaultInstanceConfig returns an InstanceConfig carrying the default
// handler set, version string, and an empty ignore list — a starting
// point callers customise with their own nick and channels.
func DefaultInstanceConfig(nick string, channels []string) InstanceConfig {
	return InstanceConfig{
		Nick:     nick,
		Channels: channels,
		Version:  DefaultVersion,
		Handlers: DefaultHandlers(),
		Ignore:   Ignore{},
	}
}

// DefaultVersion is the Version that DefaultInstanceConfig installs, and so
// the CTCP VERSION reply unless the caller changes it (spec.md §6). An
// InstanceConfig built by hand with an empty Version replies with an empty
// version string.
const DefaultVersion = "irc-client-gircl"
