package irc

import "strings"

// EventKind classifies an inbound Message for handler matching.
type EventKind int

const (
	EPing EventKind = iota
	ECTCP
	ENumeric
	EPrivmsg
	ENotice
	EJoin
	EPart
	EQuit
	EMode
	ETopic
	EInvite
	EKick
	ENick
	ERaw
)

func (k EventKind) String() string {
	switch k {
	case EPing:
		return "EPing"
	case ECTCP:
		return "ECTCP"
	case ENumeric:
		return "ENumeric"
	case EPrivmsg:
		return "EPrivmsg"
	case ENotice:
		return "ENotice"
	case EJoin:
		return "EJoin"
	case EPart:
		return "EPart"
	case EQuit:
		return "EQuit"
	case EMode:
		return "EMode"
	case ETopic:
		return "ETopic"
	case EInvite:
		return "EInvite"
	case EKick:
		return "EKick"
	case ENick:
		return "ENick"
	default:
		return "ERaw"
	}
}

// SourceKind distinguishes the three shapes an Event's origin can take.
type SourceKind int

const (
	SourceServer SourceKind = iota
	SourceChannel
	SourceUser
)

// EventSource is where an Event came from, extracted from the message
// prefix (spec.md §4.2).
type EventSource struct {
	Kind    SourceKind
	Server  string // set when Kind == SourceServer
	Channel string // set when Kind == SourceChannel
	User    string // nick; set when Kind == SourceChannel or SourceUser
}

// Event is a single classified, dispatch-ready inbound message.
type Event struct {
	Kind    EventKind
	Source  EventSource
	Message Message
	Raw     []byte
}

// CTCP holds the decoded verb/args of a PRIVMSG or NOTICE whose payload was
// CTCP-wrapped. It is only meaningful when Event.Kind == ECTCP.
type CTCP struct {
	Verb   string
	Args   []string
	Notice bool // true if delivered via NOTICE rather than PRIVMSG
	Target string
}

func classify(msg Message) EventKind {
	switch msg.Command {
	case "PING":
		return EPing
	case "PRIVMSG":
		if isCTCP(msg) {
			return ECTCP
		}
		return EPrivmsg
	case "NOTICE":
		if isCTCP(msg) {
			return ECTCP
		}
		return ENotice
	case "JOIN":
		return EJoin
	case "PART":
		return EPart
	case "QUIT":
		return EQuit
	case "MODE":
		return EMode
	case "TOPIC":
		return ETopic
	case "INVITE":
		return EInvite
	case "KICK":
		return EKick
	case "NICK":
		return ENick
	default:
		if msg.IsNumeric() {
			return ENumeric
		}
		return ERaw
	}
}

func isCTCP(msg Message) bool {
	if len(msg.Params) < 2 {
		return false
	}
	_, _, ok := DecodeCTCP(msg.Params[len(msg.Params)-1])
	return ok
}

// isChannelName reports whether name begins with a standard channel
// sigil ('#' or '&', per RFC 2812 chantypes).
func isChannelName(name string) bool {
	return strings.IndexAny(name, "#&") == 0
}

// eventSource extracts an Event's source from a message's prefix, per
// spec.md §4.2: nick!user@host targeting a channel is Channel, targeting
// our own nick is User, and a bare server prefix is Server.
func eventSource(msg Message) EventSource {
	if msg.Prefix.Server || msg.Prefix.Name == "" {
		return EventSource{Kind: SourceServer, Server: msg.Prefix.Name}
	}

	var target string
	if len(msg.Params) > 0 {
		target = msg.Params[0]
	}

	if target != "" && isChannelName(target) {
		return EventSource{Kind: SourceChannel, Channel: target, User: msg.Prefix.Name}
	}
	return EventSource{Kind: SourceUser, User: msg.Prefix.Name}
}

func newEvent(msg Message, raw []byte) Event {
	return Event{
		Kind:    classify(msg),
		Source:  eventSource(msg),
		Message: msg,
		Raw:     raw,
	}
}

// AsCTCP decodes the CTCP verb/args carried by an ECTCP event. ok is false
// for any other event kind.
func (ev Event) AsCTCP() (c CTCP, ok bool) {
	if ev.Kind != ECTCP || len(ev.Message.Params) < 2 {
		return CTCP{}, false
	}
	payload := ev.Message.Params[len(ev.Message.Params)-1]
	verb, args, ok := DecodeCTCP(payload)
	if !ok {
		return CTCP{}, false
	}
	return CTCP{
		Verb:   strings.ToUpper(verb),
		Args:   args,
		Notice: ev.Message.Command == "NOTICE",
		Target: ev.Message.Params[0],
	}, true
}
