package irc

import (
	"log"
)

// HandlerFunc is the action half of an EventHandler: it may read and
// mutate state cells and enqueue further messages (spec.md §3, §9 — the
// IRCState is passed explicitly rather than closed over, so handlers stay
// plain functions).
type HandlerFunc func(st *IRCState, ev Event)

// EventHandler pairs a HandlerFunc with the event kind it reacts to and an
// optional extra predicate (spec.md §3).
type EventHandler struct {
	Kind   EventKind
	Match  func(Event) bool // nil means "match any event of Kind"
	Action HandlerFunc
	Name   string // for diagnostics only; not part of matching
}

// NewEventHandler builds a handler for kind with no extra predicate. It is
// the "eventHandler(kind, action)" constructor of spec.md §6.
func NewEventHandler(kind EventKind, action HandlerFunc) EventHandler {
	return EventHandler{Kind: kind, Action: action}
}

func (h EventHandler) matches(ev Event) bool {
	if h.Kind != ev.Kind {
		return false
	}
	if h.Match != nil && !h.Match(ev) {
		return false
	}
	return true
}

// dispatchEvent looks up every handler whose selector matches ev and runs
// each concurrently, fire-and-forget, recovering and logging any panic so
// one bad handler cannot take down the session (spec.md §4.1, §4.2, §7).
func dispatchEvent(st *IRCState, ev Event) {
	inst := st.Instance()

	if inst.Ignore.Ignored(ev.Source) {
		return
	}

	for _, h := range inst.Handlers {
		if !h.matches(ev) {
			continue
		}
		h := h
		st.handlerWG.Add(1)
		go func() {
			defer st.handlerWG.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("irc: handler %q panicked on %s: %v", h.Name, ev.Kind, r)
				}
			}()
			h.Action(st, ev)
		}()
	}
}
