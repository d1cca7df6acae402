// Package navigation threads intake context between independently routed
// views. Each transition carries a typed Handoff from the page that produced it
// to the page that consumes it.
package navigation

import (
	"strings"

	"medai-intake/internal/domain"
	"medai-intake/internal/steps"
)

// Route names a view.
type Route string

const (
	RouteHome         Route = "home"
	RouteSymptomCheck Route = "symptom-check"
	RouteProfile      Route = "profile"
	RouteChat         Route = "chat"
	RouteResult       Route = "result"
)

var routeAliases = map[string]Route{
	"":                RouteHome,
	"/":               RouteHome,
	"home":            RouteHome,
	"/isdiseaseright": RouteSymptomCheck,
	"symptom-check":   RouteSymptomCheck,
	"/age":            RouteProfile,
	"profile":         RouteProfile,
	"/chat":           RouteChat,
	"/chatpage":       RouteChat,
	"chat":            RouteChat,
	"/result":         RouteResult,
	"result":          RouteResult,
}

// ParseRoute accepts route names and the legacy URL paths.
func ParseRoute(s string) (Route, bool) {
	r, ok := routeAliases[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

// Handoff is the payload passed between views. The zero value is valid and
// means "nothing was handed over".
type Handoff struct {
	FollowUpQuestion string
	InitialUserInput string
	Profile          domain.Profile
}

// HasProfile reports whether structured answers were collected upstream.
func (h Handoff) HasProfile() bool {
	return h.Profile.Age > 0
}

// Prompt is the step-0 prompt: the trimmed follow-up question, or the default
// literal when none was supplied.
func (h Handoff) Prompt() string {
	if q := strings.TrimSpace(h.FollowUpQuestion); q != "" {
		return q
	}
	return steps.DefaultPrompt
}

// WithDefaults fills in documented defaults so consumers never see blanks.
func (h Handoff) WithDefaults() Handoff {
	h.FollowUpQuestion = h.Prompt()
	return h
}

// IntakeContext converts the handoff to the domain view.
func (h Handoff) IntakeContext() domain.IntakeContext {
	ic := domain.IntakeContext{FreeText: h.InitialUserInput}
	if h.HasProfile() {
		p := h.Profile
		ic.Profile = &p
	}
	return ic
}

type transitionKind int

const (
	kindStay transitionKind = iota
	kindGo
	kindBack
	kindRestart
	kindExit
)

// Transition is what a page asks the flow to do next.
type Transition struct {
	kind    transitionKind
	To      Route
	Payload Handoff
}

// Go moves to another view carrying payload.
func Go(to Route, payload Handoff) Transition {
	return Transition{kind: kindGo, To: to, Payload: payload}
}

// Stay re-shows the current view with its current payload.
func Stay() Transition { return Transition{kind: kindStay} }

// Back returns to the previous view.
func Back() Transition { return Transition{kind: kindBack} }

// Restart clears history and returns to the entry point.
func Restart() Transition { return Transition{kind: kindRestart, To: RouteHome} }

// Exit ends the flow.
func Exit() Transition { return Transition{kind: kindExit} }

type entry struct {
	route   Route
	payload Handoff
}

// Router tracks the current view and a back stack.
type Router struct {
	start   Route
	current entry
	history []entry
}

func NewRouter(start Route) *Router {
	return &Router{start: start, current: entry{route: start}}
}

// Current returns the active route and the payload it was entered with.
func (r *Router) Current() (Route, Handoff) {
	return r.current.route, r.current.payload
}

// Go pushes the current view and moves to route.
func (r *Router) Go(route Route, payload Handoff) {
	r.history = append(r.history, r.current)
	r.current = entry{route: route, payload: payload}
}

// Back pops the previous view. It reports false when there is nothing to go
// back to.
func (r *Router) Back() bool {
	if len(r.history) == 0 {
		return false
	}
	r.current = r.history[len(r.history)-1]
	r.history = r.history[:len(r.history)-1]
	return true
}

// Reset returns to the start route with an empty history.
func (r *Router) Reset() {
	r.history = nil
	r.current = entry{route: r.start}
}

// Depth is the number of views on the back stack.
func (r *Router) Depth() int {
	return len(r.history)
}
