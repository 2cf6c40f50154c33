package statemachine

import (
	"errors"
	"strings"
)

// State is the authentication state of a browser session.
type State string

const (
	Anonymous     State = "ANONYMOUS"
	Authenticated State = "AUTHENTICATED"
)

// Event is what moves a session between states.
type Event string

const (
	EventLogin  Event = "login"
	EventSignup Event = "signup"
	EventLogout Event = "logout"
)

// Transition defines a valid state change and the event that causes it
type Transition struct {
	From  State
	To    State
	Event Event
}

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	// Logging in or signing up authenticates an anonymous session
	{From: Anonymous, To: Authenticated, Event: EventLogin},
	{From: Anonymous, To: Authenticated, Event: EventSignup},
	// and replaces the session of an already authenticated one
	{From: Authenticated, To: Authenticated, Event: EventLogin},
	{From: Authenticated, To: Authenticated, Event: EventSignup},
	// Logout always ends anonymous
	{From: Authenticated, To: Anonymous, Event: EventLogout},
	{From: Anonymous, To: Anonymous, Event: EventLogout},
}

type transitionKey struct {
	From  State
	Event Event
}

var transitionMap = func() map[transitionKey]State {
	m := make(map[transitionKey]State)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.Event}] = t.To
	}
	return m
}()

// StateOf maps "has a session" to a State.
func StateOf(authenticated bool) State {
	if authenticated {
		return Authenticated
	}
	return Anonymous
}

// Next returns the state reached from `from` on event, or an error when
// the event is not allowed there.
func Next(from State, event Event) (State, error) {
	if to, ok := transitionMap[transitionKey{from, event}]; ok {
		return to, nil
	}
	return from, errors.New(
		"invalid transition: " + string(event) + " from " + string(from) +
			". Valid events from " + string(from) + " are: " + describeValidFrom(from),
	)
}

// ValidEventsFrom returns the events accepted in a given state
func ValidEventsFrom(state State) []Event {
	var events []Event
	for _, t := range validTransitions {
		if t.From == state {
			events = append(events, t.Event)
		}
	}
	return events
}

func describeValidFrom(state State) string {
	events := ValidEventsFrom(state)
	if len(events) == 0 {
		return "none"
	}
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = string(e)
	}
	return strings.Join(names, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
