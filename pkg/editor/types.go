package editor

import (
	"fmt"
	"strings"
)

// BoxID identifies a box within one page.
type BoxID string

// GroupID identifies a group within one page.
type GroupID string

// SelectMode controls how Select changes the selection.
type SelectMode int

const (
	// SelectReplace makes the selection exactly the given box.
	SelectReplace SelectMode = iota
	// SelectToggle adds the box if absent, removes it otherwise.
	SelectToggle
)

// ParseSelectMode resolves "replace" or "toggle". An empty string means replace.
func ParseSelectMode(s string) (SelectMode, error) {
	switch strings.ToLower(s) {
	case "", "replace":
		return SelectReplace, nil
	case "toggle":
		return SelectToggle, nil
	}
	return 0, fmt.Errorf("%w: unknown select mode %q", ErrInvalidInput, s)
}

// Handle is the corner dragged by a resize.
type Handle string

const (
	HandleNW Handle = "NW"
	HandleNE Handle = "NE"
	HandleSW Handle = "SW"
	HandleSE Handle = "SE"
)

// ParseHandle resolves a corner name, case insensitive.
func ParseHandle(s string) (Handle, error) {
	h := Handle(strings.ToUpper(s))
	switch h {
	case HandleNW, HandleNE, HandleSW, HandleSE:
		return h, nil
	}
	return "", fmt.Errorf("%w: unknown resize handle %q", ErrInvalidInput, s)
}

// State is the save state of a session.
type State int

const (
	Clean State = iota
	Dirty
)

func (s State) String() string {
	if s == Dirty {
		return "dirty"
	}
	return "clean"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "clean":
		*s = Clean
	case "dirty":
		*s = Dirty
	default:
		return fmt.Errorf("unknown session state %q", text)
	}
	return nil
}
