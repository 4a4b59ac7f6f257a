package chat

import (
	"fmt"
	"strings"
)

// ContextMode selects what is sent as prior conversation with each prompt
type ContextMode string

const (
	// ContextTranscript sends the whole transcript
	ContextTranscript ContextMode = "transcript"
	// ContextNone sends only the prompt
	ContextNone ContextMode = "none"
)

// ParseContextMode accepts "transcript" or "none", case-insensitively.
// Empty input yields ContextTranscript.
func ParseContextMode(s string) (ContextMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ContextTranscript):
		return ContextTranscript, nil
	case string(ContextNone):
		return ContextNone, nil
	}
	return "", fmt.Errorf("unknown context mode %q (want transcript or none)", s)
}

// SendTrigger is the key combination that submits the input box
type SendTrigger string

const (
	SendOnEnter     SendTrigger = "enter"
	SendOnCtrlEnter SendTrigger = "ctrl+enter"
)

// ParseSendTrigger accepts "enter" or "ctrl+enter". Empty input yields
// SendOnEnter.
func ParseSendTrigger(s string) (SendTrigger, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(SendOnEnter):
		return SendOnEnter, nil
	case string(SendOnCtrlEnter), "ctrl-enter", "ctrl+j":
		return SendOnCtrlEnter, nil
	}
	return "", fmt.Errorf("unknown send trigger %q (want enter or ctrl+enter)", s)
}

// Toggle returns the other trigger
func (t SendTrigger) Toggle() SendTrigger {
	if t == SendOnCtrlEnter {
		return SendOnEnter
	}
	return SendOnCtrlEnter
}

// Label is the human readable key name
func (t SendTrigger) Label() string {
	if t == SendOnCtrlEnter {
		return "Ctrl+Enter"
	}
	return "Enter"
}
