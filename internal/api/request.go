package api

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/diogo/sydney/internal/models"
)

// contextMessageID is the fixed id the web client gives page context
const contextMessageID = "discover-web--page-ping-mriduna-----"

var conversationHistoryOptionsSets = []string{"autosave", "savemem", "uprofupd", "uprofgen"}

type invocation struct {
	Arguments    []invocationArgs `json:"arguments"`
	InvocationID string           `json:"invocationId"`
	Target       string           `json:"target"`
	Type         int              `json:"type"`
}

type invocationArgs struct {
	Source                         string           `json:"source"`
	OptionsSets                    []string         `json:"optionsSets"`
	AllowedMessageTypes            []string         `json:"allowedMessageTypes"`
	SliceIDs                       []string         `json:"sliceIds"`
	Verbosity                      string           `json:"verbosity"`
	Scenario                       string           `json:"scenario"`
	Plugins                        []any            `json:"plugins"`
	TraceID                        string           `json:"traceId"`
	ConversationHistoryOptionsSets []string         `json:"conversationHistoryOptionsSets"`
	IsStartOfSession               bool             `json:"isStartOfSession"`
	RequestID                      string           `json:"requestId"`
	Message                        chatMessage      `json:"message"`
	Tone                           string           `json:"tone"`
	SpokenTextMode                 string           `json:"spokenTextMode"`
	ConversationID                 string           `json:"conversationId"`
	Participant                    participant      `json:"participant"`
	ConversationSignature          string           `json:"conversationSignature,omitempty"`
	PreviousMessages               []contextMessage `json:"previousMessages,omitempty"`
}

type chatMessage struct {
	Locale      string `json:"locale"`
	Market      string `json:"market"`
	Region      string `json:"region"`
	Author      string `json:"author"`
	InputMethod string `json:"inputMethod"`
	Text        string `json:"text"`
	MessageType string `json:"messageType"`
	RequestID   string `json:"requestId"`
	MessageID   string `json:"messageId"`
}

type participant struct {
	ID string `json:"id"`
}

type contextMessage struct {
	Author      string `json:"author"`
	Description string `json:"description"`
	ContextType string `json:"contextType"`
	MessageType string `json:"messageType"`
	MessageID   string `json:"messageId"`
}

// buildInvocation renders the type 4 frame that asks one question,
// terminated by the record separator
func buildInvocation(conv models.Conversation, req models.AskRequest, invocationID int, startOfSession bool) ([]byte, error) {
	style := req.Style
	if style.Name == "" {
		style = models.DefaultStyle
	}

	messageID := uuid.NewString()
	args := invocationArgs{
		Source:                         "cib",
		OptionsSets:                    style.OptionSets,
		AllowedMessageTypes:            models.AllowedMessageTypes,
		SliceIDs:                       []string{},
		Verbosity:                      "verbose",
		Scenario:                       "SERP",
		Plugins:                        []any{},
		TraceID:                        strings.ReplaceAll(uuid.NewString(), "-", ""),
		ConversationHistoryOptionsSets: conversationHistoryOptionsSets,
		IsStartOfSession:               startOfSession,
		RequestID:                      messageID,
		Message: chatMessage{
			Locale:      "en-US",
			Market:      "en-US",
			Region:      "US",
			Author:      "user",
			InputMethod: "Keyboard",
			Text:        req.Prompt,
			MessageType: "Chat",
			RequestID:   messageID,
			MessageID:   messageID,
		},
		Tone:                  toneFor(style),
		SpokenTextMode:        "None",
		ConversationID:        conv.ID,
		Participant:           participant{ID: conv.ClientID},
		ConversationSignature: conv.Signature,
	}

	if req.Context != "" {
		args.PreviousMessages = []contextMessage{{
			Author:      "user",
			Description: req.Context,
			ContextType: "WebPage",
			MessageType: "Context",
			MessageID:   contextMessageID,
		}}
	}

	payload, err := json.Marshal(invocation{
		Arguments:    []invocationArgs{args},
		InvocationID: strconv.Itoa(invocationID),
		Target:       "chat",
		Type:         4,
	})
	if err != nil {
		return nil, err
	}
	return append(payload, models.RecordSeparator...), nil
}

// toneFor maps a style to the tone field, "Creative", "Balanced" or "Precise"
func toneFor(style models.Style) string {
	if style.Name == "" {
		return ""
	}
	return strings.ToUpper(style.Name[:1]) + style.Name[1:]
}
