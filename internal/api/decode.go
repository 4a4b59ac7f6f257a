package api

import (
	"strings"

	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/sydney/internal/errors"
	"github.com/diogo/sydney/internal/models"
)

// ChatHub frame types
const (
	frameUpdate     = 1
	frameCompletion = 2
	frameClose      = 3
	framePing       = 6
	frameCloseError = 7
)

// splitRecords splits a WebSocket message into its JSON records
func splitRecords(msg string) []string {
	parts := strings.Split(msg, models.RecordSeparator)
	records := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			records = append(records, p)
		}
	}
	return records
}

// decodeFrame turns one record into events. done reports that the service
// ended the exchange; err carries a service-side failure.
func decodeFrame(record string) (events []models.Event, done bool, err error) {
	if !gjson.Valid(record) {
		return nil, false, apierrors.NewParseError("frame is not JSON", "")
	}

	frame := gjson.Parse(record)
	switch frame.Get(PathFrameType).Int() {
	case frameUpdate:
		msgs := frame.Get(PathUpdateMessages).Array()
		if len(msgs) == 0 {
			// throttling counters and other bookkeeping
			return nil, false, nil
		}
		return decodeMessage(msgs[0], frame.Get(PathUpdateCursor).Exists()), false, nil

	case frameCompletion:
		return decodeCompletion(frame.Get(PathCompletionItem))

	case frameClose, frameCloseError:
		if msg := frame.Get(PathCloseError).String(); msg != "" {
			return nil, true, apierrors.NewSessionError("chat", models.EndpointChatHub, msg)
		}
		return nil, true, nil

	case framePing:
		return nil, false, nil
	}

	return nil, false, nil
}

// decodeMessage maps one streamed message to its events. cursor reports a
// cursor on the enclosing update, which starts a new message.
func decodeMessage(msg gjson.Result, cursor bool) []models.Event {
	if msg.Get(PathMessageAuthor).String() == "user" {
		return nil
	}

	switch msg.Get(PathMessageType).String() {
	case "InternalSearchQuery":
		return []models.Event{models.SearchQuery{Text: firstNonEmpty(msg.Get(PathMessageHiddenText).String(), msg.Get(PathMessageText).String())}}
	case "InternalSearchResult":
		text := firstNonEmpty(msg.Get(PathMessageHiddenText).String(), msg.Get(PathMessageText).String(), msg.Get(PathMessageGrounding).Raw)
		return []models.Event{models.SearchResult{Text: text}}
	case "Disengaged":
		return []models.Event{models.Revoked{Reason: "the conversation was disengaged"}}
	case "":
	default:
		// loader messages, progress, render cards, context echoes
		return nil
	}

	if msg.Get(PathMessageOrigin).String() == "Apology" {
		return []models.Event{models.Revoked{Reason: "the answer was replaced by an apology"}}
	}

	var events []models.Event
	if text := messageText(msg); text != "" {
		events = append(events, models.MessageContinuation{
			Text:        text,
			CursorReset: cursor || msg.Get(PathMessageCursor).Exists(),
		})
	}
	if replies := suggestedResponses(msg); len(replies) > 0 {
		events = append(events, models.Suggestions{Replies: replies})
	}
	return events
}

// decodeCompletion handles the type 2 frame that closes an invocation
func decodeCompletion(item gjson.Result) ([]models.Event, bool, error) {
	result := item.Get(PathItemResult)
	if value := result.Get(PathResultValue).String(); value != "" && value != "Success" {
		message := result.Get(PathResultMessage).String()
		switch value {
		case "Throttled":
			return nil, true, apierrors.NewThrottledError(message)
		case "UnauthorizedRequest", "Forbidden":
			return nil, true, apierrors.NewAuthError(models.EndpointChatHub, message)
		case "InvalidSession":
			return nil, true, apierrors.NewSessionError("chat", models.EndpointChatHub, "invalid session: "+message)
		}
		return nil, true, apierrors.NewSessionError("chat", models.EndpointChatHub, value+": "+message)
	}

	var (
		final   string
		replies []string
		revoked bool
	)
	for _, m := range item.Get(PathItemMessages).Array() {
		if m.Get(PathMessageAuthor).String() != "bot" {
			continue
		}
		switch m.Get(PathMessageType).String() {
		case "":
		case "Disengaged":
			revoked = true
			continue
		default:
			continue
		}
		if m.Get(PathMessageOrigin).String() == "Apology" {
			revoked = true
			continue
		}
		final = messageText(m)
		replies = suggestedResponses(m)
	}

	if revoked && final == "" {
		return []models.Event{models.Revoked{Reason: "the answer was withdrawn"}}, false, nil
	}

	events := []models.Event{models.Final{Text: final}}
	if len(replies) > 0 {
		events = append(events, models.Suggestions{Replies: replies})
	}
	return events, false, nil
}

// messageText prefers the rendered card text, which carries the markdown
func messageText(msg gjson.Result) string {
	if text := msg.Get(PathMessageCardText).String(); text != "" {
		return text
	}
	return msg.Get(PathMessageText).String()
}

func suggestedResponses(msg gjson.Result) []string {
	var replies []string
	for _, r := range msg.Get(PathSuggestedResponses).Array() {
		if s := r.String(); s != "" {
			replies = append(replies, s)
		}
	}
	return replies
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
