package models

// Event is one decoded step of a streaming exchange. The set is closed:
// SearchQuery, SearchResult, MessageContinuation, Suggestions, Revoked, Final.
type Event interface {
	isEvent()
}

// SearchQuery is a web search the assistant ran while answering
type SearchQuery struct {
	Text string
}

// SearchResult carries the raw results of a SearchQuery
type SearchResult struct {
	Text string
}

// MessageContinuation is a snapshot of the assistant message being written.
// Text always holds the whole message so far. CursorReset marks the first
// snapshot of a new message within the same exchange.
type MessageContinuation struct {
	Text        string
	CursorReset bool
}

// Suggestions are the suggested next user replies. They are the last payload
// of an exchange.
type Suggestions struct {
	Replies []string
}

// Revoked means the service retracted the response it was streaming
type Revoked struct {
	Reason string
}

// Final is the terminal snapshot of an exchange
type Final struct {
	Text string
}

func (SearchQuery) isEvent()         {}
func (SearchResult) isEvent()        {}
func (MessageContinuation) isEvent() {}
func (Suggestions) isEvent()         {}
func (Revoked) isEvent()             {}
func (Final) isEvent()               {}

// Conversation identifies a conversation created on the service
type Conversation struct {
	ID        string
	ClientID  string
	Signature string
	// EncryptedSignature is sent as sec_access_token when the service
	// returns it in a header instead of the body.
	EncryptedSignature string
}

// Valid reports whether the conversation has everything needed to open ChatHub
func (c Conversation) Valid() bool {
	return c.ID != "" && c.ClientID != "" && (c.Signature != "" || c.EncryptedSignature != "")
}

// AskRequest is one prompt sent into an open session
type AskRequest struct {
	Prompt string
	// Context is sent as prior conversation; empty means none
	Context string
	Style   Style
}

// EventStream yields the events of one exchange in order. Next returns
// io.EOF after the last event. A stream cannot be restarted.
type EventStream interface {
	Next() (Event, error)
}
