package api

// GJSON paths for extracting values from service responses.
const (
	// Conversation create response
	PathConversationID  = "conversationId"
	PathClientID        = "clientId"
	PathConversationSig = "conversationSignature"
	PathCreateResult    = "result"

	// Frame envelope
	PathFrameType      = "type"
	PathUpdateMessages = "arguments.0.messages" // type 1
	PathUpdateCursor   = "arguments.0.cursor"
	PathCompletionItem = "item"  // type 2
	PathCloseError     = "error" // type 3 and 7

	// Result objects (create response and completion item)
	PathItemResult    = "result"
	PathItemMessages  = "messages"
	PathResultValue   = "value"
	PathResultMessage = "message"

	// Message paths (relative to a message object)
	PathMessageAuthor      = "author"
	PathMessageType        = "messageType"
	PathMessageText        = "text"
	PathMessageHiddenText  = "hiddenText"
	PathMessageGrounding   = "groundingInfo"
	PathMessageOrigin      = "contentOrigin"
	PathMessageCursor      = "cursor"
	PathMessageCardText    = "adaptiveCards.0.body.0.text"
	PathSuggestedResponses = "suggestedResponses.#.text"
)
