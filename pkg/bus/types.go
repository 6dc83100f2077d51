package bus

// InboundMessage is one chat message addressed to the interviewer.
type InboundMessage struct {
	Channel  string
	SenderID string
	ChatID   string
	Content  string
	// SessionKey optionally replaces ChatID as the conversation scope,
	// e.g. a thread inside a chat.
	SessionKey string
	Metadata   map[string]string
}

// OutboundMessage is a reply routed back to the channel it came from.
type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
}
