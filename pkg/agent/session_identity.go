package agent

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/bus"
)

const conversationKeyVersion = "iv1"

// ConversationIdentity is one candidate in one conversation. Two people
// talking in the same channel get separate interviews.
type ConversationIdentity struct {
	Channel      string
	Conversation string
	Candidate    string
}

func (id ConversationIdentity) Validate() error {
	if strings.TrimSpace(id.Channel) == "" {
		return fmt.Errorf("missing channel")
	}
	if strings.TrimSpace(id.Conversation) == "" {
		return fmt.Errorf("missing conversation id")
	}
	if strings.TrimSpace(id.Candidate) == "" {
		return fmt.Errorf("missing candidate id")
	}
	return nil
}

func (id ConversationIdentity) Canonical() string {
	return strings.ToLower(strings.TrimSpace(id.Channel)) + "|" +
		strings.TrimSpace(id.Conversation) + "|" +
		strings.TrimSpace(id.Candidate)
}

func (id ConversationIdentity) Key() string {
	sum := sha1.Sum([]byte(id.Canonical()))
	return conversationKeyVersion + ":" + hex.EncodeToString(sum[:12])
}

func isConversationKey(key string) bool {
	return strings.HasPrefix(strings.TrimSpace(key), conversationKeyVersion+":")
}

// identityOf reads the identity from a message. Sender ids look like
// "<id>|<display name>"; only the id counts so renames keep the session.
func identityOf(msg bus.InboundMessage) ConversationIdentity {
	conversation := strings.TrimSpace(msg.SessionKey)
	if conversation == "" {
		conversation = msg.ChatID
	}
	candidate, _, _ := strings.Cut(msg.SenderID, "|")
	return ConversationIdentity{
		Channel:      msg.Channel,
		Conversation: conversation,
		Candidate:    candidate,
	}
}

// sessionKey maps a message to the router's session table key. Messages
// that already carry a derived key keep it; anonymous messages share the
// conversation.
func sessionKey(msg bus.InboundMessage) string {
	if isConversationKey(msg.SessionKey) {
		return strings.TrimSpace(msg.SessionKey)
	}
	id := identityOf(msg)
	if err := id.Validate(); err != nil {
		return msg.Channel + ":" + id.Conversation
	}
	return id.Key()
}
