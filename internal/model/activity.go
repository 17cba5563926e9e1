package model

// Activity types delivered by a channel.
const (
	ActivityMessage            = "message"
	ActivityConversationUpdate = "conversationUpdate"
)

// Activity is one inbound turn.
type Activity struct {
	Type           string
	ConversationID string
	UserID         string
	UserName       string
	Text           string
	Locale         string
}

// Reply is one outbound message. Card is optional structured content.
type Reply struct {
	Text string `json:"text"`
	Card *Card  `json:"card,omitempty"`
}

// Card is a minimal structured payload: a list of text lines.
type Card struct {
	Lines []string `json:"lines"`
}
