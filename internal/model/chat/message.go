package chat

// Role identifies the author of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single exchanged turn. The JSON shape is the one written to exports.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is the ordered record of messages for one chat session.
// Entries are only ever appended.
type Transcript struct {
	messages []Message
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{messages: make([]Message, 0, 16)}
}

// Append records msg after all existing entries.
func (t *Transcript) Append(msg Message) {
	t.messages = append(t.messages, msg)
}

// Messages returns a copy of the recorded entries in append order.
func (t *Transcript) Messages() []Message {
	if t == nil {
		return nil
	}
	copied := make([]Message, len(t.messages))
	copy(copied, t.messages)
	return copied
}

// Len reports the number of recorded entries.
func (t *Transcript) Len() int {
	if t == nil {
		return 0
	}
	return len(t.messages)
}
