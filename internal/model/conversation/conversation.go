package conversation

// Input carries one user utterance into the agent.
type Input struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Text           string `json:"text"`
	Language       string `json:"language,omitempty"`
}

// Result is what the agent hands back to the dispatcher. Either Speech is set
// (successful reply) or ErrorCode/ErrorMessage describe a synthesized error
// reply; the conversation id is present in both cases so the caller's
// conversation continues.
type Result struct {
	ConversationID string
	Speech         string
	ErrorCode      string
	ErrorMessage   string
}

// Failed reports whether the result carries a synthesized error reply.
func (r Result) Failed() bool {
	return r.ErrorCode != ""
}

// Turn is one entry of a conversation transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ErrCodeUnknown classifies every per-utterance failure: remote call errors,
// malformed replies and entry-store lookups all surface the same way.
const ErrCodeUnknown = "unknown"
