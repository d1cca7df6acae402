package domain

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// TranscriptEntry is one rendered line of the intake conversation.
type TranscriptEntry struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ConversationState is the orchestrator-owned view of an intake conversation.
type ConversationState struct {
	ConversationID string
	Transcript     []TranscriptEntry
	Step           int
	Keywords       []string
	Awaiting       bool
	Finished       bool
}

// Clone returns a deep copy so callers can never alias orchestrator state.
func (s ConversationState) Clone() ConversationState {
	out := s
	out.Transcript = append([]TranscriptEntry(nil), s.Transcript...)
	out.Keywords = append([]string(nil), s.Keywords...)
	return out
}

// LastEntry returns the final transcript entry, if any.
func (s ConversationState) LastEntry() (TranscriptEntry, bool) {
	if len(s.Transcript) == 0 {
		return TranscriptEntry{}, false
	}
	return s.Transcript[len(s.Transcript)-1], true
}
