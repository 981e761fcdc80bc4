package stash

// ConversationMessage is one turn of a conversation submitted for memory
// extraction.
type ConversationMessage struct {
	ID      string `json:"id,omitempty"`
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

// DirectMemory is a memory written without extraction.
type DirectMemory struct {
	Kind      string         `json:"kind" validate:"required"`
	Data      map[string]any `json:"data" validate:"required"`
	ID        string         `json:"id,omitempty"`
	TTL       string         `json:"ttl,omitempty"`
	ExpiresAt int64          `json:"expiresAt,omitempty"`
}

// CreateMemoriesRequest creates memories either by extraction from a
// conversation or directly. At least one of Conversation or Memories must be
// set.
type CreateMemoriesRequest struct {
	AgentID      string                `json:"agentId" validate:"required"`
	SubjectID    string                `json:"subjectId,omitempty"`
	Conversation []ConversationMessage `json:"conversation,omitempty" validate:"omitempty,dive"`
	Memories     []DirectMemory        `json:"memories,omitempty" validate:"omitempty,dive"`
	ThreadID     string                `json:"threadId,omitempty"`
	Schemas      []string              `json:"schemas,omitempty"`
	TTL          string                `json:"ttl,omitempty"`
	ExpiresAt    int64                 `json:"expiresAt,omitempty"`
}

// Memory is a stored memory record.
type Memory struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	Data     map[string]any `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CreateMemoriesResponse reports the records the server created or updated.
type CreateMemoriesResponse struct {
	Success bool     `json:"success"`
	Created []Memory `json:"created"`
	Updated []Memory `json:"updated"`
}

// SearchMemoriesRequest is the query surface of the search endpoint. All
// fields except Query are optional filters.
type SearchMemoriesRequest struct {
	Query     string `validate:"required"`
	AgentID   string
	SubjectID string
	ThreadID  string
	Kind      string
	Tags      string
	Limit     int
	Mode      string
	Scope     string
}

// SearchMemoriesResponse carries ranked search results.
type SearchMemoriesResponse struct {
	Success    bool     `json:"success"`
	Memories   []Memory `json:"memories"`
	SearchedAt string   `json:"searchedAt"`
}

// ListMemoriesResponse carries an unranked listing.
type ListMemoriesResponse struct {
	Success  bool     `json:"success"`
	Memories []Memory `json:"memories"`
}
