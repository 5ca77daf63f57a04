package llm

import "context"

// Chat message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one role-tagged message in a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ChatCompleter is the interface for chat-style model completion.
//
// ChatJSON issues a deterministic (temperature zero) request with the
// provider's structured-output mode enabled, which strongly biases the
// response toward a single well-formed JSON object. The returned text is
// still free-form from the caller's point of view: it should be that object
// but is not guaranteed to be, so callers run it through the response parser.
type ChatCompleter interface {
	ChatJSON(ctx context.Context, messages []Message) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
// Query and index embeddings must come from the same model and dimension
// or retrieval quality silently degrades.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
