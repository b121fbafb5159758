// Package ai streams guarded chat completions from hosted LLM providers.
package ai

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionRequest is the request body sent to chat-completions endpoints.
type completionRequest struct {
	Model             string        `json:"model"`
	Stream            bool          `json:"stream"`
	MaxTokens         int           `json:"max_tokens"`
	Temperature       float64       `json:"temperature"`
	TopP              float64       `json:"top_p"`
	PresencePenalty   float64       `json:"presence_penalty"`
	FrequencyPenalty  float64       `json:"frequency_penalty"`
	RepetitionPenalty float64       `json:"repetition_penalty"`
	Messages          []wireMessage `json:"messages"`
}

// wireMessage is a single message in the chat-completions format.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamChunk is the payload of one "data:" event.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
