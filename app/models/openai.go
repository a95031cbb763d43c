package models

// Engine is a type for OpenAI API engine
type Engine string

const (
	ChatGpt4oMini Engine = "gpt-4o-mini"
	ChatGpt4o     Engine = "gpt-4o"
)

type CostAndUsage struct {
	Engine             Engine  `json:"engine"`
	PricePerInputUnit  float64 `json:"price_per_input_unit"`
	PricePerOutputUnit float64 `json:"price_per_output_unit"`
	Cost               float64 `json:"cost"`
	Usage              Usage   `json:"usage"`
	User               string  `json:"user"`
}

// ChatCompletion is a type for OpenAI API chat completion
type ChatCompletion struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`

	// optional
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	User        string  `json:"user,omitempty"`
}

// Message is a type for OpenAI API message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is a type for OpenAI API chat response
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

type ChatChoice struct {
	FinishReason string  `json:"finish_reason"`
	Index        int     `json:"index"`
	Message      Message `json:"message"`
}

// Usage is a type for OpenAI API usage
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
