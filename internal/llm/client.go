// Package llm answers questions over retrieved catalog documents using an
// OpenAI-compatible chat completions endpoint.
package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rangerlabs/geocat/internal/catalog"
)

// Defaults for the chat client.
const (
	DefaultModel       = "llama3.1"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
)

const systemPrompt = "You are a helpful assistant that answers questions " +
	"about a geospatial data catalog based on provided context."

// Synthesizer produces an answer to a question grounded in the given
// documents.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, docs []catalog.Document) (string, error)
}

// Config holds the chat client settings. BaseURL points at any
// OpenAI-compatible endpoint (LiteLLM proxy, Ollama, vLLM).
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Client is a Synthesizer backed by the chat completions API.
type Client struct {
	client *openai.Client
	config Config
}

// Verify interface implementation at compile time
var _ Synthesizer = (*Client)(nil)

// NewClient creates a chat client.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
	}
}

// Synthesize sends the question plus a context block built from the
// documents and returns the model's answer. Unlike retrieval, LLM failure
// is the caller's problem and surfaces as an error.
func (c *Client) Synthesize(ctx context.Context, query string, docs []catalog.Document) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("empty question")
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("no context documents")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(query, docs)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// BuildPrompt assembles the user prompt: numbered document blocks followed
// by the question. Exported for testing the exact context shape.
func BuildPrompt(query string, docs []catalog.Document) string {
	var b strings.Builder

	b.WriteString("Use the following documents to answer the user's question. ")
	b.WriteString("If the answer cannot be found in the context, say so.\n\n")
	b.WriteString("Context:\n")

	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Document %d:\n", i+1)
		fmt.Fprintf(&b, "Title: %s\n", doc.Title)

		description := doc.Description
		if description == "" {
			description = doc.Abstract
		}
		fmt.Fprintf(&b, "Description: %s\n", description)

		keywords := "None"
		if len(doc.Keywords) > 0 {
			keywords = strings.Join(doc.Keywords, ", ")
		}
		fmt.Fprintf(&b, "Keywords: %s\n", keywords)
		fmt.Fprintf(&b, "Source: %s\n", doc.Source)
	}

	fmt.Fprintf(&b, "\nUser Question: %s\n\n", query)
	b.WriteString("Provide a comprehensive answer based on the above context ")
	b.WriteString("and cite which documents you drew from.")

	return b.String()
}
