package openai

import (
	"context"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps the chat-completion API behind a key chosen per request:
// users may bring their own generation credential, so construction is cheap
// and done at call-resolution time rather than process start.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient builds a generation client for the given API key. The model is
// taken from CHAT_MODEL, defaulting to gpt-4o-mini.
func NewClient(apiKey string) *Client {
	model := os.Getenv("CHAT_MODEL")
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{api: openai.NewClient(apiKey), model: model}
}

// Generate runs one prompt through the model and returns the full answer.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateContract is the structured variant used by contract mode. The
// model is asked to reply with a bare JSON object; the reply is still
// treated as an untrusted text channel by the caller.
func (c *Client) GenerateContract(ctx context.Context, prompt string) (string, error) {
	return c.Generate(ctx, prompt)
}

// Stream returns a channel of answer tokens. The channel is closed when the
// model finishes or the stream breaks.
func (c *Client) Stream(ctx context.Context, prompt string) (<-chan string, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan string)
	go func() {
		defer stream.Close()
		defer close(ch)
		for {
			resp, err := stream.Recv()
			if err != nil {
				break
			}
			if len(resp.Choices) > 0 {
				ch <- resp.Choices[0].Delta.Content
			}
		}
	}()
	return ch, nil
}
