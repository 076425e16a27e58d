package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const ProviderOllama = "ollama"

// OllamaClient answers through a local Ollama server.
type OllamaClient struct {
	llm   *ollama.LLM
	model string
}

func NewOllamaClient(host, model string) (*OllamaClient, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if host != "" {
		opts = append(opts, ollama.WithServerURL(host))
	}
	l, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &OllamaClient{llm: l, model: model}, nil
}

func (c *OllamaClient) Name() string  { return ProviderOllama }
func (c *OllamaClient) Model() string { return c.model }

// Ask ignores req.Model; the model is bound when the client is created.
func (c *OllamaClient) Ask(ctx context.Context, req Request) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, req.Prompt(), opts...)
	if err != nil {
		return "", ollamaError(err)
	}
	text := strings.TrimSpace(out)
	if text == "" {
		return "", malformed(ProviderOllama, "empty response")
	}
	return text, nil
}

// ollamaError classifies a failed Ollama call. The client's status error type
// is not exported, so it is recognised by its "NNN Status" message prefix.
// An error the server wrote into the response body (such as an unknown
// model) arrives without a status and is not retried.
func ollamaError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return transportError(ProviderOllama, err)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &ServiceError{Provider: ProviderOllama, Kind: KindMalformed, Message: err.Error(), Err: err}
	}
	msg := err.Error()
	if code, ok := leadingStatus(msg); ok {
		return statusError(ProviderOllama, code, msg, err)
	}
	return &ServiceError{Provider: ProviderOllama, Kind: KindRejected, Message: msg, Err: err}
}

func leadingStatus(msg string) (int, bool) {
	if len(msg) < 3 || (len(msg) > 3 && msg[3] != ' ') {
		return 0, false
	}
	code, err := strconv.Atoi(msg[:3])
	if err != nil || code < 400 || code > 599 {
		return 0, false
	}
	return code, true
}
