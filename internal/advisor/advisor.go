// Package advisor turns a risk assessment into an energy transition
// roadmap request for a language model.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

const defaultModel = shared.ResponsesModel("gpt-4.1-mini")

var (
	// ErrMissingAPIKey is returned when no OpenAI key was configured
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

	errEmptyResponse = errors.New("model returned an empty response")
)

// Advisor generates roadmap text for a prompt
type Advisor interface {
	Roadmap(ctx context.Context, prompt string) (string, error)
}

// OpenAI is a thin wrapper around the OpenAI responses client
type OpenAI struct {
	client *openai.Client
	model  shared.ResponsesModel
}

// NewOpenAI builds an advisor for apiKey. An empty model uses the default.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	m := defaultModel
	if model != "" {
		m = shared.ResponsesModel(model)
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAI{client: &client, model: m}, nil
}

// Roadmap sends prompt to the Responses API and returns the answer text
func (a *OpenAI) Roadmap(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: a.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(systemPrompt, responses.EasyInputMessageRoleSystem),
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("call OpenAI: %w", err)
	}

	output := strings.TrimSpace(resp.OutputText())
	if output == "" {
		return "", errEmptyResponse
	}
	return output, nil
}
