package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const anthropicVersion = "bedrock-2023-05-31"

// ErrEmptyCompletion is returned when the model answers without any text.
var ErrEmptyCompletion = errors.New("model returned no content")

// Sampling controls one completion.
type Sampling struct {
	MaxTokens   int
	Temperature float64
}

// Model completes a single-turn prompt.
type Model interface {
	Complete(ctx context.Context, prompt string, s Sampling) (string, error)
}

// InvokeModelAPI is the part of the Bedrock runtime client Bedrock uses.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock calls an Anthropic messages model hosted on Amazon Bedrock.
type Bedrock struct {
	Client  InvokeModelAPI
	ModelID string
}

// NewBedrock builds a client for region, which may differ from the region
// the rest of the stack runs in.
func NewBedrock(cfg aws.Config, region, modelID string) *Bedrock {
	client := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if region != "" {
			o.Region = region
		}
	})
	return &Bedrock{Client: client, ModelID: modelID}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
	Temperature      float64            `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (b *Bedrock) Complete(ctx context.Context, prompt string, s Sampling) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        s.MaxTokens,
		Messages:         []anthropicMessage{{Role: "user", Content: prompt}},
		Temperature:      s.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	out, err := b.Client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.ModelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("invoke model %s: %w", b.ModelID, err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Content[0].Text, nil
}
