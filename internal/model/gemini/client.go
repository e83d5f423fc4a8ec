// File: internal/model/gemini/client.go

// Package gemini adapts the Gemini API to the provider-agnostic model
// contract. It is the only package that sees genai wire types; the turn loop
// and runner work entirely in terms of api/schemas.
package gemini

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
	"github.com/kestrelqa/kestrel-cli/internal/config"
)

// Client drives a Gemini computer-use model. It implements
// schemas.ModelClient.
type Client struct {
	client     *genai.Client
	model      string
	apiTimeout time.Duration
	logger     *zap.Logger
}

var _ schemas.ModelClient = (*Client)(nil)

// NewClient builds a Gemini client from the model config. The API key is
// required; a missing key fails here rather than on the first turn.
func NewClient(ctx context.Context, cfg config.ModelConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is not set (export GEMINI_API_KEY)")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	return &Client{
		client:     gc,
		model:      cfg.Name,
		apiTimeout: cfg.APITimeout,
		logger:     logger.Named("gemini").With(zap.String("model", cfg.Name)),
	}, nil
}

// GenerateTurn runs one model invocation over the conversation and maps the
// response back to the provider-agnostic turn shape.
func (c *Client) GenerateTurn(ctx context.Context, req schemas.ModelRequest) (*schemas.ModelTurn, error) {
	contents, err := toContents(req.Conversation)
	if err != nil {
		return nil, err
	}

	genCfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{ComputerUse: &genai.ComputerUse{Environment: genai.EnvironmentBrowser}},
		},
	}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxOutputTokens)
	}

	opCtx := ctx
	if c.apiTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, c.apiTimeout)
		defer cancel()
	}

	resp, err := c.client.Models.GenerateContent(opCtx, c.model, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	turn, err := fromResponse(resp)
	if err != nil {
		return nil, err
	}
	turn.Usage.Model = c.model

	c.logger.Debug("Model turn complete",
		zap.Int("parts", len(turn.Parts)),
		zap.Int("input_tokens", turn.Usage.InputTokens),
		zap.Int("output_tokens", turn.Usage.OutputTokens))
	return turn, nil
}

// Close releases client resources. The underlying HTTP client needs no
// explicit teardown.
func (c *Client) Close() error { return nil }

// toContents maps the conversation history to genai wire contents.
func toContents(msgs []schemas.Message) ([]*genai.Content, error) {
	out := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		content := &genai.Content{Role: string(toRole(msg.Role))}
		for _, part := range msg.Parts {
			p, err := toPart(part)
			if err != nil {
				return nil, err
			}
			content.Parts = append(content.Parts, p)
		}
		if len(content.Parts) == 0 {
			continue
		}
		out = append(out, content)
	}
	return out, nil
}

func toRole(r schemas.Role) genai.Role {
	if r == schemas.RoleAgent {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func toPart(part schemas.Part) (*genai.Part, error) {
	switch part.Kind {
	case schemas.PartText:
		return genai.NewPartFromText(part.Text), nil

	case schemas.PartImage:
		if part.Image == nil || len(part.Image.PNG) == 0 {
			return genai.NewPartFromText("[screenshot unavailable]"), nil
		}
		return genai.NewPartFromBytes(part.Image.PNG, "image/png"), nil

	case schemas.PartActionCall:
		if part.Call == nil {
			return nil, fmt.Errorf("gemini: action call part without a call")
		}
		return &genai.Part{FunctionCall: &genai.FunctionCall{
			Name: string(part.Call.Name),
			Args: part.Call.Args,
		}}, nil

	case schemas.PartActionResult:
		if part.Result == nil {
			return nil, fmt.Errorf("gemini: action result part without a result")
		}
		return toFunctionResponsePart(part.Result), nil

	default:
		return nil, fmt.Errorf("gemini: unknown part kind %q", part.Kind)
	}
}

// toFunctionResponsePart encodes an action result as a function response:
// the auxiliary state in the response map, the post-action screenshot as an
// inline blob.
func toFunctionResponsePart(r *schemas.ActionResult) *genai.Part {
	response := map[string]any{"url": r.URL}
	if r.Outcome != "" {
		response["output"] = r.Outcome
	}
	if r.Screenshot == nil && r.ScreenshotNote != "" {
		response["screenshot"] = r.ScreenshotNote
	}

	fr := &genai.FunctionResponse{
		Name:     string(r.Name),
		Response: response,
	}
	if r.Screenshot != nil && len(r.Screenshot.PNG) > 0 {
		fr.Parts = []*genai.FunctionResponsePart{
			{InlineData: &genai.FunctionResponseBlob{
				MIMEType: "image/png",
				Data:     r.Screenshot.PNG,
			}},
		}
	}
	return &genai.Part{FunctionResponse: fr}
}

// fromResponse maps a generate-content response to a model turn, preserving
// part order.
func fromResponse(resp *genai.GenerateContentResponse) (*schemas.ModelTurn, error) {
	turn := &schemas.ModelTurn{}

	if resp.UsageMetadata != nil {
		turn.Usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		turn.Usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: response contained no candidates")
	}

	for _, p := range resp.Candidates[0].Content.Parts {
		switch {
		case p.FunctionCall != nil:
			turn.Parts = append(turn.Parts, schemas.ModelPart{
				Call: &schemas.ActionRequest{
					Name: schemas.ActionName(p.FunctionCall.Name),
					Args: p.FunctionCall.Args,
				},
			})
		case p.Text != "":
			turn.Parts = append(turn.Parts, schemas.ModelPart{Text: p.Text})
		}
	}
	return turn, nil
}
