// Package genai provides the AI botanist operations using the OpenAI API.
//
// It wraps chat completions behind a narrow interface so handlers and the
// garden store never talk to the SDK directly, and tests can substitute a
// mock service. Every call may fail; callers surface the error to the user
// without touching application state.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/izybotanic/leafwise/internal/models"
)

// Error variables for better error handling and testability
var (
	ErrNoAPIKey          = errors.New("OPENAI_API_KEY not set")
	ErrNoChoicesReturned = errors.New("no choices returned")
)

// chatService defines the minimal interface for chat completions.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Option configures GenAI client options.
type Option func(*Opts)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL sets a custom API base URL (e.g. an OpenAI-compatible proxy).
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel overrides the default chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client wraps the chat completion service for the plant-care operations.
type Client struct {
	chat  chatService
	model openai.ChatModel
}

// NewClient initializes a GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable when not set via options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		slog.Error("GenAI client API key not configured")
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.ChatModelGPT4oMini)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)
	slog.Debug("GenAI client initialized", "model", cfg.Model, "base_url_set", cfg.BaseURL != "")
	return &Client{chat: &cli.Chat.Completions, model: openai.ChatModel(cfg.Model)}, nil
}

// complete runs one chat completion and returns the first choice's text.
func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	params.Model = c.model
	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}

// imageDataURL builds the inline data URL the vision API expects.
func imageDataURL(base64Image string) string {
	if strings.HasPrefix(base64Image, "data:") {
		return base64Image
	}
	return "data:image/jpeg;base64," + base64Image
}

// extractJSON strips markdown code fences some models wrap JSON in.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

const analyzePrompt = `Analyze the image of this plant with extreme care; species identification can be difficult.

1. Primary identification: identify the species from clear visual traits (leaf shape, venation, color). Provide the scientific name and the most common popular name.
2. Confidence: rate your identification confidence as "high", "medium" or "low". Be conservative: "high" should be near-unambiguous.
3. Alternative species: when confidence is "medium" or "low", suggest one or two look-alike species with a brief reason each. Omit "alternative_species" when confidence is "high".
4. Health assessment: judge the plant's overall health.
5. Diagnosis and care: provide a detailed diagnosis, a structured care schedule with frequencies in days (fertilizing_frequency 0 when not applicable), and general tips. Include "pest_and_disease_analysis" only when pests or disease are visible.

Respond strictly as a single JSON object with this shape:
{
  "species_name": "string",
  "popular_name": "string",
  "identification_confidence": "high" | "medium" | "low",
  "alternative_species": [{"species_name": "string", "popular_name": "string", "reason": "string"}],
  "is_healthy": boolean,
  "diagnosis": {"title": "string", "description": "string"},
  "care_instructions": {"watering": "string", "sunlight": "string", "soil": "string", "fertilizer": "string"},
  "care_schedule": {"watering_frequency": number, "fertilizing_frequency": number, "pruning_schedule": "string"},
  "general_tips": ["string"],
  "pest_and_disease_analysis": {"title": "string", "description": "string", "suggested_treatment": "string"}
}`

// AnalyzePlant identifies the species in the image and produces a full
// diagnosis with a structured care schedule.
func (c *Client) AnalyzePlant(ctx context.Context, base64Image string) (models.PlantDiagnosis, error) {
	var diagnosis models.PlantDiagnosis
	if base64Image == "" {
		return diagnosis, models.ErrMissingImage
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(analyzePrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageDataURL(base64Image)}),
			}),
		},
	}
	content, err := c.complete(ctx, params)
	if err != nil {
		slog.Error("GenAI AnalyzePlant completion failed", "error", err)
		return diagnosis, fmt.Errorf("plant analysis failed: %w", err)
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &diagnosis); err != nil {
		slog.Error("GenAI AnalyzePlant returned malformed JSON", "error", err)
		return diagnosis, fmt.Errorf("failed to parse plant analysis: %w", err)
	}
	slog.Debug("GenAI AnalyzePlant succeeded", "species", diagnosis.SpeciesName, "healthy", diagnosis.IsHealthy)
	return diagnosis, nil
}

const reanalyzePromptFormat = `The user believes the plant in the image is a %q.

1. Re-examine the image: carefully compare the plant's visual traits (leaf shape, venation, stem, color) against the known traits of %q.
2. Decide:
   - If you agree the suggestion is plausible or correct, set "is_suggestion_accepted" to true, explain your agreement in "reasoning", and produce a complete "new_analysis" object for that species following the plant analysis schema (snake_case fields as in the analysis contract).
   - If you disagree, set "is_suggestion_accepted" to false, explain the visual discrepancies in "reasoning", and omit "new_analysis".

Respond strictly as a single JSON object:
{"is_suggestion_accepted": boolean, "reasoning": "string", "new_analysis": {...}}`

// ReanalyzePlant re-identifies the plant against a user-suggested species.
func (c *Client) ReanalyzePlant(ctx context.Context, base64Image, userSuggestion string) (models.ReanalysisResult, error) {
	var result models.ReanalysisResult
	if userSuggestion == "" {
		return result, models.ErrEmptySpeciesSuggest
	}

	prompt := fmt.Sprintf(reanalyzePromptFormat, userSuggestion, userSuggestion)
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageDataURL(base64Image)}),
			}),
		},
	}
	content, err := c.complete(ctx, params)
	if err != nil {
		slog.Error("GenAI ReanalyzePlant completion failed", "error", err)
		return result, fmt.Errorf("plant reanalysis failed: %w", err)
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &result); err != nil {
		slog.Error("GenAI ReanalyzePlant returned malformed JSON", "error", err)
		return result, fmt.Errorf("failed to parse reanalysis: %w", err)
	}
	slog.Debug("GenAI ReanalyzePlant succeeded", "accepted", result.IsSuggestionAccepted)
	return result, nil
}

const recommendPromptFormat = `Given the plants a user already keeps: [%s].
Recommend 3 other plants likely to thrive under similar care conditions.
For each, provide the popular name, the scientific name, and a short reason (1-2 sentences).
Respond strictly as a JSON array:
[{"popular_name": "string", "species_name": "string", "reason": "string"}]`

// Recommend suggests new plants based on the species the user already has.
func (c *Client) Recommend(ctx context.Context, speciesNames []string) ([]models.PlantRecommendation, error) {
	prompt := fmt.Sprintf(recommendPromptFormat, strings.Join(speciesNames, ", "))
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	content, err := c.complete(ctx, params)
	if err != nil {
		slog.Error("GenAI Recommend completion failed", "error", err)
		return nil, fmt.Errorf("plant recommendations failed: %w", err)
	}
	var recs []models.PlantRecommendation
	if err := json.Unmarshal([]byte(extractJSON(content)), &recs); err != nil {
		slog.Error("GenAI Recommend returned malformed JSON", "error", err)
		return nil, fmt.Errorf("failed to parse recommendations: %w", err)
	}
	return recs, nil
}

const expertSystemPrompt = "You are Izy, a friendly and experienced expert botanist. Provide clear, helpful, encouraging advice about the user's plants, accurately and in a conversational tone."

// ExpertChat answers a gardening question, replaying prior turns so the
// conversation keeps its context.
func (c *Client) ExpertChat(ctx context.Context, message string, history []models.ChatMessage) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(expertSystemPrompt))
	for _, turn := range history {
		if turn.Role == models.ChatRoleModel {
			messages = append(messages, openai.AssistantMessage(turn.Text))
		} else {
			messages = append(messages, openai.UserMessage(turn.Text))
		}
	}
	messages = append(messages, openai.UserMessage(message))

	content, err := c.complete(ctx, openai.ChatCompletionNewParams{Messages: messages})
	if err != nil {
		slog.Error("GenAI ExpertChat completion failed", "error", err)
		return "", fmt.Errorf("expert chat failed: %w", err)
	}
	return content, nil
}
