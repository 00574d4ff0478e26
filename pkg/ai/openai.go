package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dojo",
		Subsystem: "ai",
		Name:      "draft_duration_seconds",
		Help:      "Duration of AI feedback draft requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dojo",
		Subsystem: "ai",
		Name:      "draft_failures_total",
		Help:      "Number of AI feedback draft failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI assistant.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIAssistant implements Assistant against the OpenAI chat completion API.
type OpenAIAssistant struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIAssistant builds a new assistant using the provided configuration.
func NewOpenAIAssistant(cfg OpenAIConfig) (*OpenAIAssistant, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	tracer := otel.Tracer("github.com/noah-isme/dojo-go-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIAssistant{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// DraftFeedback sends the draft request to OpenAI and parses the response.
func (a *OpenAIAssistant) DraftFeedback(parent context.Context, input DraftInput) (DraftResult, error) {
	ctx, span := a.tracer.Start(parent, "openai.draft_feedback", trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: draftSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildDraftPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := a.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	aiDuration.WithLabelValues(a.cfg.Model).Observe(duration.Seconds())
	if err != nil {
		aiFailures.WithLabelValues(a.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return DraftResult{}, fmt.Errorf("openai draft feedback: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(a.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return DraftResult{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := parseDraftResponse(content)
	if err != nil {
		aiFailures.WithLabelValues(a.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return DraftResult{}, err
	}

	result.Provider = "openai"
	result.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}

	return result, nil
}

func draftSystemPrompt() string {
	return "You are a teaching assistant drafting feedback on a student's coding submission. Respond with a JSON object contai" +
		"ning text (the feedback draft, 2-5 sentences, encouraging but specific) and tone. Point at concrete lines or behaviours, never rewrite the solution for the student."
}

func buildDraftPrompt(input DraftInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Task\n")
	builder.WriteString(input.TaskTitle)
	builder.WriteString("\n\n## Description\n")
	builder.WriteString(input.TaskDescription)
	builder.WriteString("\n\n## Submission\n")
	builder.WriteString(input.Code)
	builder.WriteString("\n\n## Test Output\n")
	builder.WriteString(input.Output)
	if input.Passed {
		builder.WriteString("\n\nThe tests passed.")
	} else {
		builder.WriteString("\n\nThe tests failed.")
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseDraftResponse(content string) (DraftResult, error) {
	type payload struct {
		Text string `json:"text"`
		Tone string `json:"tone"`
	}

	var data payload
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return DraftResult{}, fmt.Errorf("parse draft json: %w", err)
	}

	if strings.TrimSpace(data.Text) == "" {
		return DraftResult{}, fmt.Errorf("empty draft returned")
	}

	return DraftResult{
		Text: data.Text,
		Tone: data.Tone,
	}, nil
}
