// Package gemini implements integration with Google's Gemini API for
// tone classification, empathetic response generation, legal guidance,
// and conversation memory extraction. Every operation degrades to a
// deterministic fallback when the service is unconfigured or fails, so
// lifecycle transitions never block on the AI.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/bridgeline/bridgeline/internal/apperr"
	"github.com/bridgeline/bridgeline/internal/config"
	"github.com/bridgeline/bridgeline/internal/database"
)

// Client defines the AI operations used by the engine and the transport
// layer. Failures degrade to deterministic fallbacks inside the client,
// never to errors at the call site.
type Client interface {
	// ClassifyTone classifies the emotional tone of text. It returns
	// Calm on any internal failure and never propagates an error.
	ClassifyTone(ctx context.Context, text string) database.Tone

	// GenerateResponse produces an empathetic reply, falling back to a
	// fixed supportive sentence on failure.
	GenerateResponse(ctx context.Context, message string, tone database.Tone, extra map[string]string) string

	// LegalGuidance answers a legal question, falling back to a referral
	// line on failure.
	LegalGuidance(ctx context.Context, question string) string

	// ExtractMemory distills 2-3 key points from a conversation.
	ExtractMemory(ctx context.Context, conversation []string) []string

	// Configured reports whether a real API key is in use.
	Configured() bool
}

type sdkClient struct {
	genaiClient      *genai.Client
	log              *slog.Logger
	contentConfig    *genai.GenerateContentConfig
	defaultModelName string
	maxRetries       int
	retryDelay       time.Duration
	limiter          *rate.Limiter
}

// NewClient creates a new Gemini client with the provided configuration.
// An empty API key yields a client that serves fallbacks only; the
// engine still runs without AI credentials.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (Client, error) {
	logger := log.With("component", "gemini_client")

	c := &sdkClient{
		log:              logger,
		defaultModelName: cfg.ModelName,
		maxRetries:       cfg.MaxRetries,
		retryDelay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
		limiter:          rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}

	if cfg.APIKey == "" {
		logger.Warn("Gemini API key not set, serving deterministic fallbacks only")
		return c, nil
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.genaiClient = gi

	c.contentConfig = &genai.GenerateContentConfig{
		Temperature: &cfg.Temperature,
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}

	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return c, nil
}

func (c *sdkClient) Configured() bool {
	return c.genaiClient != nil
}

func (c *sdkClient) generate(ctx context.Context, prompt string) (string, error) {
	if c.genaiClient == nil {
		return "", errors.New("gemini client not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var resp *genai.GenerateContentResponse
	var err error
	for i := 0; i <= c.maxRetries; i++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, c.defaultModelName, contents, c.contentConfig)
		if err == nil {
			break
		}

		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) && i < c.maxRetries {
			c.log.WarnContext(ctx, "Gemini API call failed, retrying",
				"attempt", i+1, "max_retries", c.maxRetries, "code", apiErr.Code)
			time.Sleep(c.retryDelay)
			continue
		}
		return "", apperr.NewDegraded("gemini API call failed", err)
	}
	if err != nil {
		return "", apperr.NewDegraded(fmt.Sprintf("gemini API call failed after %d retries", c.maxRetries), err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		return "", fmt.Errorf("gemini request blocked by safety filter: %s", reason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini returned empty content")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}

// ParseTone maps free-form classifier output onto the tone enum,
// defaulting to Calm for anything unrecognized.
func ParseTone(raw string) database.Tone {
	switch {
	case strings.Contains(raw, string(database.ToneDistressed)):
		return database.ToneDistressed
	case strings.Contains(raw, string(database.ToneAnxious)):
		return database.ToneAnxious
	default:
		return database.ToneCalm
	}
}

func (c *sdkClient) ClassifyTone(ctx context.Context, text string) database.Tone {
	raw, err := c.generate(ctx, fmt.Sprintf(TonePromptTemplate, text))
	if err != nil {
		c.log.WarnContext(ctx, "Tone classification degraded to Calm", "error", err)
		return database.ToneCalm
	}
	return ParseTone(raw)
}

func (c *sdkClient) GenerateResponse(ctx context.Context, message string, tone database.Tone, extra map[string]string) string {
	var contextStr string
	if len(extra) > 0 {
		var sb strings.Builder
		sb.WriteString(" Context:")
		for k, v := range extra {
			sb.WriteString(fmt.Sprintf(" %s=%s;", k, v))
		}
		contextStr = sb.String()
	}

	reply, err := c.generate(ctx, fmt.Sprintf(ResponsePromptTemplate, tone, contextStr, message))
	if err != nil {
		c.log.WarnContext(ctx, "Response generation degraded to fallback", "error", err)
		return FallbackResponse
	}
	return reply
}

func (c *sdkClient) LegalGuidance(ctx context.Context, question string) string {
	reply, err := c.generate(ctx, fmt.Sprintf(LegalPromptTemplate, question))
	if err != nil {
		c.log.WarnContext(ctx, "Legal guidance degraded to fallback", "error", err)
		return FallbackLegal
	}
	return reply
}

// ParseMemoryLines splits extractor output into trimmed, non-empty
// points, stripping any leading list markers the model added anyway.
func ParseMemoryLines(raw string) []string {
	var points []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. ")
		if line != "" {
			points = append(points, line)
		}
	}
	return points
}

func (c *sdkClient) ExtractMemory(ctx context.Context, conversation []string) []string {
	raw, err := c.generate(ctx, fmt.Sprintf(MemoryPromptTemplate, strings.Join(conversation, "\n")))
	if err != nil {
		c.log.WarnContext(ctx, "Memory extraction degraded to fallback", "error", err)
		return FallbackMemory
	}

	points := ParseMemoryLines(raw)
	if len(points) == 0 {
		return FallbackMemory
	}
	return points
}
