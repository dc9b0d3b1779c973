// Package openaix implements speech-to-text and transcript analysis on top
// of the OpenAI API (Whisper transcription and JSON-mode chat completions).
package openaix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dmitrijs2005/mindwell/internal/logging"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// ErrEmptyResponse is returned when the provider answers without content.
var ErrEmptyResponse = errors.New("empty provider response")

// Options configures the OpenAI client.
type Options struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	AnalysisModel      string
	// Language is the ISO-639-1 hint passed to transcription.
	Language   string
	MaxRetries int
}

// Client talks to OpenAI. It is safe for concurrent use.
type Client struct {
	api    openai.Client
	opts   Options
	logger logging.Logger
}

func NewClient(opts Options, logger logging.Logger) *Client {
	reqOpts := []option.RequestOption{option.WithMaxRetries(opts.MaxRetries)}
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &Client{
		api:    openai.NewClient(reqOpts...),
		opts:   opts,
		logger: logger.With("module", "openai"),
	}
}

// Transcribe converts speech to text.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename, contentType string) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(audio, filename, contentType),
		Model: openai.AudioModel(c.opts.TranscriptionModel),
	}
	if c.opts.Language != "" {
		params.Language = openai.String(c.opts.Language)
	}

	res, err := c.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}

	text := strings.TrimSpace(res.Text)
	c.logger.Debug(ctx, "transcription finished", "chars", len(text))
	return text, nil
}

const sentimentPrompt = `You analyse short personal voice journal entries written in Portuguese.
Reply with a JSON object {"sentiment": "positive"|"neutral"|"negative", "score": number between -1 and 1, "emotions": [up to 5 lowercase english emotion words]}.`

const categoryPrompt = `Classify the personal journal entry into exactly one category from:
work, relationships, family, health, sleep, anxiety, gratitude, self-care, other.
Reply with a JSON object {"category": "<category>"}.`

const titlePrompt = `Write a short title (at most 6 words, same language as the entry) for the personal journal entry.
Reply with a JSON object {"title": "<title>"}.`

// AnalyzeSentiment classifies the overall sentiment and the dominant emotions.
func (c *Client) AnalyzeSentiment(ctx context.Context, transcript string) (*models.Sentiment, error) {
	var out models.Sentiment
	if err := c.completeJSON(ctx, sentimentPrompt, transcript, &out); err != nil {
		return nil, err
	}
	normalizeSentiment(&out)
	return &out, nil
}

// Categorize assigns the transcript to a journal category.
func (c *Client) Categorize(ctx context.Context, transcript string) (string, error) {
	var out struct {
		Category string `json:"category"`
	}
	if err := c.completeJSON(ctx, categoryPrompt, transcript, &out); err != nil {
		return "", err
	}
	category := strings.ToLower(strings.TrimSpace(out.Category))
	if _, ok := knownCategories[category]; !ok {
		category = "other"
	}
	return category, nil
}

// GenerateTitle produces a short headline for the entry.
func (c *Client) GenerateTitle(ctx context.Context, transcript string) (string, error) {
	var out struct {
		Title string `json:"title"`
	}
	if err := c.completeJSON(ctx, titlePrompt, transcript, &out); err != nil {
		return "", err
	}
	title := strings.Trim(strings.TrimSpace(out.Title), `"`)
	if title == "" {
		return "", ErrEmptyResponse
	}
	return title, nil
}

func (c *Client) completeJSON(ctx context.Context, system, user string, dst any) error {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.opts.AnalysisModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), dst); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	return nil
}

var knownCategories = map[string]struct{}{
	"work": {}, "relationships": {}, "family": {}, "health": {}, "sleep": {},
	"anxiety": {}, "gratitude": {}, "self-care": {}, "other": {},
}

func normalizeSentiment(s *models.Sentiment) {
	s.Score = math.Max(-1, math.Min(1, s.Score))

	label := strings.ToLower(strings.TrimSpace(s.Label))
	switch label {
	case models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative:
	default:
		switch {
		case s.Score > 0.2:
			label = models.SentimentPositive
		case s.Score < -0.2:
			label = models.SentimentNegative
		default:
			label = models.SentimentNeutral
		}
	}
	s.Label = label

	seen := make(map[string]struct{}, len(s.Emotions))
	emotions := make([]string, 0, len(s.Emotions))
	for _, e := range s.Emotions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		emotions = append(emotions, e)
		if len(emotions) == 5 {
			break
		}
	}
	s.Emotions = emotions
}
