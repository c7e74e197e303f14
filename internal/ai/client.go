package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/notebell/notebell/internal/models"
)

type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Schedule is the structured result of parsing a natural-language
// reminder description.
type Schedule struct {
	Title      string        `json:"title"`
	TriggerAt  string        `json:"trigger_at"` // YYYY-MM-DD HH:MM, local time
	Repeat     models.Repeat `json:"repeat"`
	Confidence float64       `json:"confidence"`
}

// TriggerTime resolves the parsed trigger in loc.
func (s *Schedule) TriggerTime(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", s.TriggerAt, loc)
}

const systemPromptTemplate = `You turn natural-language reminder requests into a structured schedule.

Current time: %s

Rules:
1. Resolve relative times ("tomorrow", "in 3 hours", "next Monday") against the current time and output trigger_at in YYYY-MM-DD HH:MM format.
2. repeat.kind is one of: none, daily, weekly, monthly, custom. interval defaults to 1. weekly requires weekdays (0=Sunday .. 6=Saturday). custom requires unit (minutes, days, weeks, months).
3. title is a short imperative summary of what to remind about.
4. confidence is your 0..1 estimate that the parse matches the request.`

var scheduleSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"title": {
			"type": "string",
			"description": "Short summary of what to remind about"
		},
		"trigger_at": {
			"type": "string",
			"description": "First occurrence, YYYY-MM-DD HH:MM in the user's local time"
		},
		"repeat": {
			"type": "object",
			"properties": {
				"kind": {
					"type": "string",
					"enum": ["none", "daily", "weekly", "monthly", "custom"]
				},
				"interval": {
					"type": "integer",
					"minimum": 1
				},
				"weekdays": {
					"type": "array",
					"items": {"type": "integer", "minimum": 0, "maximum": 6}
				},
				"unit": {
					"type": "string",
					"enum": ["minutes", "days", "weeks", "months"]
				}
			},
			"required": ["kind"],
			"additionalProperties": false
		},
		"confidence": {
			"type": "number",
			"minimum": 0,
			"maximum": 1
		}
	},
	"required": ["title", "trigger_at", "repeat", "confidence"],
	"additionalProperties": false
}`)

// ParseSchedule turns free-form text like "water the plants every 2
// weeks on Thursday at 9am" into a Schedule.
func (c *Client) ParseSchedule(ctx context.Context, text string, now time.Time) (*Schedule, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(systemPromptTemplate, now.Format("2006-01-02 15:04 (Monday)")),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "schedule",
				Schema: scheduleSchema,
				Strict: true,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call AI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from AI")
	}
	return DecodeSchedule(resp.Choices[0].Message.Content)
}

// DecodeSchedule parses and normalizes the model's JSON output.
func DecodeSchedule(content string) (*Schedule, error) {
	schedule := &Schedule{}
	if err := json.Unmarshal([]byte(content), schedule); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	schedule.Repeat = schedule.Repeat.Normalize()
	return schedule, nil
}
