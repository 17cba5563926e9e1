package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"leave-bot/internal/model"
)

const classifyPrompt = `You classify messages sent to an employee leave bot.
Reply with one JSON object and nothing else:
{"intent": string, "score": number, "action_types": [string], "request_types": [string], "dates": [{"text": string, "start": "YYYY-MM-DD", "end": "YYYY-MM-DD"}]}
intent is one of "Greeting", "Introduction", "Upcoming Holidays", "leave_requests", "None".
action_types holds "apply" when the user wants to request leave and "show" when they want to see requests they made.
request_types holds the kind of leave mentioned, e.g. "leave" or "sick".
dates lists date expressions found in the message, resolved against today (%s). Omit end for a single day.`

// OpenAI classifies utterances with a chat completion model in JSON mode.
type OpenAI struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

func NewOpenAI(client *openai.Client, model string) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{client: client, model: model, now: time.Now}
}

// NewOpenAIFromKey builds a client for the public API.
func NewOpenAIFromKey(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	return NewOpenAI(openai.NewClient(apiKey), model), nil
}

func (o *OpenAI) Name() string { return "openai" }

type llmClassification struct {
	Intent       string   `json:"intent"`
	Score        float64  `json:"score"`
	ActionTypes  []string `json:"action_types"`
	RequestTypes []string `json:"request_types"`
	Dates        []struct {
		Text  string `json:"text"`
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"dates"`
}

func (o *OpenAI) Recognize(ctx context.Context, text string) (model.RecognitionResult, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(classifyPrompt, o.now().Format(time.DateOnly))},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0,
	})
	if err != nil {
		return model.RecognitionResult{}, fmt.Errorf("openai recognize: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.RecognitionResult{}, errors.New("openai recognize: empty response")
	}

	var c llmClassification
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &c); err != nil {
		return model.RecognitionResult{}, fmt.Errorf("openai recognize: decode classification: %w", err)
	}

	result := model.RecognitionResult{
		Text:      text,
		TopIntent: normalizeIntent(c.Intent),
		Score:     c.Score,
		Entities: model.Entities{
			ActionTypes:  lowerAll(c.ActionTypes),
			RequestTypes: lowerAll(c.RequestTypes),
		},
	}
	for _, d := range c.Dates {
		e := model.DateTimeEntity{Text: d.Text}
		if t, ok := parseLUISTime(d.Start); ok {
			e.Start = &t
		}
		if t, ok := parseLUISTime(d.End); ok {
			e.End = &t
		}
		result.Entities.DateTimes = append(result.Entities.DateTimes, e)
	}
	return result, nil
}

var knownIntents = []string{
	model.IntentGreeting,
	model.IntentIntroduction,
	model.IntentHolidays,
	model.IntentLeaveRequests,
	model.IntentNone,
}

// normalizeIntent maps free-form model output onto the known labels.
func normalizeIntent(s string) string {
	for _, known := range knownIntents {
		if strings.EqualFold(strings.TrimSpace(s), known) {
			return known
		}
	}
	return model.IntentNone
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
