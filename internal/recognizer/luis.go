// Package recognizer turns an utterance into a top intent plus typed entities.
package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leave-bot/internal/model"
)

// LUIS entity type names.
const (
	entityActionTypes  = "action_types"
	entityRequestTypes = "request_types"
	entityDateTimeV2   = "builtin.datetimeV2."
)

// LUIS calls the v2 prediction endpoint of a published LUIS application.
type LUIS struct {
	endpoint   string
	appID      string
	key        string
	httpClient *http.Client
}

func NewLUIS(endpoint, appID, key string) *LUIS {
	return &LUIS{
		endpoint:   strings.TrimRight(endpoint, "/"),
		appID:      appID,
		key:        key,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (l *LUIS) Name() string { return "luis" }

type luisResponse struct {
	Query            string `json:"query"`
	TopScoringIntent struct {
		Intent string  `json:"intent"`
		Score  float64 `json:"score"`
	} `json:"topScoringIntent"`
	Entities []luisEntity `json:"entities"`
}

type luisEntity struct {
	Entity     string `json:"entity"`
	Type       string `json:"type"`
	Resolution struct {
		Values []json.RawMessage `json:"values"`
	} `json:"resolution"`
}

type luisDateValue struct {
	Timex string `json:"timex"`
	Type  string `json:"type"`
	Value string `json:"value"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (l *LUIS) Recognize(ctx context.Context, text string) (model.RecognitionResult, error) {
	q := url.Values{}
	q.Set("subscription-key", l.key)
	q.Set("q", text)
	q.Set("verbose", "true")
	path := fmt.Sprintf("/luis/v2.0/apps/%s?%s", url.PathEscape(l.appID), q.Encode())

	var resp luisResponse
	if err := l.doJSON(ctx, path, &resp); err != nil {
		return model.RecognitionResult{}, fmt.Errorf("luis recognize: %w", err)
	}

	result := model.RecognitionResult{
		Text:      text,
		TopIntent: resp.TopScoringIntent.Intent,
		Score:     resp.TopScoringIntent.Score,
	}
	if result.TopIntent == "" {
		result.TopIntent = model.IntentNone
	}
	for _, e := range resp.Entities {
		switch {
		case e.Type == entityActionTypes:
			result.Entities.ActionTypes = append(result.Entities.ActionTypes, listValue(e))
		case e.Type == entityRequestTypes:
			result.Entities.RequestTypes = append(result.Entities.RequestTypes, listValue(e))
		case strings.HasPrefix(e.Type, entityDateTimeV2):
			result.Entities.DateTimes = append(result.Entities.DateTimes, dateTimeValue(e))
		}
	}
	return result, nil
}

// listValue prefers the canonical form of a list entity over the matched text.
func listValue(e luisEntity) string {
	for _, raw := range e.Resolution.Values {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return strings.ToLower(s)
		}
	}
	return strings.ToLower(e.Entity)
}

func dateTimeValue(e luisEntity) model.DateTimeEntity {
	d := model.DateTimeEntity{Text: e.Entity}
	for _, raw := range e.Resolution.Values {
		var v luisDateValue
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		if d.Timex == "" {
			d.Timex = v.Timex
		}
		start := v.Value
		if start == "" {
			start = v.Start
		}
		// LUIS lists past and future readings of ambiguous dates; the last one is the upcoming reading.
		if t, ok := parseLUISTime(start); ok {
			d.Start = &t
			d.End = nil
			if end, ok := parseLUISTime(v.End); ok {
				d.End = &end
			}
		}
	}
	return d
}

func parseLUISTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.DateOnly, time.DateTime} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (l *LUIS) doJSON(ctx context.Context, path string, result any) error {
	if l.endpoint == "" || l.appID == "" {
		return errors.New("luis endpoint and app id are required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
