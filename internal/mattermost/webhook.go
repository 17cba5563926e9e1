package mattermost

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
)

// OutgoingWebhook is the payload Mattermost sends for an outgoing webhook.
// It arrives either form encoded or as JSON, depending on the hook's content type.
type OutgoingWebhook struct {
	Token       string `json:"token"`
	TeamID      string `json:"team_id"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	PostID      string `json:"post_id"`
	Text        string `json:"text"`
	TriggerWord string `json:"trigger_word"`
}

// ParseOutgoingWebhook reads the webhook payload from r.
func ParseOutgoingWebhook(r *http.Request) (*OutgoingWebhook, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var hook OutgoingWebhook
		if err := json.NewDecoder(r.Body).Decode(&hook); err != nil {
			return nil, fmt.Errorf("decode webhook: %w", err)
		}
		return &hook, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse webhook form: %w", err)
	}
	return &OutgoingWebhook{
		Token:       r.FormValue("token"),
		TeamID:      r.FormValue("team_id"),
		ChannelID:   r.FormValue("channel_id"),
		ChannelName: r.FormValue("channel_name"),
		UserID:      r.FormValue("user_id"),
		UserName:    r.FormValue("user_name"),
		PostID:      r.FormValue("post_id"),
		Text:        r.FormValue("text"),
		TriggerWord: r.FormValue("trigger_word"),
	}, nil
}
