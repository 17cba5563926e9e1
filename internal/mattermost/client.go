package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leave-bot/internal/model"
)

type Client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
}

func NewClient(baseURL, botToken string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		botToken:   botToken,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Post represents a Mattermost post.
type Post struct {
	ID        string `json:"id,omitempty"`
	ChannelID string `json:"channel_id"`
	RootID    string `json:"root_id,omitempty"`
	Message   string `json:"message"`
	Props     Props  `json:"props,omitempty"`
}

// Props holds post properties including attachments.
type Props struct {
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a Mattermost message attachment.
type Attachment struct {
	Fallback string `json:"fallback,omitempty"`
	Text     string `json:"text,omitempty"`
	Color    string `json:"color,omitempty"`
}

const cardColor = "#1f6feb"

// PostFromReply renders a bot reply as a post. A card becomes one
// attachment holding its lines.
func PostFromReply(channelID string, r model.Reply) *Post {
	p := &Post{ChannelID: channelID, Message: r.Text}
	if r.Card != nil && len(r.Card.Lines) > 0 {
		body := strings.Join(r.Card.Lines, "\n")
		p.Props.Attachments = []Attachment{{Fallback: body, Text: body, Color: cardColor}}
	}
	return p
}

// CreatePost creates a new post in a channel.
func (c *Client) CreatePost(ctx context.Context, post *Post) (*Post, error) {
	var result Post
	if err := c.doJSON(ctx, http.MethodPost, "/api/v4/posts", post, &result); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &result, nil
}

// Me returns the bot user's id. It doubles as a token check at startup.
func (c *Client) Me(ctx context.Context) (string, error) {
	var user struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v4/users/me", nil, &user); err != nil {
		return "", fmt.Errorf("get bot user: %w", err)
	}
	return user.ID, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
