package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// PushClient talks to a LINE-compatible push-messaging gateway: POST with a
// bearer channel token and a {to, messages:[{type:"text", text}]} body.
type PushClient struct {
	httpClient *http.Client
	endpoint   string
	token      string
	log        zerolog.Logger
}

type pushMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []pushMessage `json:"messages"`
}

func NewPushClient(endpoint, token string, log zerolog.Logger) *PushClient {
	return &PushClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   endpoint,
		token:      token,
		log:        log,
	}
}

// Push sends one text message to the given user identifier. A non-2xx
// gateway response is an error; callers treat delivery failure as non-fatal.
func (c *PushClient) Push(ctx context.Context, to, text string) error {
	body, err := json.Marshal(pushRequest{
		To:       to,
		Messages: []pushMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push to gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, snippet)
	}
	c.log.Debug().Str("to", to).Msg("push message delivered")
	return nil
}
