package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	sendTimeout     = 15 * time.Second
	downloadTimeout = 60 * time.Second

	// Media larger than this is rejected on download.
	maxMediaBytes = 32 << 20
)

// Client implements Sender and Downloader over the gateway's HTTP JSON API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: downloadTimeout},
	}
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.httpClient.Do(req)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %s: %s", resp.Status, detail)
	}

	return nil
}

func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	return c.postJSON(ctx, "/v1/messages", map[string]string{
		"chatId": chatID,
		"text":   text,
	})
}

func (c *Client) SendImage(ctx context.Context, chatID, fileName string, content []byte) error {
	return c.postJSON(ctx, "/v1/messages", map[string]string{
		"chatId":   chatID,
		"fileName": fileName,
		"media":    base64.StdEncoding.EncodeToString(content),
	})
}

func (c *Client) Download(ctx context.Context, mediaID string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/media/"+mediaID, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download media: gateway returned %s", resp.Status)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read media: %w", err)
	}
	if len(content) > maxMediaBytes {
		return nil, "", fmt.Errorf("media exceeds %d bytes", maxMediaBytes)
	}

	mime := resp.Header.Get("Content-Type")
	log.Debug().Str("mediaId", mediaID).Int("bytes", len(content)).Str("mime", mime).Msg("media downloaded")
	return content, mime, nil
}
