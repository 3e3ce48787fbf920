// Package transport talks to the chat gateway: outbound text and image
// sends plus media downloads. Inbound traffic arrives through the webhook
// handler, not here.
package transport

import "context"

// Sender is the outbound half of the gateway, abstracted so the session
// machine can be exercised with a recording fake.
type Sender interface {
	SendText(ctx context.Context, chatID, text string) error
	SendImage(ctx context.Context, chatID, fileName string, content []byte) error
}

// Downloader fetches media referenced by inbound messages.
type Downloader interface {
	// Download returns the media content and its mime type.
	Download(ctx context.Context, mediaID string) ([]byte, string, error)
}
