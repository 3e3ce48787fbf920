package handler

// WebhookEvent is the payload the gateway posts for each inbound
// message. Text messages carry Text; image messages carry Media.
type WebhookEvent struct {
	Sender      string        `json:"sender"`
	ChatID      string        `json:"chatId"`
	DisplayName string        `json:"displayName"`
	Type        string        `json:"type"`
	Text        string        `json:"text,omitempty"`
	Media       *WebhookMedia `json:"media,omitempty"`
}

type WebhookMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mimeType"`
	FileName string `json:"fileName,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

const (
	eventTypeText  = "text"
	eventTypeImage = "image"
)
