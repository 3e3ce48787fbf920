package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fotolote/intake-bot-go/internal/model"
	"github.com/fotolote/intake-bot-go/internal/report"
	"github.com/fotolote/intake-bot-go/internal/roster"
	"github.com/fotolote/intake-bot-go/internal/transport"
)

const msgDownloadFailed = "Erro ao baixar a foto. Tente novamente."

// Dispatcher is the piece of the session machine the webhook needs.
type Dispatcher interface {
	HandlePhoto(identity, chatID, displayName, fileName string, content []byte, caption string)
	HandleText(identity, chatID, displayName, text string)
}

// Limiter gates how many messages a single sender may deliver per minute.
type Limiter interface {
	Allow(ctx context.Context, sender string) bool
}

type WebhookHandler struct {
	dispatcher Dispatcher
	roster     *roster.Roster
	downloader transport.Downloader
	sender     transport.Sender
	limiter    Limiter
	reports    report.Logger
}

func NewWebhookHandler(
	dispatcher Dispatcher,
	r *roster.Roster,
	downloader transport.Downloader,
	sender transport.Sender,
	limiter Limiter,
	reports report.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
		roster:     r,
		downloader: downloader,
		sender:     sender,
		limiter:    limiter,
		reports:    reports,
	}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var event WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		log.Warn().Err(err).Msg("webhook: invalid payload")
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid JSON body",
		})
		return
	}

	if event.Sender == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Missing sender",
		})
		return
	}

	if event.ChatID == "" {
		event.ChatID = event.Sender
	}

	if h.limiter != nil && !h.limiter.Allow(r.Context(), event.Sender) {
		log.Warn().Str("sender", event.Sender).Msg("webhook: sender rate limited, dropping message")
		writeJSON(w, http.StatusOK, map[string]string{"status": "dropped"})
		return
	}

	if !h.roster.Allowed(event.Sender) {
		log.Info().Str("sender", event.Sender).Msg("webhook: sender not in roster, ignoring")
		if h.reports != nil {
			h.reports.LogActivity(r.Context(), model.CreateActivityParams{
				Type:   model.ActivityRejectedSender,
				Sender: event.Sender,
			})
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	displayName := h.roster.DisplayName(event.Sender)
	if displayName == "" {
		displayName = event.DisplayName
	}

	switch event.Type {
	case eventTypeImage:
		h.handleImage(r.Context(), event, displayName)
	case eventTypeText:
		h.dispatcher.HandleText(event.Sender, event.ChatID, displayName, event.Text)
	default:
		log.Debug().Str("type", event.Type).Msg("webhook: unsupported event type, ignoring")
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) handleImage(ctx context.Context, event WebhookEvent, displayName string) {
	if event.Media == nil || event.Media.ID == "" {
		log.Warn().Str("sender", event.Sender).Msg("webhook: image event without media")
		return
	}

	content, mimeType, err := h.downloader.Download(ctx, event.Media.ID)
	if err != nil {
		log.Error().Err(err).Str("mediaId", event.Media.ID).Msg("webhook: media download failed")
		if sendErr := h.sender.SendText(ctx, event.ChatID, msgDownloadFailed); sendErr != nil {
			log.Error().Err(sendErr).Msg("webhook: failed to notify sender of download error")
		}
		return
	}

	fileName := event.Media.FileName
	if fileName == "" {
		fileName = event.Media.ID + extensionFor(mimeType)
	}

	h.dispatcher.HandlePhoto(event.Sender, event.ChatID, displayName, fileName, content, event.Media.Caption)
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
