package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fotolote/intake-bot-go/internal/model"
	"github.com/fotolote/intake-bot-go/internal/roster"
)

type fakeDispatcher struct {
	photos []string
	texts  []string
	names  []string
}

func (d *fakeDispatcher) HandlePhoto(identity, chatID, displayName, fileName string, content []byte, caption string) {
	d.photos = append(d.photos, fileName)
	d.names = append(d.names, displayName)
}

func (d *fakeDispatcher) HandleText(identity, chatID, displayName, text string) {
	d.texts = append(d.texts, text)
	d.names = append(d.names, displayName)
}

type fakeDownloader struct {
	content []byte
	mime    string
	err     error
}

func (d *fakeDownloader) Download(ctx context.Context, mediaID string) ([]byte, string, error) {
	return d.content, d.mime, d.err
}

type fakeSender struct {
	texts []string
}

func (s *fakeSender) SendText(ctx context.Context, chatID, text string) error {
	s.texts = append(s.texts, text)
	return nil
}

func (s *fakeSender) SendImage(ctx context.Context, chatID, fileName string, content []byte) error {
	return nil
}

type fakeLimiter struct {
	allow bool
}

func (l *fakeLimiter) Allow(ctx context.Context, sender string) bool {
	return l.allow
}

type fakeReports struct {
	activities []model.CreateActivityParams
}

func (r *fakeReports) LogActivity(ctx context.Context, params model.CreateActivityParams) {
	r.activities = append(r.activities, params)
}

func openRoster(t *testing.T) *roster.Roster {
	t.Helper()
	return roster.New("", true)
}

func namedRoster(t *testing.T) *roster.Roster {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\"5511999990000\": Maria\n"), 0o644))
	r := roster.New(path, false)
	require.NoError(t, r.Load())
	return r
}

func postEvent(t *testing.T, h *WebhookHandler, event WebhookEvent) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestWebhookHandler(t *testing.T) {
	t.Run("rejects invalid json", func(t *testing.T) {
		h := NewWebhookHandler(&fakeDispatcher{}, openRoster(t), &fakeDownloader{}, &fakeSender{}, nil, nil)

		req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		h.Handle(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("dispatches text to the session machine", func(t *testing.T) {
		d := &fakeDispatcher{}
		h := NewWebhookHandler(d, openRoster(t), &fakeDownloader{}, &fakeSender{}, nil, nil)

		rec := postEvent(t, h, WebhookEvent{
			Sender: "5511999990000",
			Type:   eventTypeText,
			Text:   "oi",
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"oi"}, d.texts)
	})

	t.Run("downloads media and dispatches photo", func(t *testing.T) {
		d := &fakeDispatcher{}
		dl := &fakeDownloader{content: []byte("jpeg-bytes"), mime: "image/jpeg"}
		h := NewWebhookHandler(d, openRoster(t), dl, &fakeSender{}, nil, nil)

		rec := postEvent(t, h, WebhookEvent{
			Sender: "5511999990000",
			Type:   eventTypeImage,
			Media:  &WebhookMedia{ID: "media-1", MimeType: "image/jpeg", Caption: "2025000001"},
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"media-1.jpg"}, d.photos)
	})

	t.Run("notifies sender when download fails", func(t *testing.T) {
		d := &fakeDispatcher{}
		s := &fakeSender{}
		dl := &fakeDownloader{err: errors.New("gateway unavailable")}
		h := NewWebhookHandler(d, openRoster(t), dl, s, nil, nil)

		rec := postEvent(t, h, WebhookEvent{
			Sender: "5511999990000",
			Type:   eventTypeImage,
			Media:  &WebhookMedia{ID: "media-1", MimeType: "image/jpeg"},
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, d.photos)
		assert.Equal(t, []string{msgDownloadFailed}, s.texts)
	})

	t.Run("ignores senders outside the roster and logs the rejection", func(t *testing.T) {
		d := &fakeDispatcher{}
		r := &fakeReports{}
		h := NewWebhookHandler(d, namedRoster(t), &fakeDownloader{}, &fakeSender{}, nil, r)

		rec := postEvent(t, h, WebhookEvent{
			Sender: "5511888880000",
			Type:   eventTypeText,
			Text:   "oi",
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, d.texts)
		require.Len(t, r.activities, 1)
		assert.Equal(t, model.ActivityRejectedSender, r.activities[0].Type)
	})

	t.Run("uses roster name over gateway display name", func(t *testing.T) {
		d := &fakeDispatcher{}
		h := NewWebhookHandler(d, namedRoster(t), &fakeDownloader{}, &fakeSender{}, nil, nil)

		postEvent(t, h, WebhookEvent{
			Sender:      "5511999990000",
			DisplayName: "whatever",
			Type:        eventTypeText,
			Text:        "oi",
		})

		require.Len(t, d.names, 1)
		assert.Equal(t, "Maria", d.names[0])
	})

	t.Run("drops messages over the rate limit", func(t *testing.T) {
		d := &fakeDispatcher{}
		h := NewWebhookHandler(d, openRoster(t), &fakeDownloader{}, &fakeSender{}, &fakeLimiter{allow: false}, nil)

		rec := postEvent(t, h, WebhookEvent{
			Sender: "5511999990000",
			Type:   eventTypeText,
			Text:   "oi",
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, d.texts)
	})
}
