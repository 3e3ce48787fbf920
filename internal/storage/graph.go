package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fotolote/intake-bot-go/internal/model"
)

const (
	graphBaseURL  = "https://graph.microsoft.com/v1.0"
	graphLoginURL = "https://login.microsoftonline.com"
	graphScope    = "https://graph.microsoft.com/.default"

	graphUploadTimeout = 60 * time.Second
	tokenSafetyMargin  = 60 * time.Second
)

// GraphStore uploads batches to a Microsoft Graph drive using the
// client-credentials flow. Tokens are cached until shortly before expiry.
type GraphStore struct {
	httpClient *http.Client
	clock      clockwork.Clock

	clientID     string
	clientSecret string
	tenantID     string
	rootFolder   string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewGraphStore(clientID, clientSecret, tenantID, rootFolder string, clock clockwork.Clock) *GraphStore {
	return &GraphStore{
		httpClient:   &http.Client{Timeout: graphUploadTimeout},
		clock:        clock,
		clientID:     clientID,
		clientSecret: clientSecret,
		tenantID:     tenantID,
		rootFolder:   rootFolder,
	}
}

func (s *GraphStore) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.clock.Now().Before(s.tokenExpiry) {
		return s.token, nil
	}

	form := url.Values{
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"scope":         {graphScope},
		"grant_type":    {"client_credentials"},
	}

	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", graphLoginURL, s.tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token request failed: %s: %s", resp.Status, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	s.token = payload.AccessToken
	s.tokenExpiry = s.clock.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - tokenSafetyMargin)
	return s.token, nil
}

func (s *GraphStore) uploadFile(ctx context.Context, folder, name string, content []byte) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	itemPath := path.Join(s.rootFolder, folder, name)
	uploadURL := fmt.Sprintf("%s/drive/root:/%s:/content", graphBaseURL, itemPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload failed: %s: %s", resp.Status, body)
	}

	return nil
}

func (s *GraphStore) SaveBatch(ctx context.Context, photos []model.Photo, collaboratorName, legend string) Result {
	now := s.clock.Now()
	folder := DestinationFolder(legend, collaboratorName, now)
	res := Result{Total: len(photos), Folder: folder}

	for i, photo := range photos {
		name := FileName(i+1, collaboratorName, legend, Extension(photo.FileName), now)
		if err := s.uploadFile(ctx, folder, name, photo.Content); err != nil {
			log.Error().Err(err).Str("file", name).Msg("graph upload failed")
			res.Failed++
			continue
		}
		res.Saved++
	}

	return res
}
