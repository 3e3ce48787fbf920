package model

import "time"

// SnapshotPhoto references the on-disk temp copy of one batched photo.
type SnapshotPhoto struct {
	FileName string `json:"fileName"`
	TempPath string `json:"tempPath"`
}

// SessionSnapshot is the durable form of a Session, written whenever the
// session enters a reminder-worthy state. It deliberately does not embed
// photo bytes: those live in the temp copies the snapshot points at.
type SessionSnapshot struct {
	Identity         string          `json:"identity"`
	ChatID           string          `json:"chatId"`
	State            SessionState    `json:"state"`
	Legend           string          `json:"legend,omitempty"`
	CollaboratorName string          `json:"collaboratorName,omitempty"`
	TodayCount       int             `json:"todayCount"`
	Photos           []SnapshotPhoto `json:"photos"`
	SavedAt          time.Time       `json:"savedAt"`
}

// Stale reports whether the snapshot is older than maxAge at now.
func (s SessionSnapshot) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.SavedAt) > maxAge
}

// SnapshotOf maps a live session onto its durable form. The inverse mapping
// lives in the recovery package, which reloads photo bytes from the temp
// copies.
func SnapshotOf(s *Session, now time.Time) SessionSnapshot {
	photos := make([]SnapshotPhoto, 0, len(s.Photos))
	for _, p := range s.Photos {
		photos = append(photos, SnapshotPhoto{FileName: p.FileName, TempPath: p.TempPath})
	}
	return SessionSnapshot{
		Identity:         s.Identity,
		ChatID:           s.ChatID,
		State:            s.State,
		Legend:           s.Legend,
		CollaboratorName: s.CollaboratorName,
		TodayCount:       s.TodayCount,
		Photos:           photos,
		SavedAt:          now,
	}
}
