package model

import (
	"time"

	"github.com/fotolote/intake-bot-go/internal/dedup"
)

// Photo is one received image inside a batch. Content is held in memory
// until the batch is committed; TempPath points at the crash-recovery copy
// on disk, written when the photo is appended.
type Photo struct {
	Content   []byte
	FileName  string
	Hash      string
	Duplicate bool
	TempPath  string
}

// Session is the per-sender conversation state. It is owned by the session
// registry and must only be mutated while holding the sender's dispatch
// lock.
type Session struct {
	Identity         string
	ChatID           string
	State            SessionState
	Photos           []Photo
	Dedup            *dedup.Tracker
	DuplicateCount   int
	Legend           string // confirmed batch code, empty until set
	PendingLegend    string // code awaiting yes/no confirmation
	CollaboratorName string
	TodayCount       int
	AskedForCode     bool // an uncoded ENVIAR already prompted for the code
	LastUpdate       time.Time
}

// ResetBatch clears all per-batch accumulation, keeping identity, chat and
// daily counters.
func (s *Session) ResetBatch() {
	s.Photos = nil
	s.Dedup = dedup.NewTracker()
	s.DuplicateCount = 0
	s.Legend = ""
	s.PendingLegend = ""
	s.AskedForCode = false
}

// TempPaths lists the on-disk recovery copies of the batch's photos.
func (s *Session) TempPaths() []string {
	paths := make([]string, 0, len(s.Photos))
	for _, p := range s.Photos {
		if p.TempPath != "" {
			paths = append(paths, p.TempPath)
		}
	}
	return paths
}
