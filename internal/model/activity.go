package model

import "time"

type ActivityType string

const (
	ActivityBatchComplete  ActivityType = "batch_complete"
	ActivityBatchNoCode    ActivityType = "batch_no_code"
	ActivityRejectedSender ActivityType = "rejected_sender"
	ActivityForwardFailed  ActivityType = "forward_failed"
)

// Activity is one report-worthy event, persisted per row and rolled up into
// the daily summary.
type Activity struct {
	ID             int64        `db:"id" json:"id"`
	Type           ActivityType `db:"type" json:"type"`
	Sender         string       `db:"sender" json:"sender"`
	Collaborator   string       `db:"collaborator" json:"collaborator"`
	Code           string       `db:"code" json:"code"`
	PhotoCount     int          `db:"photo_count" json:"photoCount"`
	DuplicateCount int          `db:"duplicate_count" json:"duplicateCount"`
	SavedCount     int          `db:"saved_count" json:"savedCount"`
	FailedCount    int          `db:"failed_count" json:"failedCount"`
	Detail         string       `db:"detail" json:"detail"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
}

type CreateActivityParams struct {
	Type           ActivityType
	Sender         string
	Collaborator   string
	Code           string
	PhotoCount     int
	DuplicateCount int
	SavedCount     int
	FailedCount    int
	Detail         string
}

// ActivitySummary is the aggregate used by the daily report.
type ActivitySummary struct {
	Batches         int `db:"batches"`
	BatchesNoCode   int `db:"batches_no_code"`
	Photos          int `db:"photos"`
	Duplicates      int `db:"duplicates"`
	Saved           int `db:"saved"`
	Failed          int `db:"failed"`
	RejectedSenders int `db:"rejected_senders"`
	ForwardFailures int `db:"forward_failures"`
}
