package model

// SessionState is the position of a sender's conversation in the batch
// intake flow. There is no terminal state: finished sessions are removed
// from the registry instead.
type SessionState string

const (
	StateIdle          SessionState = "idle"
	StateCollecting    SessionState = "collecting"
	StateReadyToSend   SessionState = "ready_to_send"
	StateWaitingAction SessionState = "waiting_action"
	StateRecovering    SessionState = "recovering"
	StateConfirmingAS  SessionState = "confirming_as"
	StateAddingMore    SessionState = "adding_more"
)

// ReminderWorthy reports whether a session in this state should survive a
// process restart (and therefore be snapshotted to disk).
func (s SessionState) ReminderWorthy() bool {
	return s == StateCollecting || s == StateReadyToSend
}
