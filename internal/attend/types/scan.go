package types

import "time"

// ScanResult is the token returned to a badge reader for one scan.
type ScanResult string

const (
	ResultUnauthorized ScanResult = "UNAUTH"
	ResultFaceOK       ScanResult = "FACE_OK"
	ResultFaceFail     ScanResult = "FACE_FAIL"
	ResultTimeout      ScanResult = "TIMEOUT"
)

func (r ScanResult) String() string { return string(r) }

// CardEvent is one badge scan waiting for the verification worker.
// Token correlates the worker's result with the caller that submitted it.
type CardEvent struct {
	Token       string
	CardID      string
	SubmittedAt time.Time
}

// AttendanceSession tracks one checked-in identity for the process lifetime.
type AttendanceSession struct {
	CardID    string    `json:"card_id"`
	Name      string    `json:"name"`
	EntryTime time.Time `json:"entry_time"`
	Marked    bool      `json:"marked"`
	MarkedAt  time.Time `json:"marked_at,omitzero"`
	Cancelled bool      `json:"cancelled,omitempty"`
}

// Status is the JSON body served by the health endpoint.
type Status struct {
	OK             bool   `json:"ok"`
	QueueDepth     int    `json:"queue_depth"`
	Pending        int    `json:"pending"`
	Identities     int    `json:"identities"`
	References     int    `json:"references"`
	ActiveSessions int    `json:"active_sessions"`
	MarkedSessions int    `json:"marked_sessions"`
	ServerTime     string `json:"server_time"`
}

// RegisterResponse is returned after a new user is enrolled.
type RegisterResponse struct {
	OK         bool   `json:"ok"`
	CardID     string `json:"card_id"`
	Name       string `json:"name"`
	Identities int    `json:"identities"`
	References int    `json:"references"`
}
