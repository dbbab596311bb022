package royalty

// Error codes. The machine code and the human message travel separately to
// the operator UI and must never be collapsed into one string.
const (
	CodeMissingTitle     = "missing_title"
	CodeEmptyAmounts     = "empty_amount_set"
	CodeArtistMismatch   = "artist_mismatch"
	CodeTrackResolution  = "track_resolution_failed"
	CodeOrphanRow        = "orphan_row"
	CodeBatchInsert      = "batch_insert_failed"
	CodeBelowMinimum     = "below_minimum_balance"
	CodeRequestPending   = "request_already_pending"
	CodeExceedsAvailable = "exceeds_available_balance"
	CodeInvalidAmount    = "invalid_amount"
)

// Error carries the full error taxonomy for ingestion and payment gating:
// a machine code, a human message, an optional detail string, and — for
// mid-import failures — how many rows were committed before the failure.
type Error struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Detail   string `json:"detail,omitempty"`
	Inserted int    `json:"inserted_count"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}
