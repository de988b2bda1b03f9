package model

import "time"

// RemoteCall is a diagnostic record of a remote HTTP exchange that came back
// with status >= 400 (or no status at all). Persisted best-effort to the
// call log for offline debugging; never on the happy path.
type RemoteCall struct {
	RunID        string    `db:"run_id"`
	Target       string    `db:"target"` // crm | scrape
	Method       string    `db:"method"`
	URL          string    `db:"url"`
	StatusCode   int32     `db:"status_code"` // 0 = transport failure
	RequestBody  string    `db:"request_body"`
	ResponseBody string    `db:"response_body"`
	Error        string    `db:"error"`
	CreatedAt    time.Time `db:"created_at"`
}
