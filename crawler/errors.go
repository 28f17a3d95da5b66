package crawler

import "errors"

var (
	// ErrProtocolViolation means the remote returned a page that does not
	// advance the cursor (regressed or already-seen items). Fatal to the
	// current venue only; spinning on such a page would never terminate.
	ErrProtocolViolation = errors.New("pagination cursor did not advance")

	// ErrWriteFailed wraps append-log write failures. Unlike transport
	// errors these are fatal to the whole run: without a durable log there
	// is no point continuing.
	ErrWriteFailed = errors.New("append log write failed")
)
