package adapter

import (
	"errors"
)

// ErrSourceUnavailable marks a discovery-level failure: the upstream listing
// itself could not be retrieved. The pipeline treats it as fatal for the
// adapter's run; per-item fetch failures never carry this sentinel.
var ErrSourceUnavailable = errors.New("source unavailable")
