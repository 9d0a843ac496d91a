package transfer

import "errors"

// Sentinel errors for transfer failures. Tool results carry the message;
// the read/write helpers wrap these so callers classify with errors.Is.
var (
	ErrNotFound     = errors.New("file not found")
	ErrTooLarge     = errors.New("file too large")
	ErrReadFailure  = errors.New("read failed")
	ErrWriteFailure = errors.New("write failed")
)
