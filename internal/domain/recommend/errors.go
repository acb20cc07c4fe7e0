package recommend

import "errors"

// ErrInvalidInput indicates unusable selection criteria.
var ErrInvalidInput = errors.New("invalid recommendation input")
