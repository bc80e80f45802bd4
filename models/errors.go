package models

import "errors"

// ErrValidation marks drafts and transition requests rejected before
// any external call is made. Validation failures surface immediately
// and are never retried.
var ErrValidation = errors.New("validation")
