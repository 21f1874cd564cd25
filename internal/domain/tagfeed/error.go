package tagfeed

import "errors"

var ErrInvalidInput = errors.New("invalid feed request")
