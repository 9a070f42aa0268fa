package storage

import (
	"errors"
)

var ErrContentTypeNotAllowed = errors.New("content type not allowed")
