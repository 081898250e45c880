package models

import "errors"

// ErrNotFound is wrapped by repositories when a requested record does not exist
var ErrNotFound = errors.New("not found")
