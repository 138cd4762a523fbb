package config

import "errors"

var (
	ErrConfig   = errors.New("invalid configuration")
	ErrNotFound = errors.New("configuration not found")
)
