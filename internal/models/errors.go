package models

import "errors"

var (
	// ErrNoData is returned by market data sources that answered but had nothing.
	ErrNoData = errors.New("no market data")
	// ErrNotFound is returned by caches and archives on a miss.
	ErrNotFound = errors.New("not found")
	// ErrTooManyRows rejects a form larger than analysis.max_rows.
	ErrTooManyRows = errors.New("too many rows")
)
