package series

import "errors"

var (
	// ErrNotFound is returned when an input file does not exist.
	ErrNotFound = errors.New("input not found")

	// ErrDataFormat is returned when an input table is malformed or lacks a required column.
	ErrDataFormat = errors.New("invalid data format")

	// ErrInsufficientData is returned when a requested year or column is absent.
	ErrInsufficientData = errors.New("insufficient data")
)
