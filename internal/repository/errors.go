package repository

import "errors"

var (
	// ErrAlreadyReserved is returned by Put when the key is populated.
	ErrAlreadyReserved = errors.New("resource is already reserved")

	// ErrCorruptRecord is returned when a stored blob fails to decode.
	ErrCorruptRecord = errors.New("corrupt reservation record")
)
