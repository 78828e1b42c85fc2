package metainfo

import (
	"errors"
	"fmt"
)

// SchemaError reports well-formed bencode that is not a valid torrent.
type SchemaError struct {
	Msg string
	Err error
}

func (e *SchemaError) Error() string { return e.Msg }

func (e *SchemaError) Unwrap() error { return e.Err }

func schemaErrorf(format string, args ...any) error {
	return &SchemaError{Msg: fmt.Sprintf(format, args...)}
}

func missingKey(key string) error {
	return &SchemaError{Msg: "Checking Dictionary missing key: " + key}
}

// rejected wraps a parse validator's error without altering its message.
func rejected(err error) error {
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return err
	}
	return &SchemaError{Msg: err.Error(), Err: err}
}

// ArgumentError reports a value refused by a setter before it reached the
// dictionary.
type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string { return e.Msg }

// ErrSizeOverflow is wrapped by the SchemaError for a file set whose total
// size does not fit in an int64.
var ErrSizeOverflow = errors.New("total size of files overflows a 64-bit integer")

var (
	ErrEmptyName          = &ArgumentError{Msg: "$name must not be empty"}
	ErrInvalidName        = &ArgumentError{Msg: "$name must not contain slashes and zero bytes"}
	ErrInvalidPieceLength = &ArgumentError{Msg: "$pieceLength must be a positive integer"}
)
