package bose

import "errors"

// Decoder error taxonomy: each is returned to the caller without
// mutating the target. A failing Decode never returns a partially-
// built Value alongside its error.
var (
	ErrMemoNotSupported  = errors.New("bose: memo references are not supported")
	ErrUnsupportedPrefix = errors.New("bose: unsupported encoding prefix")
	ErrIntegerTooLarge   = errors.New("bose: integer magnitude exceeds decoder limit")
	ErrMalformedUTF8     = errors.New("bose: malformed utf-8 string")
	ErrMalformedUTF16    = errors.New("bose: malformed utf-16 string")
	ErrOutOfBounds       = errors.New("bose: declared length exceeds available input")
	ErrBadContinuation   = errors.New("bose: bad chain continuation")
)
