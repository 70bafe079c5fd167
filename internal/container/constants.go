// Package container implements the MessageScript binary container format:
// the fixed 32-byte header, the window header table, the per-window raw
// layout (identifier, line/option offsets, text buffer), and the speaker
// name table. It is the endian-variant, fixed-layout sibling of
// internal/token's bit-level line codec.
//
// Everything here operates on raw byte offsets and produces/consumes
// RawScript — an intermediate form still addressed the way the file is,
// before the lift package resolves it into model.Script.
package container

import "errors"

// Fixed structure sizes.
const (
	HeaderSize             = 32
	IdentifierSize         = 24
	WindowHeaderEntrySize  = 8
	SpeakerTableHeaderSize = 16
)

// Window type discriminants as stored in a window header entry.
const (
	WindowTypeDialogue  = 0
	WindowTypeSelection = 1
)

// Magic byte sequences identifying format version and byte order.
var (
	MagicV1LE       = [4]byte{'M', 'S', 'G', '1'}
	MagicV1LELegacy = [4]byte{'M', 'S', 'G', '0'}
	MagicV1BE       = [4]byte{'1', 'G', 'S', 'M'}
)

// Errors raised while parsing or writing the container.
var (
	ErrInvalidHeaderMagic = errors.New("container: header magic matches neither forward nor reversed MessageScript magic")
	ErrStreamTooSmall     = errors.New("container: available bytes smaller than header size")
	ErrUnknownWindowType  = errors.New("container: window_type is neither 0 (dialogue) nor 1 (selection)")
	ErrIdentifierTooLong  = errors.New("container: identifier exceeds 24 bytes")
	ErrTruncated          = errors.New("container: data truncated before expected field")
)
