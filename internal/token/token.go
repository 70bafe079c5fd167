// Package token implements the bit-level encode/decode of a single Line's
// byte buffer into a sequence of model.Tokens and back. This is the
// trickiest subsystem in the toolkit: function tokens pack a table index,
// a function index, and up to 14 16-bit arguments into a run of bytes
// using a per-byte "+1 / 0xFF-sentinel" transform. Argument bytes are read
// by count, never scanned, so they may take any value, including 0x00 and
// 0xF0.. (an argument of -1 is written as 00 00).
package token

import (
	"errors"

	"github.com/Secre-C/Atlus-Script-Tools/model"
)

// Errors raised while decoding or encoding a token stream.
var (
	// ErrMalformedTokenStream is returned when a function token's header
	// or argument bytes run past the end of the buffer, or when the
	// decoded argument byte count would be negative.
	ErrMalformedTokenStream = errors.New("token: malformed token stream")

	// ErrArgOutOfRange is returned when a function token cannot be framed:
	// more than 14 arguments (always), or, in strict mode, a table index
	// above 7 or a function index above 31.
	ErrArgOutOfRange = errors.New("token: value out of range for encoding")

	// ErrTextCollision is returned when a text or code-point token would
	// emit a lead byte equal to the 0x00 line terminator or matching the
	// 0xF0.. function framing, which could not survive a decode.
	ErrTextCollision = errors.New("token: text byte collides with terminator or function framing")
)

// functionFrameMask marks the high nibble that begins a function token:
// any byte b with b&0xF0 == 0xF0.
const functionFrameMask = 0xF0

// maxArgs is the largest argument count a function token can carry: the
// four-bit count field stores argc+1, so argc+1 <= 0x0F caps argc at 14.
// With argc = 15 the nibble would wrap to 0, a frame the decoder rejects.
const maxArgs = 14

// Codec holds the small set of behaviors the format leaves open: which byte
// represents a surface NewLineToken in the binary form, and whether
// out-of-range values are rejected (Strict) or silently narrowed/wrapped
// (the historical, default behavior).
type Codec struct {
	// NewLineByte is the byte emitted for a model.TokenNewLine. Zero means
	// the default, 0x0A (ASCII line feed) — chosen because it can never be
	// confused with the 0x00 terminator or 0xF0.. function framing.
	NewLineByte byte

	// Strict enables ArgOutOfRange errors on Encode when table_index or
	// function_index would not round-trip. When false (the default,
	// matching the historical source), those values are narrowed silently.
	// More than 14 arguments is an error in both modes.
	Strict bool
}

func (c *Codec) newLineByte() byte {
	if c.NewLineByte == 0 {
		return 0x0A
	}
	return c.NewLineByte
}

// Decode parses the NUL-terminated token stream starting at offset in buf,
// returning the decoded tokens and the offset just past the terminator (or
// len(buf) if the buffer ends before a terminator is found).
//
// Decoded tokens are always TokenText or TokenFunction: NewLineToken and
// CodePointToken are surface-syntax conveniences produced only by the
// compiler, never by this decoder.
func (c *Codec) Decode(buf []byte, offset int) ([]model.Token, int, error) {
	var tokens []model.Token
	i := offset

	for i < len(buf) {
		b := buf[i]
		if b == 0x00 {
			i++
			return tokens, i, nil
		}
		if b&functionFrameMask == functionFrameMask {
			tok, next, err := c.decodeFunctionToken(buf, i)
			if err != nil {
				return nil, 0, err
			}
			tokens = append(tokens, tok)
			i = next
			continue
		}
		tok, next := decodeTextToken(buf, i)
		tokens = append(tokens, tok)
		i = next
	}
	return tokens, i, nil
}

// decodeFunctionToken decodes a single function token starting at i, where
// buf[i] is known to satisfy b&0xF0 == 0xF0. It always consumes the
// two-byte id, then argc*2 argument bytes, even when argc is zero.
func (c *Codec) decodeFunctionToken(buf []byte, i int) (model.Token, int, error) {
	if i+1 >= len(buf) {
		return model.Token{}, 0, ErrMalformedTokenStream
	}
	b1, b2 := buf[i], buf[i+1]
	id := uint16(b1)<<8 | uint16(b2)

	tableIndex := uint8((id >> 5) & 0x07)
	functionIndex := uint8(id & 0x1F)
	argCountPlus1 := int(b1 & 0x0F)
	argByteCount := (argCountPlus1 - 1) * 2
	if argByteCount < 0 {
		return model.Token{}, 0, ErrMalformedTokenStream
	}

	i += 2
	if i+argByteCount > len(buf) {
		return model.Token{}, 0, ErrMalformedTokenStream
	}

	var args []int16
	if argByteCount > 0 {
		args = make([]int16, 0, argByteCount/2)
		for a := 0; a < argByteCount; a += 2 {
			u1, u2 := buf[i+a], buf[i+a+1]
			low := u1 - 1
			var high byte
			if u2 == 0xFF {
				high = 0
			} else {
				high = u2 - 1
			}
			args = append(args, int16(uint16(high)<<8|uint16(low)))
		}
	}
	i += argByteCount

	return model.NewFunctionToken(tableIndex, functionIndex, args), i, nil
}

// decodeTextToken accumulates a run of character bytes starting at i until
// it hits the terminator, the end of the buffer, or the start of a
// function token. Two-byte characters (high bit set on the lead byte) are
// copied whole.
func decodeTextToken(buf []byte, i int) (model.Token, int) {
	start := i
	for i < len(buf) {
		b := buf[i]
		if b == 0x00 || b&functionFrameMask == functionFrameMask {
			break
		}
		if b&0x80 != 0 && i+1 < len(buf) {
			i += 2
		} else {
			i++
		}
	}
	text := make([]byte, i-start)
	copy(text, buf[start:i])
	return model.NewTextToken(text), i
}

// Encode serializes tokens into a NUL-terminated byte buffer, the exact
// inverse of Decode for well-formed input.
func (c *Codec) Encode(tokens []model.Token) ([]byte, error) {
	buf := make([]byte, 0, len(tokens)*2+1)
	for _, t := range tokens {
		switch t.Kind {
		case model.TokenText:
			if err := validateText(t.Text); err != nil {
				return nil, err
			}
			buf = append(buf, t.Text...)
		case model.TokenFunction:
			enc, err := c.encodeFunctionToken(t)
			if err != nil {
				return nil, err
			}
			buf = append(buf, enc...)
		case model.TokenNewLine:
			buf = append(buf, c.newLineByte())
		case model.TokenCodePoint:
			if t.CodePointHigh == 0x00 || t.CodePointHigh&functionFrameMask == functionFrameMask {
				return nil, ErrTextCollision
			}
			buf = append(buf, t.CodePointHigh, t.CodePointLow)
		}
	}
	buf = append(buf, 0x00)
	return buf, nil
}

func (c *Codec) encodeFunctionToken(t model.Token) ([]byte, error) {
	argc := len(t.Args)
	// No frame exists for more than maxArgs arguments, so this is an
	// error even in non-strict mode: the nibble-wrapped frame would not
	// survive its own decoder.
	if argc > maxArgs {
		return nil, ErrArgOutOfRange
	}
	if c.Strict && (t.TableIndex > 7 || t.FunctionIndex > 31) {
		return nil, ErrArgOutOfRange
	}
	tableIndex := t.TableIndex & 0x07
	functionIndex := t.FunctionIndex & 0x1F
	argcField := uint16(argc + 1)

	id := uint16(0xF000) | argcField<<8 | uint16(tableIndex)<<5 | uint16(functionIndex)
	out := make([]byte, 2, 2+argc*2)
	out[0] = byte(id >> 8)
	out[1] = byte(id)

	for _, arg := range t.Args {
		u := uint16(arg)
		low := byte(u)
		high := byte(u >> 8)
		out = append(out, low+1)
		if high == 0 {
			out = append(out, 0xFF)
		} else {
			out = append(out, high+1)
		}
	}
	return out, nil
}

// validateText walks a text run the way the decoder frames it and rejects
// any lead byte that would read back as the 0x00 terminator or the start
// of a function token. Second bytes of two-byte characters are copied
// blindly by the decoder, so only lead positions are checked.
func validateText(text []byte) error {
	for i := 0; i < len(text); {
		b := text[i]
		if b == 0x00 || b&functionFrameMask == functionFrameMask {
			return ErrTextCollision
		}
		if b&0x80 != 0 && i+1 < len(text) {
			i += 2
		} else {
			i++
		}
	}
	return nil
}

// Decode is a package-level convenience using the default Codec (NewLine
// byte 0x0A, non-strict).
func Decode(buf []byte, offset int) ([]model.Token, int, error) {
	return (&Codec{}).Decode(buf, offset)
}

// Encode is a package-level convenience using the default Codec.
func Encode(tokens []model.Token) ([]byte, error) {
	return (&Codec{}).Encode(tokens)
}
