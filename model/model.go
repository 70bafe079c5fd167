// Package model defines the in-memory representation of a MessageScript:
// an ordered list of dialogue/selection windows, each holding lines of
// tokens. Values in this package are created by the Lifter or Compiler and
// freely mutated before the Lowerer or Encoder serializes them; ownership
// is strictly tree-shaped (Script owns Windows, Window owns Lines and its
// Speaker, Line owns Tokens) — there are no cycles.
package model

// FormatVersion identifies the on-disk layout revision and byte order a
// Script was read from (or should be written as).
type FormatVersion int

const (
	FormatV1LittleEndian FormatVersion = iota
	FormatV1BigEndian
)

func (f FormatVersion) String() string {
	switch f {
	case FormatV1LittleEndian:
		return "v1-le"
	case FormatV1BigEndian:
		return "v1-be"
	default:
		return "unknown"
	}
}

// Script is the root of a MessageScript document: a sequence of windows in
// on-disk order. Windows are addressed by position; identifiers are not
// guaranteed unique.
type Script struct {
	UserID  int16
	Format  FormatVersion
	Windows []Window
}

// Equal reports whether two scripts are structurally identical.
func (s *Script) Equal(o *Script) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.UserID != o.UserID || s.Format != o.Format || len(s.Windows) != len(o.Windows) {
		return false
	}
	for i := range s.Windows {
		if !s.Windows[i].Equal(&o.Windows[i]) {
			return false
		}
	}
	return true
}

// WindowKind distinguishes the two Window variants.
type WindowKind int

const (
	WindowDialogue WindowKind = iota
	WindowSelection
)

func (k WindowKind) String() string {
	if k == WindowSelection {
		return "selection"
	}
	return "dialogue"
}

// MaxIdentifierLen is the fixed on-disk width of a window identifier,
// NUL-padded ASCII.
const MaxIdentifierLen = 24

// Window is the closed sum of DialogueWindow and SelectionWindow:
// Kind selects which variant's fields are meaningful.
//
//   - Dialogue: Identifier, Speaker (optional), Lines.
//   - Selection: Identifier, Lines (one per choice), SelectionFields.
type Window struct {
	Kind       WindowKind
	Identifier string
	Speaker    *Speaker // only meaningful when Kind == WindowDialogue
	Lines      []Line

	// SelectionFields holds the three opaque 16-bit fields the original
	// format carries for Selection windows (field_18, field_1C, field_1E).
	// The fourth on-disk 16-bit slot, option_count, is not independent
	// state: it always equals len(Lines) and is recomputed by the Lowerer,
	// so it has no slot here. Only meaningful when Kind == WindowSelection.
	SelectionFields [3]int16
}

// Equal reports whether two windows are structurally identical.
func (w *Window) Equal(o *Window) bool {
	if w.Kind != o.Kind || w.Identifier != o.Identifier || len(w.Lines) != len(o.Lines) {
		return false
	}
	if w.Kind == WindowSelection && w.SelectionFields != o.SelectionFields {
		return false
	}
	if w.Kind == WindowDialogue {
		if (w.Speaker == nil) != (o.Speaker == nil) {
			return false
		}
		if w.Speaker != nil && !w.Speaker.Equal(o.Speaker) {
			return false
		}
	}
	for i := range w.Lines {
		if !w.Lines[i].Equal(&o.Lines[i]) {
			return false
		}
	}
	return true
}

// SpeakerKind distinguishes the two Speaker variants.
type SpeakerKind int

const (
	SpeakerNamed SpeakerKind = iota
	SpeakerVariableIndex
)

// Speaker is the closed sum of Named(Line) and VariableIndex(u16).
type Speaker struct {
	Kind          SpeakerKind
	Name          Line   // meaningful when Kind == SpeakerNamed
	VariableIndex uint16 // meaningful when Kind == SpeakerVariableIndex
}

// Equal reports whether two speakers are structurally identical.
func (s *Speaker) Equal(o *Speaker) bool {
	if s.Kind != o.Kind {
		return false
	}
	if s.Kind == SpeakerVariableIndex {
		return s.VariableIndex == o.VariableIndex
	}
	return s.Name.Equal(&o.Name)
}

// Line is an ordered sequence of tokens. A dialogue window's lines appear
// sequentially; a selection window's lines are its choice entries.
type Line struct {
	Tokens []Token
}

// Equal reports whether two lines carry the same token sequence.
func (l *Line) Equal(o *Line) bool {
	if len(l.Tokens) != len(o.Tokens) {
		return false
	}
	for i := range l.Tokens {
		if !l.Tokens[i].Equal(&o.Tokens[i]) {
			return false
		}
	}
	return true
}

// TokenKind discriminates the four Token variants.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenFunction
	TokenNewLine
	TokenCodePoint
)

// Token is the closed sum of the four line-token variants: a run of text bytes, a
// bit-packed function call, an in-line break, or an explicit two-byte
// character escape. Only the fields relevant to Kind are meaningful.
type Token struct {
	Kind Kind

	Text []byte // TokenText

	TableIndex    uint8   // TokenFunction: 0..7
	FunctionIndex uint8   // TokenFunction: 0..31
	Args          []int16 // TokenFunction: 0..14 arguments (the count field stores argc+1 in four bits)

	CodePointHigh byte // TokenCodePoint
	CodePointLow  byte // TokenCodePoint
}

// Kind is an alias kept for readability at call sites (model.Kind vs.
// model.TokenKind read the same either way).
type Kind = TokenKind

// NewTextToken builds a TokenText. The byte slice is not copied.
func NewTextToken(b []byte) Token {
	return Token{Kind: TokenText, Text: b}
}

// NewFunctionToken builds a TokenFunction. args is not copied.
func NewFunctionToken(tableIndex, functionIndex uint8, args []int16) Token {
	return Token{Kind: TokenFunction, TableIndex: tableIndex, FunctionIndex: functionIndex, Args: args}
}

// NewNewLineToken builds a TokenNewLine.
func NewNewLineToken() Token {
	return Token{Kind: TokenNewLine}
}

// NewCodePointToken builds a TokenCodePoint.
func NewCodePointToken(high, low byte) Token {
	return Token{Kind: TokenCodePoint, CodePointHigh: high, CodePointLow: low}
}

// Equal reports whether two tokens carry the same kind and payload.
func (t *Token) Equal(o *Token) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TokenText:
		return string(t.Text) == string(o.Text)
	case TokenFunction:
		if t.TableIndex != o.TableIndex || t.FunctionIndex != o.FunctionIndex || len(t.Args) != len(o.Args) {
			return false
		}
		for i := range t.Args {
			if t.Args[i] != o.Args[i] {
				return false
			}
		}
		return true
	case TokenNewLine:
		return true
	case TokenCodePoint:
		return t.CodePointHigh == o.CodePointHigh && t.CodePointLow == o.CodePointLow
	default:
		return false
	}
}
