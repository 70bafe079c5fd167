// Package lift bridges container.RawScript, the disk-shaped intermediate
// form, and model.Script, the tree-shaped in-memory form the compiler,
// decompiler, and callers work with. Raise resolves speaker IDs against the
// speaker table and decodes every line's token stream; Lower is the
// inverse, building a fresh speaker table and text buffer and re-running
// the token codec in the encode direction.
package lift

import (
	"encoding/binary"
	"fmt"

	"github.com/Secre-C/Atlus-Script-Tools/diag"
	"github.com/Secre-C/Atlus-Script-Tools/internal/container"
	"github.com/Secre-C/Atlus-Script-Tools/internal/pool"
	"github.com/Secre-C/Atlus-Script-Tools/internal/token"
	"github.com/Secre-C/Atlus-Script-Tools/model"
)

// Codec bundles the token.Codec behaviors lift needs to pass through
// (NewLine byte choice, strictness) so callers don't reach into
// internal/token directly. Sink, when set, receives trace diagnostics for
// nonzero opaque fields encountered while raising — they are preserved
// verbatim either way, the trace only surfaces them.
type Codec struct {
	Token token.Codec
	Sink  diag.Sink
}

func (c *Codec) trace(format string, args ...any) {
	if c.Sink != nil {
		c.Sink.Report(diag.Diagnostic{
			Severity: diag.SeverityTrace,
			Message:  fmt.Sprintf(format, args...),
		})
	}
}

// noSpeakerID is the speaker_id written for a dialogue window with no
// speaker at all. It sits at the very top of the variable-index range, so
// a window whose VariableIndex would land exactly on it cannot be
// distinguished from "no speaker"; nothing observed in real scripts comes
// near that value.
const noSpeakerID = 0xFFFF

// Raise converts a parsed RawScript into a model.Script, resolving every
// dialogue window's speaker_id against the speaker table: a raw ID less
// than the table's entry count names a table entry, and a raw ID at or
// above it is a variable speaker index offset from the table size (see
// DESIGN.md for why the offset, not the raw ID, is the stored
// VariableIndex).
func (c *Codec) Raise(rs *container.RawScript) (*model.Script, error) {
	script := &model.Script{
		UserID: rs.Header.UserID,
		Format: formatFromVersion(rs.Version),
	}

	if rs.Header.Field0C != 0 {
		c.trace("header field_0C = %#x preserved", rs.Header.Field0C)
	}
	if rs.Header.Field1E != 0 {
		c.trace("header field_1E = %#x preserved", rs.Header.Field1E)
	}
	if rs.SpeakerTable.Field08 != 0 || rs.SpeakerTable.Field0C != 0 {
		c.trace("speaker table field_08 = %#x, field_0C = %#x preserved",
			rs.SpeakerTable.Field08, rs.SpeakerTable.Field0C)
	}

	speakerCount := len(rs.SpeakerTable.Entries)

	for wi, rw := range rs.Windows {
		w := model.Window{Identifier: rw.Identifier}

		switch rw.Type {
		case container.WindowTypeDialogue:
			w.Kind = model.WindowDialogue
			speaker, err := c.raiseSpeaker(rs, rw.SpeakerID, speakerCount)
			if err != nil {
				return nil, fmt.Errorf("lift: window %d: %w", wi, err)
			}
			w.Speaker = speaker

			lines, err := c.raiseLines(rw.TextBuffer, rw.LineStartOffsets)
			if err != nil {
				return nil, fmt.Errorf("lift: window %d: %w", wi, err)
			}
			w.Lines = lines

		case container.WindowTypeSelection:
			w.Kind = model.WindowSelection
			w.SelectionFields = [3]int16{rw.Field18, rw.Field1C, rw.Field1E}
			if w.SelectionFields != [3]int16{} {
				c.trace("selection window %d (%s): opaque fields %v preserved",
					wi, rw.Identifier, w.SelectionFields)
			}

			lines, err := c.raiseLines(rw.TextBuffer, rw.OptionStartOffsets)
			if err != nil {
				return nil, fmt.Errorf("lift: window %d: %w", wi, err)
			}
			w.Lines = lines

		default:
			return nil, fmt.Errorf("lift: window %d: %w", wi, container.ErrUnknownWindowType)
		}

		script.Windows = append(script.Windows, w)
	}

	return script, nil
}

func (c *Codec) raiseSpeaker(rs *container.RawScript, speakerID uint16, speakerCount int) (*model.Speaker, error) {
	if speakerID == noSpeakerID {
		return nil, nil
	}
	if int(speakerID) >= speakerCount {
		return &model.Speaker{
			Kind:          model.SpeakerVariableIndex,
			VariableIndex: speakerID - uint16(speakerCount),
		}, nil
	}
	entry := rs.SpeakerTable.Entries[speakerID]
	if entry.Name == nil {
		return &model.Speaker{Kind: model.SpeakerNamed}, nil
	}
	toks, _, err := c.Token.Decode(append(append([]byte(nil), entry.Name...), 0x00), 0)
	if err != nil {
		return nil, fmt.Errorf("decoding speaker name: %w", err)
	}
	return &model.Speaker{Kind: model.SpeakerNamed, Name: model.Line{Tokens: toks}}, nil
}

// raiseLines decodes each line of a window's text buffer. The stored
// start offsets are relative to the window chunk, not the buffer, so they
// are first rebased so the smallest equals 0.
func (c *Codec) raiseLines(textBuffer []byte, offsets []int32) ([]model.Line, error) {
	base := minOffset(offsets)
	lines := make([]model.Line, len(offsets))
	for i, off := range offsets {
		toks, _, err := c.Token.Decode(textBuffer, int(off-base))
		if err != nil {
			return nil, fmt.Errorf("decoding line %d: %w", i, err)
		}
		lines[i] = model.Line{Tokens: toks}
	}
	return lines, nil
}

func minOffset(offsets []int32) int32 {
	if len(offsets) == 0 {
		return 0
	}
	min := offsets[0]
	for _, off := range offsets[1:] {
		if off < min {
			min = off
		}
	}
	return min
}

// Lower converts a model.Script back into a RawScript, building a fresh
// speaker table (deduplicating identical named speakers across windows)
// and re-encoding every line through the token codec. Identifiers longer
// than model.MaxIdentifierLen produce container.ErrIdentifierTooLong.
func (c *Codec) Lower(script *model.Script) (*container.RawScript, error) {
	rs := &container.RawScript{
		Header: container.Header{UserID: script.UserID},
	}
	rs.Version = versionFromFormat(script.Format)
	if rs.Version == container.V1BigEndian {
		rs.Header.Magic = container.MagicV1BE
		rs.Order = binary.BigEndian
	} else {
		rs.Header.Magic = container.MagicV1LE
		rs.Order = binary.LittleEndian
	}

	for wi, w := range script.Windows {
		if len(w.Identifier) > model.MaxIdentifierLen {
			return nil, fmt.Errorf("lift: window %d: %w", wi, container.ErrIdentifierTooLong)
		}
	}

	// Register every named speaker before resolving any VariableIndex
	// speaker: a VariableIndex speaker_id is stored as an offset from the
	// table's final size (see raiseSpeaker), so the table must already be
	// complete before that offset is computed, not just as large as
	// whatever named speakers happened to appear earlier in window order.
	speakers := newSpeakerTableBuilder()
	for _, w := range script.Windows {
		if w.Kind == model.WindowDialogue && w.Speaker != nil && w.Speaker.Kind == model.SpeakerNamed {
			if _, err := speakers.resolveNamed(c, w.Speaker); err != nil {
				return nil, fmt.Errorf("lift: %w", err)
			}
		}
	}

	for wi, w := range script.Windows {
		switch w.Kind {
		case model.WindowDialogue:
			speakerID, err := speakers.resolve(c, w.Speaker)
			if err != nil {
				return nil, fmt.Errorf("lift: window %d: %w", wi, err)
			}
			offsets, buf, err := c.lowerLines(w.Lines)
			if err != nil {
				return nil, fmt.Errorf("lift: window %d: %w", wi, err)
			}
			rebaseToChunk(offsets, dialogueChunkBase(len(offsets)))
			rs.Windows = append(rs.Windows, container.RawWindow{
				Type:             container.WindowTypeDialogue,
				Identifier:       w.Identifier,
				SpeakerID:        speakerID,
				LineStartOffsets: offsets,
				TextBuffer:       buf,
			})

		case model.WindowSelection:
			offsets, buf, err := c.lowerLines(w.Lines)
			if err != nil {
				return nil, fmt.Errorf("lift: window %d: %w", wi, err)
			}
			rebaseToChunk(offsets, selectionChunkBase(len(offsets)))
			rs.Windows = append(rs.Windows, container.RawWindow{
				Type:               container.WindowTypeSelection,
				Identifier:         w.Identifier,
				Field18:            w.SelectionFields[0],
				Field1C:            w.SelectionFields[1],
				Field1E:            w.SelectionFields[2],
				OptionStartOffsets: offsets,
				TextBuffer:         buf,
			})
		}
	}

	rs.SpeakerTable = speakers.build()
	return rs, nil
}

// lowerLines encodes each line in order into one contiguous text buffer,
// recording each line's start offset. The first line always starts at 0,
// so the offsets come out already rebased to their minimum without any
// extra pass.
func (c *Codec) lowerLines(lines []model.Line) ([]int32, []byte, error) {
	buf := pool.Get(0)
	defer pool.Put(buf)

	offsets := make([]int32, len(lines))
	for i, l := range lines {
		offsets[i] = int32(len(buf))
		enc, err := c.Token.Encode(l.Tokens)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding line %d: %w", i, err)
		}
		buf = append(buf, enc...)
	}

	owned := make([]byte, len(buf))
	copy(owned, buf)
	return offsets, owned, nil
}

// On disk, line start offsets are relative to the window chunk's start,
// not the text buffer: the first line sits just past the identifier, the
// fixed count/id fields, the offset array itself, and the buffer size
// field. rebaseToChunk converts lowerLines' buffer-relative offsets into
// that form; raiseLines undoes it by rebasing to the minimum.
func rebaseToChunk(offsets []int32, base int32) {
	for i := range offsets {
		offsets[i] += base
	}
}

func dialogueChunkBase(lineCount int) int32 {
	return container.IdentifierSize + 4 + int32(lineCount)*4 + 4
}

func selectionChunkBase(optionCount int) int32 {
	return container.IdentifierSize + 8 + int32(optionCount)*4 + 4
}

func formatFromVersion(v container.Version) model.FormatVersion {
	if v == container.V1BigEndian {
		return model.FormatV1BigEndian
	}
	return model.FormatV1LittleEndian
}

func versionFromFormat(f model.FormatVersion) container.Version {
	if f == model.FormatV1BigEndian {
		return container.V1BigEndian
	}
	return container.V1LittleEndian
}

// speakerTableBuilder accumulates the distinct named speakers seen across a
// script's dialogue windows into a single table, in first-encounter order.
type speakerTableBuilder struct {
	entries []container.RawSpeakerEntry
	tokens  [][]model.Token // parallel to entries, for dedup comparisons
}

func newSpeakerTableBuilder() *speakerTableBuilder {
	return &speakerTableBuilder{}
}

// resolve looks up the speaker_id for a window's speaker. Named speakers
// must already have been registered via resolveNamed before this is called
// for any VariableIndex speaker in the same script, so that
// len(b.entries) reflects the table's final size.
func (b *speakerTableBuilder) resolve(c *Codec, s *model.Speaker) (uint16, error) {
	if s == nil {
		return noSpeakerID, nil
	}
	if s.Kind == model.SpeakerVariableIndex {
		return uint16(len(b.entries)) + s.VariableIndex, nil
	}
	return b.resolveNamed(c, s)
}

// resolveNamed registers (or finds the existing dedup match for) a named
// speaker and returns its table index.
func (b *speakerTableBuilder) resolveNamed(c *Codec, s *model.Speaker) (uint16, error) {
	for i, existing := range b.tokens {
		if sameTokens(existing, s.Name.Tokens) {
			return uint16(i), nil
		}
	}

	enc, err := c.Token.Encode(s.Name.Tokens)
	if err != nil {
		return 0, fmt.Errorf("encoding speaker name: %w", err)
	}
	// Strip the trailing NUL terminator: the speaker table stores a plain
	// NUL-terminated C string and container.Write appends its own.
	if len(enc) > 0 && enc[len(enc)-1] == 0x00 {
		enc = enc[:len(enc)-1]
	}

	idx := uint16(len(b.entries))
	b.entries = append(b.entries, container.RawSpeakerEntry{Offset: 1, Name: enc})
	b.tokens = append(b.tokens, s.Name.Tokens)
	return idx, nil
}

func (b *speakerTableBuilder) build() container.RawSpeakerTable {
	if len(b.entries) == 0 {
		return container.RawSpeakerTable{}
	}
	return container.RawSpeakerTable{Present: true, Entries: b.entries}
}

func sameTokens(a, b []model.Token) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(&b[i]) {
			return false
		}
	}
	return true
}
