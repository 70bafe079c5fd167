package lift

import (
	"encoding/binary"
	"testing"

	"github.com/Secre-C/Atlus-Script-Tools/internal/container"
	"github.com/Secre-C/Atlus-Script-Tools/model"
)

func TestLowerRaise_RoundTrip(t *testing.T) {
	script := &model.Script{
		UserID: 9,
		Format: model.FormatV1LittleEndian,
		Windows: []model.Window{
			{
				Kind:       model.WindowDialogue,
				Identifier: "GREETING",
				Speaker: &model.Speaker{
					Kind: model.SpeakerNamed,
					Name: model.Line{Tokens: []model.Token{model.NewTextToken([]byte("Hero"))}},
				},
				Lines: []model.Line{
					{Tokens: []model.Token{model.NewTextToken([]byte("Hi there"))}},
					{Tokens: []model.Token{model.NewFunctionToken(1, 2, []int16{5})}},
				},
			},
			{
				Kind:       model.WindowDialogue,
				Identifier: "VARSPEAK",
				Speaker:    &model.Speaker{Kind: model.SpeakerVariableIndex, VariableIndex: 3},
				Lines: []model.Line{
					{Tokens: []model.Token{model.NewTextToken([]byte("???"))}},
				},
			},
			{
				Kind:       model.WindowDialogue,
				Identifier: "NOSPEAK",
				Lines: []model.Line{
					{Tokens: []model.Token{model.NewTextToken([]byte("..."))}},
				},
			},
			{
				Kind:            model.WindowSelection,
				Identifier:      "CHOICE",
				SelectionFields: [3]int16{1, 2, 3},
				Lines: []model.Line{
					{Tokens: []model.Token{model.NewTextToken([]byte("Yes"))}},
					{Tokens: []model.Token{model.NewTextToken([]byte("No"))}},
				},
			},
		},
	}

	c := &Codec{}
	raw, err := c.Lower(script)
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	got, err := c.Raise(raw)
	if err != nil {
		t.Fatalf("Raise failed: %v", err)
	}
	if !got.Equal(script) {
		t.Fatalf("round trip mismatch:\ngot:  %+v\nwant: %+v", got, script)
	}
}

func TestLower_SetsByteOrderFromFormat(t *testing.T) {
	c := &Codec{}
	script := &model.Script{Format: model.FormatV1BigEndian}
	raw, err := c.Lower(script)
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	if raw.Order != binary.BigEndian || raw.Header.Magic != container.MagicV1BE {
		t.Fatalf("order = %v, magic = %q, want big-endian and 1GSM", raw.Order, raw.Header.Magic)
	}

	script.Format = model.FormatV1LittleEndian
	raw, err = c.Lower(script)
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	if raw.Order != binary.LittleEndian || raw.Header.Magic != container.MagicV1LE {
		t.Fatalf("order = %v, magic = %q, want little-endian and MSG1", raw.Order, raw.Header.Magic)
	}
}

func TestLower_LineOffsetsAreChunkRelative(t *testing.T) {
	// Two lines of 3 bytes each ("Hi\0", "Yo\0"): the first line sits just
	// past the identifier (24), count+speaker (4), offset array (8), and
	// buffer size field (4).
	script := &model.Script{
		Windows: []model.Window{
			{
				Kind:       model.WindowDialogue,
				Identifier: "A",
				Lines: []model.Line{
					{Tokens: []model.Token{model.NewTextToken([]byte("Hi"))}},
					{Tokens: []model.Token{model.NewTextToken([]byte("Yo"))}},
				},
			},
		},
	}
	c := &Codec{}
	raw, err := c.Lower(script)
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	w := raw.Windows[0]
	if len(w.LineStartOffsets) != 2 || w.LineStartOffsets[0] != 40 || w.LineStartOffsets[1] != 43 {
		t.Fatalf("offsets = %v, want [40 43]", w.LineStartOffsets)
	}
}

func TestRaise_RebasesLineOffsets(t *testing.T) {
	raw := &container.RawScript{
		Windows: []container.RawWindow{
			{
				Type:             container.WindowTypeDialogue,
				Identifier:       "A",
				SpeakerID:        0xFFFF,
				LineStartOffsets: []int32{40, 43},
				TextBuffer:       []byte("Hi\x00Yo\x00"),
			},
		},
	}
	c := &Codec{}
	script, err := c.Raise(raw)
	if err != nil {
		t.Fatalf("Raise failed: %v", err)
	}
	w := script.Windows[0]
	if len(w.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(w.Lines))
	}
	if string(w.Lines[0].Tokens[0].Text) != "Hi" || string(w.Lines[1].Tokens[0].Text) != "Yo" {
		t.Fatalf("lines = %+v, want Hi and Yo", w.Lines)
	}
	if w.Speaker != nil {
		t.Fatalf("speaker = %+v, want none for id 0xFFFF", w.Speaker)
	}
}

func TestLower_DedupesNamedSpeakers(t *testing.T) {
	name := model.Line{Tokens: []model.Token{model.NewTextToken([]byte("Hero"))}}
	script := &model.Script{
		Windows: []model.Window{
			{Kind: model.WindowDialogue, Identifier: "A", Speaker: &model.Speaker{Kind: model.SpeakerNamed, Name: name},
				Lines: []model.Line{{Tokens: []model.Token{model.NewTextToken([]byte("one"))}}}},
			{Kind: model.WindowDialogue, Identifier: "B", Speaker: &model.Speaker{Kind: model.SpeakerNamed, Name: name},
				Lines: []model.Line{{Tokens: []model.Token{model.NewTextToken([]byte("two"))}}}},
		},
	}
	c := &Codec{}
	raw, err := c.Lower(script)
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	if len(raw.SpeakerTable.Entries) != 1 {
		t.Fatalf("speaker table has %d entries, want 1 (deduped)", len(raw.SpeakerTable.Entries))
	}
	if raw.Windows[0].SpeakerID != raw.Windows[1].SpeakerID {
		t.Fatalf("expected both windows to resolve to the same speaker id")
	}
}

func TestLower_IdentifierTooLong(t *testing.T) {
	script := &model.Script{
		Windows: []model.Window{
			{Kind: model.WindowDialogue, Identifier: "THIS_IDENTIFIER_IS_DEFINITELY_TOO_LONG_TO_FIT",
				Speaker: &model.Speaker{Kind: model.SpeakerVariableIndex}},
		},
	}
	c := &Codec{}
	if _, err := c.Lower(script); err == nil {
		t.Fatal("expected an error for an over-length identifier")
	}
}
