package container

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func sampleScript() *RawScript {
	return &RawScript{
		Header:  Header{Magic: MagicV1LE, UserID: 5},
		Order:   nil, // resolved by Write
		Version: V1LittleEndian,
		Windows: []RawWindow{
			{
				Type:       WindowTypeDialogue,
				Identifier: "GREETING",
				SpeakerID:  1,
				// Chunk-relative: first line starts just past the 40-byte
				// dialogue window prefix (identifier, counts, offsets, size).
				LineStartOffsets: []int32{40, 43},
				TextBuffer:       []byte("HI\x00BYE\x00"),
			},
			{
				Type:               WindowTypeSelection,
				Identifier:         "CHOICE",
				Field18:            11,
				Field1C:            22,
				Field1E:            33,
				OptionStartOffsets: []int32{40},
				TextBuffer:         []byte("YES\x00"),
			},
		},
		SpeakerTable: RawSpeakerTable{
			Present: true,
			Field08: 1,
			Field0C: 2,
			Entries: []RawSpeakerEntry{
				{Offset: 1, Name: []byte("HERO")},
				{Offset: 0},
			},
		},
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	rs := sampleScript()
	rs.Header.Magic = MagicV1LE
	buf, err := Write(rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := Read(buf)
	if err != nil {
		t.Fatalf("re-read failed: %v", err)
	}

	if got.Header.UserID != rs.Header.UserID {
		t.Fatalf("user_id = %d, want %d", got.Header.UserID, rs.Header.UserID)
	}
	if len(got.Windows) != len(rs.Windows) {
		t.Fatalf("window count = %d, want %d", len(got.Windows), len(rs.Windows))
	}
	for i := range rs.Windows {
		w, wantW := got.Windows[i], rs.Windows[i]
		if w.Type != wantW.Type || w.Identifier != wantW.Identifier {
			t.Fatalf("window %d = %+v, want %+v", i, w, wantW)
		}
		if !bytes.Equal(w.TextBuffer, wantW.TextBuffer) {
			t.Fatalf("window %d text buffer = %x, want %x", i, w.TextBuffer, wantW.TextBuffer)
		}
	}
	if len(got.SpeakerTable.Entries) != len(rs.SpeakerTable.Entries) {
		t.Fatalf("speaker entries = %d, want %d", len(got.SpeakerTable.Entries), len(rs.SpeakerTable.Entries))
	}
	if string(got.SpeakerTable.Entries[0].Name) != "HERO" {
		t.Fatalf("speaker 0 name = %q, want HERO", got.SpeakerTable.Entries[0].Name)
	}
	if got.SpeakerTable.Entries[1].Offset != 0 {
		t.Fatalf("speaker 1 offset = %d, want 0", got.SpeakerTable.Entries[1].Offset)
	}
}

func TestWrite_WindowOffsetsRelativeToHeaderEnd(t *testing.T) {
	rs := sampleScript()
	buf, err := Write(rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The first window header entry's offset field sits at 0x24; adding
	// HeaderSize to its value must land on the window's identifier.
	off := int(binary.LittleEndian.Uint32(buf[HeaderSize+4 : HeaderSize+8]))
	ident := buf[HeaderSize+off : HeaderSize+off+8]
	if string(ident) != "GREETING" {
		t.Fatalf("identifier at base+32+%d = %q, want GREETING", off, ident)
	}
}

func TestWrite_DialogueWithoutLinesHasNoBufferFields(t *testing.T) {
	rs := &RawScript{
		Header: Header{Magic: MagicV1LE},
		Windows: []RawWindow{
			{Type: WindowTypeDialogue, Identifier: "EMPTY", SpeakerID: 0xFFFF},
		},
	}
	buf, err := Write(rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := Read(buf)
	if err != nil {
		t.Fatalf("re-read failed: %v", err)
	}
	w := got.Windows[0]
	if len(w.LineStartOffsets) != 0 || len(w.TextBuffer) != 0 {
		t.Fatalf("window = %+v, want no offsets and no text buffer", w)
	}
	if w.SpeakerID != 0xFFFF {
		t.Fatalf("speaker id = %#x, want 0xFFFF", w.SpeakerID)
	}
}

func TestWrite_BigEndian(t *testing.T) {
	rs := sampleScript()
	rs.Header.Magic = MagicV1BE
	rs.Version = V1BigEndian
	buf, err := Write(rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := Read(buf)
	if err != nil {
		t.Fatalf("re-read failed: %v", err)
	}
	if got.Version != V1BigEndian {
		t.Fatalf("version = %v, want V1BigEndian", got.Version)
	}
}

func TestWrite_IdentifierTooLong(t *testing.T) {
	rs := sampleScript()
	rs.Windows[0].Identifier = "THIS_IDENTIFIER_IS_WAY_TOO_LONG_FOR_THE_FIELD"
	if _, err := Write(rs); err != ErrIdentifierTooLong {
		t.Fatalf("got %v, want ErrIdentifierTooLong", err)
	}
}

func TestWrite_RelocationTableNonEmpty(t *testing.T) {
	rs := sampleScript()
	buf, err := Write(rs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := Read(buf)
	if err != nil {
		t.Fatalf("re-read failed: %v", err)
	}
	if got.Header.RelocationTableSize == 0 {
		t.Fatal("expected a non-empty relocation table for a script with offset fields")
	}
	if len(got.RelocationTable) != int(got.Header.RelocationTableSize) {
		t.Fatalf("relocation table length = %d, want %d", len(got.RelocationTable), got.Header.RelocationTableSize)
	}
}
