package container

import "encoding/binary"

// RawWindow is a window exactly as it appears on disk: line and option
// start offsets are carried verbatim, still relative to the window chunk's
// own start rather than the text buffer, not yet rebased or resolved into
// model types (that is the lift package's job).
type RawWindow struct {
	Type       int32
	Identifier string // NUL-padded 24-byte field, trimmed of trailing NULs

	// Dialogue fields (Type == WindowTypeDialogue).
	SpeakerID        uint16
	LineStartOffsets []int32

	// Selection fields (Type == WindowTypeSelection).
	Field18            int16
	Field1C            int16
	Field1E            int16
	OptionStartOffsets []int32

	TextBuffer []byte
}

// RawSpeakerEntry is one slot of the speaker name-offset array: Offset is
// the on-disk pointer (0 for a null entry with no name string),
// and Name is the NUL-terminated string it points to when nonzero.
type RawSpeakerEntry struct {
	Offset int32
	Name   []byte
}

// RawSpeakerTable is the global speaker name table. Its header sits at a
// fixed, computable offset immediately after the window header array —
// there is no pointer field for it. Present reports whether
// speaker_count was nonzero; a speaker table header with speaker_count == 0
// still physically occupies its fixed slot on disk.
type RawSpeakerTable struct {
	Present                bool
	SpeakerNameArrayOffset int32
	Field08                int32
	Field0C                int32
	Entries                []RawSpeakerEntry
}

// RawScript is the fully parsed, still disk-shaped form of a MessageScript
// container: every offset is exactly as read, and the relocation table is
// carried opaquely; its internal structure is never interpreted.
type RawScript struct {
	Header          Header
	Order           binary.ByteOrder
	Version         Version
	Windows         []RawWindow
	SpeakerTable    RawSpeakerTable
	RelocationTable []byte
}

// Read parses a complete MessageScript container from data.
func Read(data []byte) (*RawScript, error) {
	hdr, order, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	rs := &RawScript{Header: hdr, Order: order}
	if hdr.Magic == MagicV1BE {
		rs.Version = V1BigEndian
	} else {
		rs.Version = V1LittleEndian
	}

	if hdr.WindowCount < 0 {
		return nil, ErrStreamTooSmall
	}
	windowTableEnd := HeaderSize + int(hdr.WindowCount)*WindowHeaderEntrySize
	if windowTableEnd > len(data) {
		return nil, ErrStreamTooSmall
	}

	rs.Windows = make([]RawWindow, 0, hdr.WindowCount)
	for i := 0; i < int(hdr.WindowCount); i++ {
		entryOff := HeaderSize + i*WindowHeaderEntrySize
		windowType := int32(order.Uint32(data[entryOff : entryOff+4]))
		windowOffset := int32(order.Uint32(data[entryOff+4 : entryOff+8]))
		if windowOffset == 0 {
			// A null entry; the table slot is skipped.
			continue
		}

		// Window offsets are relative to the end of the 32-byte header.
		w, err := readWindow(data, order, windowType, HeaderSize+int(windowOffset))
		if err != nil {
			return nil, err
		}
		rs.Windows = append(rs.Windows, w)
	}

	// The speaker table header sits immediately after the window header
	// array — a fixed, computable offset, not a pointer stored anywhere in
	// the main header. field_0C is an unrelated opaque field and is never
	// consulted here.
	speakerTableOffset := windowTableEnd
	if speakerTableOffset+SpeakerTableHeaderSize <= len(data) {
		st, err := readSpeakerTable(data, order, speakerTableOffset)
		if err != nil {
			return nil, err
		}
		rs.SpeakerTable = st
	}

	if hdr.RelocationTableOffset != 0 && hdr.RelocationTableSize > 0 {
		start := int(hdr.RelocationTableOffset)
		end := start + int(hdr.RelocationTableSize)
		if end > len(data) || start < 0 {
			return nil, ErrStreamTooSmall
		}
		rs.RelocationTable = append([]byte(nil), data[start:end]...)
	}

	return rs, nil
}

func readWindow(data []byte, order binary.ByteOrder, windowType int32, offset int) (RawWindow, error) {
	if offset < 0 || offset+IdentifierSize > len(data) {
		return RawWindow{}, ErrStreamTooSmall
	}
	ident, err := readIdentifier(data[offset : offset+IdentifierSize])
	if err != nil {
		return RawWindow{}, err
	}
	cursor := offset + IdentifierSize

	switch windowType {
	case WindowTypeDialogue:
		return readDialogueWindow(data, order, ident, cursor)
	case WindowTypeSelection:
		return readSelectionWindow(data, order, ident, cursor)
	default:
		return RawWindow{}, ErrUnknownWindowType
	}
}

func readDialogueWindow(data []byte, order binary.ByteOrder, ident string, cursor int) (RawWindow, error) {
	if cursor+4 > len(data) {
		return RawWindow{}, ErrTruncated
	}
	lineCount := int16(order.Uint16(data[cursor : cursor+2]))
	speakerID := order.Uint16(data[cursor+2 : cursor+4])
	cursor += 4

	// A dialogue with no lines carries no offset array, text_buffer_size,
	// or text buffer at all.
	var offsets []int32
	var textBuf []byte
	if lineCount > 0 {
		var err error
		offsets, cursor, err = readOffsetArray(data, order, cursor, int(lineCount))
		if err != nil {
			return RawWindow{}, err
		}
		textBuf, err = readTextBuffer(data, order, cursor)
		if err != nil {
			return RawWindow{}, err
		}
	}

	return RawWindow{
		Type:             WindowTypeDialogue,
		Identifier:       ident,
		SpeakerID:        speakerID,
		LineStartOffsets: offsets,
		TextBuffer:       textBuf,
	}, nil
}

func readSelectionWindow(data []byte, order binary.ByteOrder, ident string, cursor int) (RawWindow, error) {
	if cursor+8 > len(data) {
		return RawWindow{}, ErrTruncated
	}
	field18 := int16(order.Uint16(data[cursor : cursor+2]))
	optionCount := int16(order.Uint16(data[cursor+2 : cursor+4]))
	field1C := int16(order.Uint16(data[cursor+4 : cursor+6]))
	field1E := int16(order.Uint16(data[cursor+6 : cursor+8]))
	cursor += 8

	offsets, cursor, err := readOffsetArray(data, order, cursor, int(optionCount))
	if err != nil {
		return RawWindow{}, err
	}

	textBuf, err := readTextBuffer(data, order, cursor)
	if err != nil {
		return RawWindow{}, err
	}

	return RawWindow{
		Type:               WindowTypeSelection,
		Identifier:         ident,
		Field18:            field18,
		Field1C:            field1C,
		Field1E:            field1E,
		OptionStartOffsets: offsets,
		TextBuffer:         textBuf,
	}, nil
}

func readOffsetArray(data []byte, order binary.ByteOrder, cursor, count int) ([]int32, int, error) {
	if count < 0 {
		return nil, 0, ErrTruncated
	}
	need := count * 4
	if cursor+need > len(data) {
		return nil, 0, ErrTruncated
	}
	offsets := make([]int32, count)
	for i := 0; i < count; i++ {
		offsets[i] = int32(order.Uint32(data[cursor+i*4 : cursor+i*4+4]))
	}
	return offsets, cursor + need, nil
}

func readTextBuffer(data []byte, order binary.ByteOrder, cursor int) ([]byte, error) {
	if cursor+4 > len(data) {
		return nil, ErrTruncated
	}
	size := int32(order.Uint32(data[cursor : cursor+4]))
	cursor += 4
	if size < 0 || cursor+int(size) > len(data) {
		return nil, ErrTruncated
	}
	return append([]byte(nil), data[cursor:cursor+int(size)]...), nil
}

// readIdentifier trims the trailing NUL padding from a fixed 24-byte field.
func readIdentifier(field []byte) (string, error) {
	n := len(field)
	for n > 0 && field[n-1] == 0 {
		n--
	}
	if n > MaxIdentifierChars {
		return "", ErrIdentifierTooLong
	}
	return string(field[:n]), nil
}

// MaxIdentifierChars mirrors IdentifierSize; kept distinct so intent at call
// sites (content length vs. field width) is unambiguous.
const MaxIdentifierChars = IdentifierSize

func readSpeakerTable(data []byte, order binary.ByteOrder, offset int) (RawSpeakerTable, error) {
	if offset < 0 || offset+SpeakerTableHeaderSize > len(data) {
		return RawSpeakerTable{}, ErrTruncated
	}
	nameArrayOffset := int32(order.Uint32(data[offset : offset+4]))
	count := int32(order.Uint32(data[offset+4 : offset+8]))
	field08 := int32(order.Uint32(data[offset+8 : offset+12]))
	field0C := int32(order.Uint32(data[offset+12 : offset+16]))

	if count < 0 {
		return RawSpeakerTable{}, ErrTruncated
	}

	// The name-array offset and every name entry offset are relative to
	// the end of the 32-byte header.
	arrOff := HeaderSize + int(nameArrayOffset)
	need := int(count) * 4
	if int(nameArrayOffset) < 0 || arrOff+need > len(data) {
		return RawSpeakerTable{}, ErrTruncated
	}

	entries := make([]RawSpeakerEntry, count)
	for i := 0; i < int(count); i++ {
		nameOff := int32(order.Uint32(data[arrOff+i*4 : arrOff+i*4+4]))
		entry := RawSpeakerEntry{Offset: nameOff}
		if nameOff != 0 {
			name, err := readCString(data, HeaderSize+int(nameOff))
			if err != nil {
				return RawSpeakerTable{}, err
			}
			entry.Name = name
		}
		entries[i] = entry
	}

	return RawSpeakerTable{
		Present:                count > 0,
		SpeakerNameArrayOffset: nameArrayOffset,
		Field08:                field08,
		Field0C:                field0C,
		Entries:                entries,
	}, nil
}

func readCString(data []byte, offset int) ([]byte, error) {
	if offset < 0 || offset >= len(data) {
		return nil, ErrTruncated
	}
	end := offset
	for end < len(data) && data[end] != 0 {
		end++
	}
	if end >= len(data) {
		return nil, ErrTruncated
	}
	return append([]byte(nil), data[offset:end]...), nil
}
