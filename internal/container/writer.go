package container

import "encoding/binary"

// Write serializes a RawScript back into its binary container form using
// rs.Order; when unset, the byte order is derived from the header magic so
// the emitted fields can never contradict it. It writes in two passes:
// window and table offsets are computed first, then every section is
// emitted so that every offset field can be filled in before its bytes
// are written.
//
// The relocation table is regenerated from scratch as a flat list of
// rs.Order-encoded u32 file offsets, one per absolute
// pointer field this function emits (window header offsets, line/option
// start offsets, the speaker name array and its entries). The table read
// from the input is not preserved bit-for-bit; only its role (enumerate
// pointer locations) is honored.
func Write(rs *RawScript) ([]byte, error) {
	order := rs.Order
	if order == nil {
		if o, _, err := DetectVersion(rs.Header.Magic); err == nil {
			order = o
		} else {
			order = binary.LittleEndian
		}
	}

	for _, w := range rs.Windows {
		if len(w.Identifier) > MaxIdentifierChars {
			return nil, ErrIdentifierTooLong
		}
	}

	var pointerLocations []int
	layout := planLayout(rs)

	buf := make([]byte, layout.totalSize)

	for i, w := range rs.Windows {
		entryOff := HeaderSize + i*WindowHeaderEntrySize
		order.PutUint32(buf[entryOff:entryOff+4], uint32(w.Type))
		// Window offsets are stored relative to the end of the header.
		order.PutUint32(buf[entryOff+4:entryOff+8], uint32(layout.windowOffsets[i]-HeaderSize))
		pointerLocations = append(pointerLocations, entryOff+4)

		writeWindow(buf, order, w, layout.windowOffsets[i], &pointerLocations)
	}

	writeSpeakerTable(buf, order, rs.SpeakerTable, layout.speakerTableOffset, layout.speakerNameArrayOffset, layout.speakerNameOffsets, &pointerLocations)

	relocTable := buildRelocationTable(order, pointerLocations)
	relocOffset := layout.totalSize
	finalSize := relocOffset + len(relocTable)
	if len(relocTable) > 0 {
		grown := make([]byte, finalSize)
		copy(grown, buf)
		copy(grown[relocOffset:], relocTable)
		buf = grown
	}

	// field_0C is opaque and carried through untouched; the speaker table
	// lives at a fixed, computable offset immediately after the window
	// header array, not behind a pointer.
	hdr := rs.Header
	hdr.WindowCount = int32(len(rs.Windows))
	hdr.FileSize = int32(len(buf))
	hdr.RelocationTableOffset = int32(relocOffset)
	hdr.RelocationTableSize = int32(len(relocTable))
	WriteHeader(buf[:HeaderSize], hdr, order)

	return buf, nil
}

type layoutPlan struct {
	windowOffsets          []int
	speakerTableOffset     int
	speakerNameArrayOffset int
	speakerNameOffsets     []int
	totalSize              int
}

// planLayout places the speaker table header immediately after the window
// header array, unconditionally — speaker_count == 0 is itself
// the "no speakers" signal, so the table's presence never depends on a
// separate pointer field. Window bodies follow the speaker table's name
// array and string data.
func planLayout(rs *RawScript) layoutPlan {
	cursor := HeaderSize + len(rs.Windows)*WindowHeaderEntrySize

	plan := layoutPlan{}
	plan.speakerTableOffset = cursor
	cursor += SpeakerTableHeaderSize
	plan.speakerNameArrayOffset = cursor
	cursor += len(rs.SpeakerTable.Entries) * 4

	plan.speakerNameOffsets = make([]int, len(rs.SpeakerTable.Entries))
	for i, e := range rs.SpeakerTable.Entries {
		if e.Offset == 0 {
			continue
		}
		plan.speakerNameOffsets[i] = cursor
		cursor += len(e.Name) + 1
	}

	plan.windowOffsets = make([]int, len(rs.Windows))
	for i, w := range rs.Windows {
		plan.windowOffsets[i] = cursor
		cursor += windowSize(w)
	}

	plan.totalSize = cursor
	return plan
}

func windowSize(w RawWindow) int {
	size := IdentifierSize
	switch w.Type {
	case WindowTypeDialogue:
		size += 4
		// A dialogue with no lines carries no offset array, size field, or
		// text buffer.
		if len(w.LineStartOffsets) > 0 {
			size += len(w.LineStartOffsets)*4 + 4 + len(w.TextBuffer)
		}
	case WindowTypeSelection:
		size += 8 + len(w.OptionStartOffsets)*4 + 4 + len(w.TextBuffer)
	}
	return size
}

func writeWindow(buf []byte, order binary.ByteOrder, w RawWindow, offset int, pointerLocations *[]int) {
	writeIdentifier(buf[offset:offset+IdentifierSize], w.Identifier)
	cursor := offset + IdentifierSize

	switch w.Type {
	case WindowTypeDialogue:
		order.PutUint16(buf[cursor:cursor+2], uint16(int16(len(w.LineStartOffsets))))
		order.PutUint16(buf[cursor+2:cursor+4], w.SpeakerID)
		cursor += 4
		if len(w.LineStartOffsets) == 0 {
			return
		}
		cursor = writeOffsetArray(buf, order, cursor, w.LineStartOffsets, pointerLocations)
	case WindowTypeSelection:
		order.PutUint16(buf[cursor:cursor+2], uint16(w.Field18))
		order.PutUint16(buf[cursor+2:cursor+4], uint16(int16(len(w.OptionStartOffsets))))
		order.PutUint16(buf[cursor+4:cursor+6], uint16(w.Field1C))
		order.PutUint16(buf[cursor+6:cursor+8], uint16(w.Field1E))
		cursor += 8
		cursor = writeOffsetArray(buf, order, cursor, w.OptionStartOffsets, pointerLocations)
	default:
		return
	}

	order.PutUint32(buf[cursor:cursor+4], uint32(len(w.TextBuffer)))
	cursor += 4
	copy(buf[cursor:cursor+len(w.TextBuffer)], w.TextBuffer)
}

func writeOffsetArray(buf []byte, order binary.ByteOrder, cursor int, offsets []int32, pointerLocations *[]int) int {
	for _, off := range offsets {
		order.PutUint32(buf[cursor:cursor+4], uint32(off))
		*pointerLocations = append(*pointerLocations, cursor)
		cursor += 4
	}
	return cursor
}

func writeIdentifier(field []byte, identifier string) {
	for i := range field {
		field[i] = 0
	}
	copy(field, identifier)
}

// writeSpeakerTable emits the speaker table header, name-offset array, and
// name strings. The name-array offset and each name entry are stored
// relative to the end of the 32-byte header, matching how the reader
// resolves them.
func writeSpeakerTable(buf []byte, order binary.ByteOrder, st RawSpeakerTable, tableOffset, nameArrayOffset int, nameOffsets []int, pointerLocations *[]int) {
	order.PutUint32(buf[tableOffset:tableOffset+4], uint32(nameArrayOffset-HeaderSize))
	*pointerLocations = append(*pointerLocations, tableOffset)
	order.PutUint32(buf[tableOffset+4:tableOffset+8], uint32(len(st.Entries)))
	order.PutUint32(buf[tableOffset+8:tableOffset+12], uint32(st.Field08))
	order.PutUint32(buf[tableOffset+12:tableOffset+16], uint32(st.Field0C))

	for i, e := range st.Entries {
		entryOff := nameArrayOffset + i*4
		if e.Offset == 0 {
			order.PutUint32(buf[entryOff:entryOff+4], 0)
			continue
		}
		nameOff := nameOffsets[i]
		order.PutUint32(buf[entryOff:entryOff+4], uint32(nameOff-HeaderSize))
		*pointerLocations = append(*pointerLocations, entryOff)
		copy(buf[nameOff:nameOff+len(e.Name)], e.Name)
		buf[nameOff+len(e.Name)] = 0
	}
}

func buildRelocationTable(order binary.ByteOrder, locations []int) []byte {
	out := make([]byte, len(locations)*4)
	for i, loc := range locations {
		order.PutUint32(out[i*4:i*4+4], uint32(loc))
	}
	return out
}
