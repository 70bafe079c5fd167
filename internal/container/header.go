package container

import "encoding/binary"

// Version identifies the on-disk format revision and byte order, as
// determined from the header magic.
type Version int

const (
	V1LittleEndian Version = iota
	V1BigEndian
)

// Header is the fixed 32-byte MessageScript container header.
type Header struct {
	FileType              uint8
	IsCompressed          bool
	UserID                int16
	FileSize              int32
	Magic                 [4]byte
	Field0C               int32
	RelocationTableOffset int32
	RelocationTableSize   int32
	WindowCount           int32
	IsRelocated           bool
	Field1E               int16
}

// DetectVersion inspects a 4-byte magic and returns the byte order and
// format version it selects, or ErrInvalidHeaderMagic if it matches
// neither the forward nor the reversed MessageScript magic.
func DetectVersion(magic [4]byte) (binary.ByteOrder, Version, error) {
	switch magic {
	case MagicV1LE, MagicV1LELegacy:
		return binary.LittleEndian, V1LittleEndian, nil
	case MagicV1BE:
		return binary.BigEndian, V1BigEndian, nil
	default:
		return nil, 0, ErrInvalidHeaderMagic
	}
}

// ParseHeader reads and validates the 32-byte header at the start of data,
// returning the parsed header and its byte order.
func ParseHeader(data []byte) (Header, binary.ByteOrder, error) {
	if len(data) < HeaderSize {
		return Header{}, nil, ErrStreamTooSmall
	}

	var magic [4]byte
	copy(magic[:], data[0x08:0x0C])
	order, _, err := DetectVersion(magic)
	if err != nil {
		return Header{}, nil, err
	}

	h := Header{
		FileType:              data[0x00],
		IsCompressed:          data[0x01] != 0,
		UserID:                int16(order.Uint16(data[0x02:0x04])),
		FileSize:              int32(order.Uint32(data[0x04:0x08])),
		Magic:                 magic,
		Field0C:               int32(order.Uint32(data[0x0C:0x10])),
		RelocationTableOffset: int32(order.Uint32(data[0x10:0x14])),
		RelocationTableSize:   int32(order.Uint32(data[0x14:0x18])),
		WindowCount:           int32(order.Uint32(data[0x18:0x1C])),
		IsRelocated:           order.Uint16(data[0x1C:0x1E]) != 0,
		Field1E:               int16(order.Uint16(data[0x1E:0x20])),
	}
	return h, order, nil
}

// WriteHeader encodes h into the first HeaderSize bytes of buf using the
// given byte order. buf must be at least HeaderSize bytes long.
func WriteHeader(buf []byte, h Header, order binary.ByteOrder) {
	buf[0x00] = h.FileType
	buf[0x01] = boolByte(h.IsCompressed)
	order.PutUint16(buf[0x02:0x04], uint16(h.UserID))
	order.PutUint32(buf[0x04:0x08], uint32(h.FileSize))
	copy(buf[0x08:0x0C], h.Magic[:])
	order.PutUint32(buf[0x0C:0x10], uint32(h.Field0C))
	order.PutUint32(buf[0x10:0x14], uint32(h.RelocationTableOffset))
	order.PutUint32(buf[0x14:0x18], uint32(h.RelocationTableSize))
	order.PutUint32(buf[0x18:0x1C], uint32(h.WindowCount))
	order.PutUint16(buf[0x1C:0x1E], boolUint16(h.IsRelocated))
	order.PutUint16(buf[0x1E:0x20], uint16(h.Field1E))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func boolUint16(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
