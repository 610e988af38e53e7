//go:build windows

package tray

import (
	"bytes"
	"encoding/binary"
)

// platformIcon wraps a PNG in a single-image ICO container, which the
// Windows tray requires.
func platformIcon(pngData []byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1}) // reserved, type icon, count
	binary.Write(&buf, binary.LittleEndian, struct {
		Width, Height, Colors, Reserved uint8
		Planes, BitCount                uint16
		Size, Offset                    uint32
	}{
		Width:    iconSize,
		Height:   iconSize,
		Planes:   1,
		BitCount: 32,
		Size:     uint32(len(pngData)),
		Offset:   6 + 16,
	})
	buf.Write(pngData)
	return buf.Bytes()
}
