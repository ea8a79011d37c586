package dgus

import (
	"encoding/binary"

	"github.com/sigurn/crc16"
)

var crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// Checksum returns the CRC-16/MODBUS of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// AppendChecksum appends the checksum of data to dst, little-endian as it
// travels on the wire.
func AppendChecksum(dst, data []byte) []byte {
	return binary.LittleEndian.AppendUint16(dst, Checksum(data))
}

// VerifyChecksum reports whether the last two bytes of content are the
// little-endian checksum of the bytes before them.
func VerifyChecksum(content []byte) bool {
	if len(content) < CRCSize {
		return false
	}
	body := content[:len(content)-CRCSize]
	return binary.LittleEndian.Uint16(content[len(body):]) == Checksum(body)
}
