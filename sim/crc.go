package sim

import (
	"github.com/jancona/convsim/conv"
	"github.com/sigurn/crc16"
)

const crcBits = 16

// M17 CRC polynomial
var m17CRCParams = crc16.Params{
	Poly: 0x5935,
	Init: 0xffff,
	Name: "M17",
}

var crcTable = crc16.MakeTable(m17CRCParams)

// Calculate CRC value.
func CRC(in []byte) uint16 {
	return crc16.Checksum(in, crcTable)
}

// packBits packs bits MSB first. A partial last byte is zero padded.
func packBits(bits []conv.Bit) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		out[i/8] |= byte(b&1) << (7 - i%8)
	}
	return out
}

// appendCRC returns payload followed by its CRC, MSB first.
func appendCRC(payload []conv.Bit) []conv.Bit {
	crc := CRC(packBits(payload))
	out := make([]conv.Bit, len(payload), len(payload)+crcBits)
	copy(out, payload)
	for i := crcBits - 1; i >= 0; i-- {
		out = append(out, conv.Bit(crc>>i)&1)
	}
	return out
}

// checkCRC reports whether the last crcBits of frame match the CRC of the
// bits before them.
func checkCRC(frame []conv.Bit) bool {
	if len(frame) < crcBits {
		return false
	}
	payload := frame[:len(frame)-crcBits]
	var got uint16
	for _, b := range frame[len(payload):] {
		got = got<<1 | uint16(b&1)
	}
	return got == CRC(packBits(payload))
}
