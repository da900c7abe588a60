package hub

import (
	"github.com/pkg/errors"
)

// Frame layout shared by every packet on the hub link:
// FF FF FD 00 | ID | LEN_L LEN_H | INST | PARAMS... | CRC_L CRC_H
const (
	Header1  = 0xFF
	Header2  = 0xFF
	Header3  = 0xFD
	Reserved = 0x00

	// BroadcastID addresses every device on the link. Broadcast
	// instructions produce no status frame.
	BroadcastID = 0xFE

	InstPing      = 0x01
	InstRead      = 0x02
	InstWrite     = 0x03
	InstReboot    = 0x08
	InstStatus    = 0x55
	InstSyncWrite = 0x83
)

// minFrameLen is the smallest valid status frame:
// header(4) + id(1) + len(2) + inst(1) + err(1) + crc(2).
const minFrameLen = 11

// CRC-16 with polynomial 0x8005, table built once at init.
var crcTable [256]uint16

func init() {
	const poly = uint16(0x8005)
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

// UpdateCRC folds data into a running CRC. Pass 0 to start a new checksum.
func UpdateCRC(crc uint16, data []byte) uint16 {
	for _, b := range data {
		i := ((crc >> 8) ^ uint16(b)) & 0xFF
		crc = (crc << 8) ^ crcTable[i]
	}
	return crc
}

// StuffParams escapes parameter bytes that would otherwise look like a
// frame header: every FF FF FD in the stream is sent as FF FF FD FD.
func StuffParams(params []byte) []byte {
	stuffed := make([]byte, 0, len(params)+2)
	ffRun := 0
	for _, b := range params {
		stuffed = append(stuffed, b)
		if b == 0xFF {
			ffRun++
			continue
		}
		if ffRun >= 2 && b == 0xFD {
			stuffed = append(stuffed, 0xFD)
		}
		ffRun = 0
	}
	return stuffed
}

// DestuffParams reverses StuffParams: FF FF FD FD collapses to FF FF FD.
func DestuffParams(data []byte) []byte {
	if len(data) < 4 {
		return data
	}
	result := make([]byte, 0, len(data))
	ffRun := 0
	for i := 0; i < len(data); i++ {
		b := data[i]
		if ffRun >= 2 && b == 0xFD && i+1 < len(data) && data[i+1] == 0xFD {
			result = append(result, b)
			i++ // drop the escape byte
			ffRun = 0
			continue
		}
		result = append(result, b)
		if b == 0xFF {
			ffRun++
		} else {
			ffRun = 0
		}
	}
	return result
}

// BuildPacket assembles a complete frame for one instruction.
func BuildPacket(id uint8, inst uint8, params []byte) []byte {
	stuffed := StuffParams(params)

	// LEN counts instruction + params + CRC.
	length := 1 + len(stuffed) + 2

	pkt := make([]byte, 0, 7+length)
	pkt = append(pkt, Header1, Header2, Header3, Reserved, id)
	pkt = append(pkt, byte(length&0xFF), byte(length>>8))
	pkt = append(pkt, inst)
	pkt = append(pkt, stuffed...)

	crc := UpdateCRC(0, pkt)
	pkt = append(pkt, byte(crc&0xFF), byte(crc>>8))
	return pkt
}

// findPacketStart returns the index of the first frame header in data,
// or -1 if no complete header is present.
func findPacketStart(data []byte) int {
	for i := 0; i+2 < len(data); i++ {
		if data[i] == Header1 && data[i+1] == Header2 && data[i+2] == Header3 {
			return i
		}
	}
	return -1
}

// ParsePacket validates a status frame and returns its device ID, the
// firmware error byte, and the de-stuffed parameters.
func ParsePacket(packet []byte) (id uint8, errCode uint8, params []byte, err error) {
	if len(packet) < minFrameLen {
		return 0, 0, nil, errors.New("packet too short")
	}
	if packet[0] != Header1 || packet[1] != Header2 || packet[2] != Header3 {
		return 0, 0, nil, errors.New("invalid header")
	}

	id = packet[4]
	length := uint16(packet[5]) | uint16(packet[6])<<8
	if len(packet) != int(length)+7 {
		return 0, 0, nil, errors.Errorf("length mismatch: expected %d, got %d", int(length)+7, len(packet))
	}

	wantCRC := UpdateCRC(0, packet[:len(packet)-2])
	gotCRC := uint16(packet[len(packet)-2]) | uint16(packet[len(packet)-1])<<8
	if wantCRC != gotCRC {
		return 0, 0, nil, errors.Errorf("CRC error: expected %04X, got %04X", wantCRC, gotCRC)
	}

	if packet[7] != InstStatus {
		return 0, 0, nil, errors.Errorf("unexpected instruction %02X in status frame", packet[7])
	}
	errCode = packet[8]

	if len(packet) > minFrameLen {
		params = DestuffParams(packet[9 : len(packet)-2])
	}
	return id, errCode, params, nil
}
