package hub

import (
	"bytes"
	"testing"
)

func TestUpdateCRC(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{
			name:     "empty data",
			data:     []byte{},
			expected: 0,
		},
		{
			name:     "ping frame without CRC",
			data:     []byte{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x03, 0x00, 0x01},
			expected: 0x4E19,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := UpdateCRC(0, tt.data)
			if result != tt.expected {
				t.Errorf("UpdateCRC() = %04X, want %04X", result, tt.expected)
			}
		})
	}
}

func TestCRCIsIncremental(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x03, 0x00, 0x01}
	whole := UpdateCRC(0, data)
	split := UpdateCRC(UpdateCRC(0, data[:3]), data[3:])
	if whole != split {
		t.Errorf("incremental CRC mismatch: %04X vs %04X", whole, split)
	}
}

func TestStuffParams(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected []byte
	}{
		{
			name:     "no stuffing needed",
			input:    []byte{0x01, 0x02, 0x03},
			expected: []byte{0x01, 0x02, 0x03},
		},
		{
			name:     "single FF",
			input:    []byte{0xFF, 0x01, 0x02},
			expected: []byte{0xFF, 0x01, 0x02},
		},
		{
			name:     "double FF without FD",
			input:    []byte{0xFF, 0xFF, 0x01},
			expected: []byte{0xFF, 0xFF, 0x01},
		},
		{
			name:     "header pattern needs stuffing",
			input:    []byte{0xFF, 0xFF, 0xFD},
			expected: []byte{0xFF, 0xFF, 0xFD, 0xFD},
		},
		{
			name:     "header pattern in middle",
			input:    []byte{0x01, 0xFF, 0xFF, 0xFD, 0x02},
			expected: []byte{0x01, 0xFF, 0xFF, 0xFD, 0xFD, 0x02},
		},
		{
			name:     "multiple header patterns",
			input:    []byte{0xFF, 0xFF, 0xFD, 0xFF, 0xFF, 0xFD},
			expected: []byte{0xFF, 0xFF, 0xFD, 0xFD, 0xFF, 0xFF, 0xFD, 0xFD},
		},
		{
			name:     "empty input",
			input:    []byte{},
			expected: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StuffParams(tt.input)
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("StuffParams(%X) = %X, want %X", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDestuffParams(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected []byte
	}{
		{
			name:     "no destuffing needed",
			input:    []byte{0x01, 0x02, 0x03},
			expected: []byte{0x01, 0x02, 0x03},
		},
		{
			name:     "stuffed pattern",
			input:    []byte{0xFF, 0xFF, 0xFD, 0xFD},
			expected: []byte{0xFF, 0xFF, 0xFD},
		},
		{
			name:     "stuffed pattern in middle",
			input:    []byte{0x01, 0xFF, 0xFF, 0xFD, 0xFD, 0x02},
			expected: []byte{0x01, 0xFF, 0xFF, 0xFD, 0x02},
		},
		{
			name:     "consecutive stuffed patterns",
			input:    []byte{0xFF, 0xFF, 0xFD, 0xFD, 0xFF, 0xFF, 0xFD, 0xFD},
			expected: []byte{0xFF, 0xFF, 0xFD, 0xFF, 0xFF, 0xFD},
		},
		{
			name:     "partial pattern stays",
			input:    []byte{0xFF, 0xFF, 0xFD},
			expected: []byte{0xFF, 0xFF, 0xFD},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DestuffParams(tt.input)
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("DestuffParams(%X) = %X, want %X", tt.input, result, tt.expected)
			}
		})
	}
}

func TestStuffDestuffRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"simple data", []byte{0x01, 0x02, 0x03}},
		{"with header pattern", []byte{0xFF, 0xFF, 0xFD}},
		{"complex pattern", []byte{0xFF, 0xFF, 0xFD, 0x00, 0xFF, 0xFF, 0xFD}},
		{"all FFs", []byte{0xFF, 0xFF, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stuffed := StuffParams(tt.input)
			result := DestuffParams(stuffed)
			if !bytes.Equal(result, tt.input) {
				t.Errorf("round trip failed: input=%X, stuffed=%X, result=%X", tt.input, stuffed, result)
			}
		})
	}
}

func TestBuildPacket(t *testing.T) {
	tests := []struct {
		name           string
		id             uint8
		inst           uint8
		params         []byte
		expectedHeader []byte
		expectedLen    int
	}{
		{
			name:           "ping frame",
			id:             HubID,
			inst:           InstPing,
			params:         nil,
			expectedHeader: []byte{0xFF, 0xFF, 0xFD, 0x00, 0x01},
			expectedLen:    10,
		},
		{
			name:           "read present speed",
			id:             3,
			inst:           InstRead,
			params:         []byte{0x1C, 0x00, 0x04, 0x00},
			expectedHeader: []byte{0xFF, 0xFF, 0xFD, 0x00, 0x03},
			expectedLen:    14,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BuildPacket(tt.id, tt.inst, tt.params)

			if !bytes.Equal(result[:5], tt.expectedHeader) {
				t.Errorf("header mismatch: got %X, want %X", result[:5], tt.expectedHeader)
			}
			if len(result) != tt.expectedLen {
				t.Errorf("packet length: got %d, want %d", len(result), tt.expectedLen)
			}

			// CRC covers everything before its own two bytes.
			crc := UpdateCRC(0, result[:len(result)-2])
			gotCRC := uint16(result[len(result)-2]) | uint16(result[len(result)-1])<<8
			if crc != gotCRC {
				t.Errorf("CRC mismatch: calculated %04X, got %04X", crc, gotCRC)
			}
		})
	}
}

func TestBuildPacketAppliesStuffing(t *testing.T) {
	params := []byte{0xFF, 0xFF, 0xFD, 0x42}
	packet := BuildPacket(2, InstWrite, params)

	if len(packet) != 10+len(params)+1 {
		t.Errorf("expected one stuffed byte, packet length %d", len(packet))
	}
}

func TestFindPacketStart(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected int
	}{
		{
			name:     "header at start",
			data:     []byte{0xFF, 0xFF, 0xFD, 0x00, 0x01},
			expected: 0,
		},
		{
			name:     "header with garbage prefix",
			data:     []byte{0x00, 0x01, 0xFF, 0xFF, 0xFD, 0x00, 0x01},
			expected: 2,
		},
		{
			name:     "no header",
			data:     []byte{0x00, 0x01, 0x02, 0x03},
			expected: -1,
		},
		{
			name:     "partial header",
			data:     []byte{0xFF, 0xFF},
			expected: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := findPacketStart(tt.data)
			if result != tt.expected {
				t.Errorf("findPacketStart() = %d, want %d", result, tt.expected)
			}
		})
	}
}

func TestParsePacketErrors(t *testing.T) {
	valid := []byte{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x04, 0x00, 0x55, 0x00}
	crc := UpdateCRC(0, valid)
	valid = append(valid, byte(crc&0xFF), byte(crc>>8))

	wrongInst := []byte{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x04, 0x00, 0x03, 0x00}
	instCRC := UpdateCRC(0, wrongInst)
	wrongInst = append(wrongInst, byte(instCRC&0xFF), byte(instCRC>>8))

	tests := []struct {
		name    string
		packet  []byte
		wantErr bool
	}{
		{"too short", []byte{0xFF, 0xFF, 0xFD}, true},
		{"bad header", []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x04, 0x00, 0x55, 0x00, 0x00, 0x00}, true},
		{"length mismatch", append([]byte{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x09, 0x00, 0x55, 0x00}, 0x00, 0x00), true},
		{"bad CRC", []byte{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x04, 0x00, 0x55, 0x00, 0x00, 0x00}, true},
		{"not a status frame", wrongInst, true},
		{"valid status", valid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := ParsePacket(tt.packet)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParsePacketValidStatus(t *testing.T) {
	packet := []byte{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x04, 0x00, 0x55, 0x00}
	crc := UpdateCRC(0, packet)
	packet = append(packet, byte(crc&0xFF), byte(crc>>8))

	id, errCode, params, err := ParsePacket(packet)
	if err != nil {
		t.Fatalf("failed to parse valid packet: %v", err)
	}
	if id != 1 {
		t.Errorf("id mismatch: got %d, want 1", id)
	}
	if errCode != 0 {
		t.Errorf("errCode mismatch: got %d, want 0", errCode)
	}
	if len(params) != 0 {
		t.Errorf("params should be empty, got %X", params)
	}
}

func TestParsePacketWithParams(t *testing.T) {
	// Status frame carrying a 2-byte model number.
	packet := []byte{0xFF, 0xFF, 0xFD, 0x00, 0x05, 0x06, 0x00, 0x55, 0x00, 0x50, 0x01}
	crc := UpdateCRC(0, packet)
	packet = append(packet, byte(crc&0xFF), byte(crc>>8))

	id, errCode, params, err := ParsePacket(packet)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if id != 5 {
		t.Errorf("id mismatch: got %d, want 5", id)
	}
	if errCode != 0 {
		t.Errorf("errCode mismatch: got %d, want 0", errCode)
	}
	if len(params) != 2 || params[0] != 0x50 || params[1] != 0x01 {
		t.Errorf("params mismatch: got %X", params)
	}
}
