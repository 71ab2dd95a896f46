package frame

import "testing"

func TestChecksum(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected byte
	}{
		{
			name:     "empty data",
			data:     []byte{},
			expected: 0x00,
		},
		{
			name:     "nil data",
			data:     nil,
			expected: 0x00,
		},
		{
			name:     "single byte",
			data:     []byte{0x30},
			expected: 0x30,
		},
		{
			name:     "initialize span",
			data:     []byte{0x01, 0x30, ETX},
			expected: 0x32,
		},
		{
			name:     "self cancelling",
			data:     []byte{0x5A, 0x5A},
			expected: 0x00,
		},
		{
			name:     "all ones",
			data:     []byte{0xFF, 0xFF, 0xFF},
			expected: 0xFF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Checksum(tt.data)
			if result != tt.expected {
				t.Errorf("Checksum() = 0x%02X, want 0x%02X", result, tt.expected)
			}
		})
	}
}

func TestChecksumMatchesDirectRecomputation(t *testing.T) {
	data := patternPayload(200)
	var want byte
	for i := 0; i < len(data); i++ {
		want = want ^ data[i]
	}
	if got := Checksum(data); got != want {
		t.Fatalf("Checksum() = 0x%02X, want 0x%02X", got, want)
	}
	if Checksum(data) != Checksum(data) {
		t.Fatalf("checksum not deterministic")
	}
	split := 73
	if got := Checksum(data[:split]) ^ Checksum(data[split:]); got != want {
		t.Fatalf("split checksum = 0x%02X, want 0x%02X", got, want)
	}
}

func BenchmarkChecksum(b *testing.B) {
	data := make([]byte, MaxPayloadLen)
	for i := range data {
		data[i] = byte(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Checksum(data)
	}
}

func BenchmarkBuild(b *testing.B) {
	payload := make([]byte, MaxPayloadLen)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Build(payload)
	}
}
