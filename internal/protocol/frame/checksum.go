package frame

// Checksum returns the block check character: the XOR of every byte in data.
// An empty input yields 0x00.
func Checksum(data []byte) byte {
	var bcc byte
	for _, b := range data {
		bcc ^= b
	}
	return bcc
}
