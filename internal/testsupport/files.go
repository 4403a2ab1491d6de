package testsupport

// Payload returns size bytes of a repeating pattern, standing in for a
// rendered artifact. A size <= 0 yields a single byte.
func Payload(size int) []byte {
	if size <= 0 {
		size = 1
	}
	buf := make([]byte, size)
	pattern := []byte("%PDF-1.7 portal ")
	for i := range buf {
		buf[i] = pattern[i%len(pattern)]
	}
	return buf
}
