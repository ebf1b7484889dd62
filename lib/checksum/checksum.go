package checksum

import "crypto/sha256"

// CalculateCheckSum folds the first four bytes of the SHA-256 digest of data into an int.
func CalculateCheckSum(data []byte) int {
	result := 0
	bytes := sha256.Sum256(data)

	for i := 0; i < 4; i++ {
		result = result << 8
		result += int(bytes[i])

	}

	return result
}

// Verify reports whether sum matches the checksum of data.
func Verify(data []byte, sum int) bool {
	return CalculateCheckSum(data) == sum
}
