package common

import "fmt"

// EncodeToString returns the UPPERCASE string representation of hexBytes with
// the 0X prefix. Block hashes are carried around in this form.
func EncodeToString(hexBytes []byte) string {
	return fmt.Sprintf("0X%X", hexBytes)
}

// ShortHex truncates a hash for log output.
func ShortHex(hexString string) string {
	if len(hexString) <= 10 {
		return hexString
	}
	return hexString[:10]
}
