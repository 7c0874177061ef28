package extract

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// PlainText decodes data as UTF-8, replacing every invalid byte with U+FFFD.
// A leading byte order mark is dropped. It never fails.
func PlainText(data []byte) string {
	decoded, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	return string(decoded)
}
