package ai

import (
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
)

// normalizeUTF8 returns raw as a UTF-8 string. Snapshots normally arrive as
// UTF-8 already; legacy pages are sniffed and the single-byte Latin
// encodings are transcoded. Anything else passes through unchanged.
func normalizeUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}

	det := chardet.NewHtmlDetector()
	best, err := det.DetectBest(raw)
	if err == nil {
		switch strings.ToUpper(best.Charset) {
		case "ISO-8859-1", "WINDOWS-1252", "ISO-8859-15":
			runes := make([]rune, len(raw))
			for i, b := range raw {
				runes[i] = rune(b)
			}
			return string(runes)
		}
	}
	return string(raw)
}
