package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

const (
	EncodingUTF8  = "utf-8"
	EncodingEUCKR = "euc-kr"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeFeed reads raw as UTF-8, replacing each invalid byte with U+FFFD, and keeps
// that reading when it holds more genuine runes above U+00FF than replaced bytes.
// Otherwise raw goes through the EUC-KR decoder (CP949 superset in x/text). A feed
// that is genuinely ASCII or Latin-1 takes the Korean path as well; ASCII survives
// unchanged, Latin-1 does not.
func decodeFeed(raw []byte) (string, string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	text, wide, invalid := readUTF8Lossy(raw)
	if wide > 0 && wide > invalid {
		return text, EncodingUTF8, nil
	}
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), raw)
	if err != nil {
		return "", "", fmt.Errorf("decode euc-kr: %w", err)
	}
	return string(out), EncodingEUCKR, nil
}

// readUTF8Lossy returns the UTF-8 reading of b, the number of decoded runes above
// U+00FF and the number of bytes that were not valid UTF-8.
func readUTF8Lossy(b []byte) (text string, wide, invalid int) {
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		switch {
		case r == utf8.RuneError && size <= 1:
			invalid++
		case r > 0xFF:
			wide++
		}
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String(), wide, invalid
}
