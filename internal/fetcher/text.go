package fetcher

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// DecodeText reads drawing notes and converts them to UTF-8 from the named
// charset. Labels are the WHATWG names htmlindex understands ("windows-1252",
// "shift_jis", ...). An empty or utf-8 label passes the bytes through.
func DecodeText(r io.Reader, charset string) (string, error) {
	if charset == "" || strings.EqualFold(charset, "utf-8") {
		b, err := io.ReadAll(r)
		if err != nil {
			return "", eris.Wrap(err, "fetcher: read text")
		}
		return string(b), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: unsupported charset %q", charset)
	}

	b, err := io.ReadAll(enc.NewDecoder().Reader(r))
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: decode %s text", charset)
	}

	return string(b), nil
}

// NormalizeNotes converts raw note bytes to UTF-8. Valid UTF-8 passes
// through untouched; anything else is assumed to come from a legacy Windows
// export and decoded with the given fallback charset.
func NormalizeNotes(data []byte, fallbackCharset string) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	if fallbackCharset == "" {
		fallbackCharset = "windows-1252"
	}
	return DecodeText(bytes.NewReader(data), fallbackCharset)
}
