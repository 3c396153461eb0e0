// Package charset is the Charset Transcoder collaborator of spec.md §6: it
// converts cell text between a workbook's source codepage and canonical
// UTF-8. All string ingress from a sheet flows through ToUTF8; the text
// encoder's output does not need FromUTF8 since the Lua literal is always
// written as UTF-8, but the transcoder remains symmetric per the source's
// ansi2utf8/utf82ansi pair.
package charset

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// Transcoder converts between a fixed source codepage and UTF-8. The zero
// value is a passthrough transcoder (source already UTF-8).
type Transcoder struct {
	enc encoding.Encoding
}

// New builds a Transcoder for the named codepage. An empty or "utf-8"
// codepage yields a passthrough transcoder.
func New(codepage string) (Transcoder, error) {
	switch strings.ToLower(strings.TrimSpace(codepage)) {
	case "", "utf-8", "utf8":
		return Transcoder{}, nil
	case "gbk", "gb2312", "gb18030":
		return Transcoder{enc: simplifiedchinese.GBK}, nil
	default:
		return Transcoder{}, fmt.Errorf("charset: unsupported codepage %q", codepage)
	}
}

// ToUTF8 transcodes s from the configured codepage to UTF-8.
func (t Transcoder) ToUTF8(s string) (string, error) {
	if t.enc == nil {
		return s, nil
	}
	out, err := t.enc.NewDecoder().String(s)
	if err != nil {
		return "", fmt.Errorf("charset: to_utf8: %w", err)
	}
	return out, nil
}

// FromUTF8 transcodes s from UTF-8 to the configured codepage.
func (t Transcoder) FromUTF8(s string) (string, error) {
	if t.enc == nil {
		return s, nil
	}
	out, err := t.enc.NewEncoder().String(s)
	if err != nil {
		return "", fmt.Errorf("charset: from_utf8: %w", err)
	}
	return out, nil
}
