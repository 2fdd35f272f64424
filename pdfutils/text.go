package pdfutils

import (
	"bytes"

	"github.com/mgmeyers/unipdf/v3/core"
	"golang.org/x/text/encoding/unicode"
)

var utf16BOM = []byte{0xfe, 0xff}

// DecodeText decodes a PDF text string, which is either UTF-16BE with a byte
// order mark or PDFDocEncoding.
func DecodeText(s *core.PdfObjectString) string {
	if s == nil {
		return ""
	}

	raw := s.Bytes()
	if bytes.HasPrefix(raw, utf16BOM) {
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(raw)
		if err == nil {
			return string(decoded)
		}
	}

	return s.Decoded()
}

// EncodeText returns a PDF text string for str: PDFDocEncoding for plain
// ASCII, otherwise a hex string holding BOM-prefixed UTF-16BE.
func EncodeText(str string) *core.PdfObjectString {
	for i := 0; i < len(str); i++ {
		if str[i] >= 0x80 {
			return core.MakeEncodedString(str, true)
		}
	}

	return core.MakeString(str)
}
