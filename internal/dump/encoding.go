package dump

// encoding.go detects the text encoding of a raw dump and decodes it.
//
// Detection is a heuristic: a byte-order mark is trusted outright, anything
// else goes through a statistical detector. Valid UTF-8 the detector cannot
// place is read as UTF-8. A wrong guess is an accepted risk;
// decoded text is not re-validated downstream.

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// ErrEncodingUndetected is wrapped by the FormatError returned when no
// usable encoding can be determined.
var ErrEncodingUndetected = errors.New("encoding not detected")

// Decoded is dump text together with the encoding it was read with.
type Decoded struct {
	Text       string
	Encoding   string // Canonical charset name, e.g. "UTF-16LE"
	Confidence int    // 0-100
}

type bomEntry struct {
	mark    []byte
	charset string
}

// Longest marks first: the UTF-32LE mark starts with the UTF-16LE one.
var byteOrderMarks = []bomEntry{
	{mark: []byte{0xFF, 0xFE, 0x00, 0x00}, charset: "UTF-32LE"},
	{mark: []byte{0x00, 0x00, 0xFE, 0xFF}, charset: "UTF-32BE"},
	{mark: []byte{0xEF, 0xBB, 0xBF}, charset: "UTF-8"},
	{mark: []byte{0xFF, 0xFE}, charset: "UTF-16LE"},
	{mark: []byte{0xFE, 0xFF}, charset: "UTF-16BE"},
}

// Resolve detects the encoding of raw and returns the decoded text.
// Failure is a *FormatError wrapping ErrEncodingUndetected.
func Resolve(raw []byte) (Decoded, error) {
	if len(raw) == 0 {
		return Decoded{}, &FormatError{Msg: "empty input", Err: ErrEncodingUndetected}
	}

	charset, confidence, err := detect(raw)
	if err != nil {
		return Decoded{}, &FormatError{Msg: "detect encoding", Err: err}
	}

	enc, err := lookupEncoding(charset)
	if err != nil {
		return Decoded{}, &FormatError{Msg: fmt.Sprintf("charset %q", charset), Err: err}
	}

	text, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return Decoded{}, &FormatError{
			Msg: fmt.Sprintf("decode as %s", charset),
			Err: fmt.Errorf("%w: %v", ErrEncodingUndetected, err),
		}
	}

	return Decoded{
		Text:       strings.TrimPrefix(string(text), "\ufeff"),
		Encoding:   charset,
		Confidence: confidence,
	}, nil
}

// detect returns the most likely charset name and its confidence.
func detect(raw []byte) (string, int, error) {
	for _, bom := range byteOrderMarks {
		if bytes.HasPrefix(raw, bom.mark) {
			return bom.charset, 100, nil
		}
	}

	result, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil {
		return fallback(raw, fmt.Errorf("%w: %v", ErrEncodingUndetected, err))
	}
	if result == nil || result.Charset == "" {
		return fallback(raw, ErrEncodingUndetected)
	}
	return result.Charset, result.Confidence, nil
}

// fallbackConfidence is reported when undetected input is read as UTF-8.
const fallbackConfidence = 10

// fallback accepts raw as UTF-8 when it is valid UTF-8 and fails with cause
// otherwise.
func fallback(raw []byte, cause error) (string, int, error) {
	if utf8.Valid(raw) {
		return "UTF-8", fallbackConfidence, nil
	}
	return "", 0, cause
}

// lookupEncoding maps a detector charset name to a decoder.
// BOMs are left in the decoded text and trimmed by Resolve.
func lookupEncoding(charset string) (encoding.Encoding, error) {
	switch strings.ToLower(charset) {
	case "utf-8", "ascii", "us-ascii":
		return unicode.UTF8, nil
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	case "utf-32le":
		return utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM), nil
	case "utf-32be":
		return utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM), nil
	case "gb-18030":
		charset = "gb18030"
	}

	if enc, err := htmlindex.Get(charset); err == nil {
		return enc, nil
	}
	if enc, err := ianaindex.IANA.Encoding(charset); err == nil && enc != nil {
		return enc, nil
	}
	return nil, ErrEncodingUndetected
}
