package feed

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Encoding names a text encoding accepted by the CSV reader.
type Encoding string

const (
	EncodingAuto        Encoding = ""
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1250 Encoding = "windows-1250"
	EncodingISO88592    Encoding = "iso-8859-2"
	EncodingGBK         Encoding = "gbk"
	EncodingGB18030     Encoding = "gb18030"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectEncoding guesses the encoding of a byte buffer: UTF-8 when it
// validates (or carries a BOM), Windows-1250 otherwise.
func DetectEncoding(data []byte) Encoding {
	if bytes.HasPrefix(data, utf8BOM) || utf8.Valid(data) {
		return EncodingUTF8
	}
	return EncodingWindows1250
}

// Decode converts data from enc to a UTF-8 string. For auto, UTF-8 and
// Windows-1250 input that already validates as UTF-8 is returned as is, so a
// mislabelled feed is not decoded twice. Other encodings are always decoded.
func Decode(data []byte, enc Encoding) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	enc = Encoding(strings.ToLower(strings.TrimSpace(string(enc))))

	switch enc {
	case EncodingAuto, EncodingUTF8, EncodingWindows1250:
		if utf8.Valid(data) {
			return string(data), nil
		}
		if enc == EncodingUTF8 {
			return "", fmt.Errorf("content is not valid UTF-8")
		}
		enc = EncodingWindows1250
	}

	dec, err := decoderFor(enc)
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), dec.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("failed to decode %s content: %w", enc, err)
	}
	return string(out), nil
}

func decoderFor(enc Encoding) (encoding.Encoding, error) {
	switch enc {
	case EncodingWindows1250:
		return charmap.Windows1250, nil
	case EncodingISO88592:
		return charmap.ISO8859_2, nil
	case EncodingGBK:
		return simplifiedchinese.GBK, nil
	case EncodingGB18030:
		return simplifiedchinese.GB18030, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
}
