package splitter

import (
	"encoding/base64"
	"strings"
)

const (
	// MIMETypeXLSX is the content type of OOXML workbooks
	MIMETypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// MIMETypeXLS is the content type of legacy BIFF workbooks
	MIMETypeXLS = "application/vnd.ms-excel"
	// MIMETypeZip is the content type of the produced archive
	MIMETypeZip = "application/zip"

	dataScheme   = "data:"
	base64Marker = ";base64,"
)

// Payload is the decoded form of a data URI
type Payload struct {
	MIMEType string
	Data     []byte
}

// Decode parses a "data:<mime>;base64,<body>" string.
func Decode(s string) (*Payload, error) {
	s = strings.TrimSpace(s)

	idx := strings.Index(s, base64Marker)
	if idx < 0 {
		return nil, newError(KindDecode, StageDecoding, nil, "payload is missing the %q marker", base64Marker)
	}

	head, body := s[:idx], s[idx+len(base64Marker):]
	if !strings.HasPrefix(head, dataScheme) {
		return nil, newError(KindDecode, StageDecoding, nil, "payload is missing the %q scheme", dataScheme)
	}
	mimeType := strings.TrimPrefix(head, dataScheme)
	// Parameters such as ";name=report.xlsx" may precede the marker.
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	body = stripWhitespace(body)
	if body == "" {
		return nil, newError(KindDecode, StageDecoding, nil, "payload body is empty")
	}

	data, err := decodeBase64(body)
	if err != nil {
		return nil, newError(KindDecode, StageDecoding, err, "payload body is not valid base64")
	}

	return &Payload{MIMEType: strings.ToLower(mimeType), Data: data}, nil
}

// EncodePayload builds a data URI for data.
func EncodePayload(mimeType string, data []byte) string {
	var b strings.Builder
	b.Grow(len(dataScheme) + len(mimeType) + len(base64Marker) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString(dataScheme)
	b.WriteString(mimeType)
	b.WriteString(base64Marker)
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// IsSpreadsheetMIME reports whether m is one of the accepted Excel types.
func IsSpreadsheetMIME(m string) bool {
	switch strings.ToLower(m) {
	case MIMETypeXLSX, MIMETypeXLS:
		return true
	}
	return false
}

func decodeBase64(body string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(body)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(body); rawErr == nil {
		return raw, nil
	}
	return nil, err
}

func stripWhitespace(s string) string {
	if !strings.ContainsAny(s, " \t\r\n") {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
