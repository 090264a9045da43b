package ingestion_engine

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
	"golang.org/x/text/encoding/charmap"

	"github.com/markdave123-py/Memora/internal/core"
)

// ExtractText pulls plain text out of a raw upload. The fileType hint chooses
// the parsing strategy; docconv handles the binary formats.
func ExtractText(data []byte, fileType string) (string, error) {
	switch strings.ToLower(fileType) {
	case "pdf":
		return convert(data, "application/pdf")
	case "docx", "doc":
		return convert(data, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	case "txt":
		return decodeText(data)
	default:
		return "", fmt.Errorf("%w: %s", core.ErrUnsupportedType, fileType)
	}
}

func convert(data []byte, mimeType string) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrExtraction, err)
	}
	return res.Body, nil
}

// decodeText tries UTF-8 first and falls back through the legacy single-byte
// encodings plain-text uploads show up in.
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	for _, cm := range []*charmap.Charmap{charmap.Windows1252, charmap.ISO8859_1} {
		decoded, err := cm.NewDecoder().Bytes(data)
		if err == nil {
			return string(decoded), nil
		}
	}
	return "", core.ErrDecode
}
