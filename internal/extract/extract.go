// Package extract turns uploaded contract files into plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	MimePDF   = "application/pdf"
	MimeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimePlain = "text/plain"

	// MaxUploadBytes bounds the size of an uploaded file.
	MaxUploadBytes = 10 << 20
)

var (
	ErrUnsupported = errors.New("unsupported file type")
	ErrNoText      = errors.New("no text could be extracted")
)

// ExtractText extracts text from an uploaded payload. mimeType may be empty, in
// which case the file name and content decide.
func ExtractText(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var (
		text string
		err  error
	)
	switch normalized := normalizeMimeType(mimeType, fileName, data); normalized {
	case MimePDF:
		text, err = extractPDF(data)
	case MimeDOCX:
		text, err = extractDOCX(data)
	case MimePlain, "text/markdown":
		text, err = extractPlain(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, normalized)
	}
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", fileName, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func extractPlain(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("text file is not valid UTF-8")
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return stripDocxXML(string(raw)), nil
}

// stripDocxXML keeps text runs and ends paragraphs, line breaks and table cells with newlines.
func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			if inText {
				buf.WriteString(string(t))
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				buf.WriteString("\t")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p", "br", "tc":
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case "", "application/octet-stream":
		clean = fromExtension(fileName)
		if clean == "" {
			clean = strings.Split(http.DetectContentType(data), ";")[0]
		}
	}
	if clean == "application/zip" {
		if isDOCX(data) {
			return MimeDOCX
		}
		if ext := fromExtension(fileName); ext == MimeDOCX {
			return MimeDOCX
		}
	}
	return clean
}

func fromExtension(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	case ".txt", ".text":
		return MimePlain
	case ".md", ".markdown":
		return "text/markdown"
	default:
		return ""
	}
}

func isDOCX(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}
