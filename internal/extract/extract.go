package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeZip  = "application/zip"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrUnreadable      = errors.New("unreadable document")
)

// Allowed reports whether uploads of mimeType are accepted. Only PDF and DOCX are.
func Allowed(mimeType string) bool {
	switch cleanMime(mimeType) {
	case MimePDF, MimeDOCX:
		return true
	default:
		return false
	}
}

// Extractor adapts FromBytes to an interface for injection.
type Extractor struct{}

func (Extractor) Extract(ctx context.Context, data []byte, mimeType, fileName string) (string, error) {
	return FromBytes(ctx, data, mimeType, fileName)
}

// FromBytes extracts plain text from an in-memory PDF or DOCX payload.
func FromBytes(ctx context.Context, data []byte, mimeType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	normalized := NormalizeMime(mimeType, fileName, data)
	var (
		text string
		err  error
	)
	switch normalized {
	case MimePDF:
		text, err = extractPDF(data)
	case MimeDOCX:
		text, err = extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, normalized)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return text, nil
}

// NormalizeMime strips parameters and maps generic zip uploads to DOCX when the archive
// is a Word document.
func NormalizeMime(mimeType, fileName string, data []byte) string {
	clean := cleanMime(mimeType)
	if clean != mimeZip && clean != "application/x-zip-compressed" {
		return clean
	}
	if isDocxArchive(data) && !strings.EqualFold(filepath.Ext(fileName), ".zip") {
		return MimeDOCX
	}
	return mimeZip
}

func cleanMime(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}

func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
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
	return strings.TrimSpace(buf.String()), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	docFile := findDocument(zr)
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return stripDocxXML(rc)
}

func findDocument(zr *zip.Reader) *zip.File {
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return f
		}
	}
	return nil
}

func stripDocxXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var buf strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				buf.WriteString("\t")
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p", "br":
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

func isDocxArchive(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	return findDocument(zr) != nil
}
