package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/m-mizutani/goerr/v2"
)

// extractText converts an uploaded file to plain text based on its extension.
// Supported: .pdf, .docx, .txt, .md.
func extractText(filename string, data []byte) (string, error) {
	lower := strings.ToLower(filename)

	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return extractPDF(data)
	case strings.HasSuffix(lower, ".docx"):
		return extractDOCX(data)
	case strings.HasSuffix(lower, ".txt"), strings.HasSuffix(lower, ".md"):
		return string(data), nil
	default:
		return "", goerr.New("unsupported file format", goerr.V("filename", filename))
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to open PDF")
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", goerr.Wrap(err, "failed to extract PDF text")
	}

	text, err := io.ReadAll(plain)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read PDF text")
	}
	return string(text), nil
}

// extractDOCX reads word/document.xml from the zip container and collects the
// text runs, one line per paragraph
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to open DOCX container")
	}

	var docXML io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return "", goerr.Wrap(err, "failed to open document.xml")
			}
			break
		}
	}
	if docXML == nil {
		return "", goerr.New("document.xml not found in DOCX")
	}
	defer docXML.Close()

	var text strings.Builder
	decoder := xml.NewDecoder(docXML)
	inTextRun := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", goerr.Wrap(err, "failed to parse document.xml")
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inTextRun = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inTextRun = false
			case "p":
				text.WriteString("\n")
			}
		case xml.CharData:
			if inTextRun {
				text.Write(t)
			}
		}
	}

	return text.String(), nil
}
