package extract

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

const strategyDocx = "document-xml"

type docxStrategy struct {
	Toggle
}

func newDocxStrategy() *docxStrategy { return &docxStrategy{} }

func (s *docxStrategy) Name() string { return strategyDocx }

func (s *docxStrategy) Extract(_ context.Context, src *Source) (string, error) {
	doc, err := docx.ReadDocxFile(src.Path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	if strings.TrimSpace(content) == "" {
		return "", errors.New("word/document.xml is empty")
	}

	return paragraphs(content)
}

// paragraphs walks document.xml and returns the text of every w:p element
// joined with newlines, in document order.
func paragraphs(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		out     []string
		current strings.Builder
		depth   int
		inText  bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if depth == 0 {
					current.Reset()
				}
				depth++
			case "t":
				inText = true
			case "tab":
				if depth > 0 {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if depth == 0 {
					continue
				}
				depth--
				if depth == 0 {
					out = append(out, current.String())
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && depth > 0 {
				current.Write(t)
			}
		}
	}

	return strings.Join(out, "\n"), nil
}
