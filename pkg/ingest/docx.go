package ingest

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// loadWord extracts paragraph text from a .docx archive
// (word/document.xml). Legacy binary .doc files are not parseable here and
// return an error at load time.
func loadWord(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening word document: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("reading word document body: %w", err)
		}
		defer rc.Close()

		return extractParagraphs(rc, "p", "t")
	}

	return nil, fmt.Errorf("word document body not found in archive")
}

// extractParagraphs streams an OOXML body and returns one text block per
// paragraph element, concatenating the text runs inside it. paraLocal and
// textLocal are the local names of the paragraph and text elements
// (w:p/w:t for Word, a:p/a:t for PowerPoint).
func extractParagraphs(r io.Reader, paraLocal, textLocal string) ([]string, error) {
	dec := xml.NewDecoder(r)

	var blocks []string
	var current strings.Builder
	depth := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == paraLocal {
				depth++
			}
			if depth > 0 && t.Name.Local == textLocal {
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return nil, fmt.Errorf("decoding text run: %w", err)
				}
				current.WriteString(text)
			}
		case xml.EndElement:
			if t.Name.Local == paraLocal {
				depth--
				if depth == 0 {
					if s := strings.TrimSpace(current.String()); s != "" {
						blocks = append(blocks, s)
					}
					current.Reset()
				}
			}
		}
	}

	return blocks, nil
}
