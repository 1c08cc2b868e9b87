package ingest

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// loadPDF extracts plain text from a PDF, one block per page. Pages whose
// text cannot be extracted are skipped; a document where every page fails
// is an error.
func loadPDF(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var blocks []string
	failed := 0
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			failed++
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			failed++
			continue
		}

		text = strings.TrimSpace(text)
		if text != "" {
			blocks = append(blocks, text)
		}
	}

	if len(blocks) == 0 && failed > 0 {
		return nil, fmt.Errorf("extracting pdf text: all %d pages failed", failed)
	}

	return blocks, nil
}
