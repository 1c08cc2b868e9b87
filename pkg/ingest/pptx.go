package ingest

import (
	"archive/zip"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slideNumberPattern = regexp.MustCompile(`slide(\d+)\.xml$`)

// slideNumber extracts the ordinal from a ppt/slides/slideN.xml entry name.
func slideNumber(name string) int {
	m := slideNumberPattern.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// loadPresentation extracts text from a .pptx archive, one block per slide.
// Slides are ordered by their numeric suffix; a lexicographic sort would put
// slide10.xml before slide2.xml.
func loadPresentation(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening presentation: %w", err)
	}
	defer zr.Close()

	var slideNames []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slideNames = append(slideNames, f.Name)
		}
	}
	sort.Slice(slideNames, func(i, j int) bool {
		return slideNumber(slideNames[i]) < slideNumber(slideNames[j])
	})

	if len(slideNames) == 0 {
		return nil, fmt.Errorf("no slides found in presentation")
	}

	byName := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		byName[f.Name] = f
	}

	var blocks []string
	for _, name := range slideNames {
		rc, err := byName[name].Open()
		if err != nil {
			return nil, fmt.Errorf("reading slide %s: %w", name, err)
		}

		paragraphs, err := extractParagraphs(rc, "p", "t")
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing slide %s: %w", name, err)
		}

		if slide := strings.TrimSpace(strings.Join(paragraphs, "\n")); slide != "" {
			blocks = append(blocks, slide)
		}
	}

	return blocks, nil
}
