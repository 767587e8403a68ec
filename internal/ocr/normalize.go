package ocr

import "strings"

// NormalizeText cleans extracted text while preserving line structure.
// CRLF becomes LF, trailing whitespace is stripped per line, and runs of
// three or more blank lines collapse to two.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if blanks > 2 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// CollapseWhitespace folds every run of whitespace into a single space
// and trims the ends. Used for short free-form notes.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
