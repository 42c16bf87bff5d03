package ingest

import "regexp"

// DefaultChunkSize is the maximum chunk length in runes.
const DefaultChunkSize = 500

var lineBreaks = regexp.MustCompile(`\r\n|\n{2,}`)

// Normalize collapses every carriage-return/line-feed pair and every run of
// two or more consecutive line feeds into a single line feed.
func Normalize(text string) string {
	return lineBreaks.ReplaceAllString(text, "\n")
}

// Split normalizes text and cuts it into consecutive windows of at most
// maxSize runes, in order, without overlap. The final chunk may be shorter.
// Concatenating the chunks reproduces the normalized text exactly; empty
// input yields no chunks.
//
// Boundaries may fall mid-word or mid-sentence. Embedding models tolerate
// that, so no boundary snapping is done.
func Split(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}
	runes := []rune(Normalize(text))
	if len(runes) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(runes)+maxSize-1)/maxSize)
	for start := 0; start < len(runes); start += maxSize {
		end := start + maxSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
