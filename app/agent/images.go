package agent

import (
	"regexp"
	"strings"
)

var imageURL = regexp.MustCompile(`(?i)https?://\S+\.(?:png|jpe?g|gif|webp)`)

// ExtractImages pulls every image URL out of a generated reply, in order of
// appearance, and returns the reply with those URLs removed and surrounding
// whitespace trimmed. Running it again on the cleaned text finds nothing.
func ExtractImages(text string) (cleaned string, images []string) {
	cleaned = imageURL.ReplaceAllStringFunc(text, func(m string) string {
		images = append(images, m)
		return ""
	})
	return strings.TrimSpace(cleaned), images
}
