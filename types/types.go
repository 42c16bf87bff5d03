package types

// ChatTurn is one message of a conversation transcript. Exactly one of
// User or Bot is set; Bot turns may carry image URLs that were extracted
// from the generated reply.
type ChatTurn struct {
	User   string   `json:"user,omitempty"`
	Bot    string   `json:"bot,omitempty"`
	Images []string `json:"images,omitempty"`
}

// IsUser reports whether the turn was spoken by the user.
func (t ChatTurn) IsUser() bool {
	return t.User != ""
}

type UploadResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type SearchResponse struct {
	Reply   string   `json:"reply"`
	Images  []string `json:"images"`
	Matches []string `json:"matches"`
}

type SpeechStateResponse struct {
	State string `json:"state"`
}
