package domain

// Request is one retrieval request. It is created by the caller and never modified.
type Request struct {
	ID       string   `json:"id"`
	RawInput string   `json:"raw_input"`
	Category Category `json:"category"`
}
