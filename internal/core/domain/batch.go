package domain

// BatchItem pairs a request with its completed result at the request's input position.
type BatchItem struct {
	Index   int                 `json:"index"`
	Request Request             `json:"request"`
	Result  OrchestrationResult `json:"result"`
}
