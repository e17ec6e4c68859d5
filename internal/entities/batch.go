package entities

// BatchResult is the outcome of writing one document. Results are reported
// at the end of a run and never retried within it.
type BatchResult struct {
	Index         int    `json:"index"`
	Batch         int    `json:"batch"`
	SourceID      string `json:"source_id"`
	Label         string `json:"label"`
	Succeeded     bool   `json:"succeeded"`
	DestinationID string `json:"destination_id,omitempty"`
	Error         string `json:"error,omitempty"`
}
