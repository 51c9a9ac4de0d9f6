package domain

// Verification is the outcome of screening a listing's media.
type Verification struct {
	Approved bool           `json:"approved"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}
