package dto

// DataResponse wraps a single resource.
type DataResponse struct {
	Data any `json:"data"`
}

// ReasonRequest is the body of reject, cancellation request and
// cancellation reject. Reason presence is checked by the domain.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// ErrorResponse documents the error body rendered by the error middleware.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
