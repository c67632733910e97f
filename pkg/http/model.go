package http

// APIResponse is the envelope of every JSON response. Status mirrors the
// HTTP status. Data carries the result, a []ValidationError for rejected
// input or a []*AppError for a failed call.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"spot"`
	Message string                 `json:"message,omitempty" example:"spot is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
