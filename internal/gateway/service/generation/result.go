package generation

// Result is the envelope every use case produces.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func ok(message string, data map[string]any) *Result {
	return &Result{Success: true, Message: message, Data: data}
}

// Failure renders err as a failed envelope.
func Failure(err error) *Result {
	e := wrap("request failed", err)
	return &Result{Success: false, Message: e.Detail(), Error: e.Kind.String()}
}
