package api

// SeparateResponse carries the encoded stems produced for one upload.
type SeparateResponse struct {
	Model string            `json:"model"`
	Stems map[string]string `json:"stems"`
}

// RequestCodeRequest asks for a verification code to be emailed.
type RequestCodeRequest struct {
	Email string `json:"email"`
}

// VerifyRequest redeems a verification code and records the account.
// PasswordHash takes precedence over Password when both are present.
type VerifyRequest struct {
	Email        string `json:"email"`
	Code         string `json:"code"`
	Password     string `json:"password,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Name         string `json:"name,omitempty"`
}

// AccountSummary is the client-visible slice of a stored account.
type AccountSummary struct {
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// OKResponse acknowledges a request that produces no payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

// SaveSessionRequest stores a set of stems as a library session.
type SaveSessionRequest struct {
	Title string            `json:"title,omitempty"`
	Stems map[string]string `json:"stems"`
}

// SessionMetadata describes a saved session without its audio payloads.
type SessionMetadata struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Stems     []string `json:"stems"`
	CreatedAt string   `json:"createdAt"`
	Bundle    string   `json:"bundle"`
}

// SessionDetail is a saved session with its stems re-encoded for transport.
type SessionDetail struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	CreatedAt string            `json:"createdAt"`
	Bundle    string            `json:"bundle"`
	Stems     map[string]string `json:"stems"`
}

// LibraryListResponse wraps the saved sessions in creation order.
type LibraryListResponse struct {
	Items []SessionMetadata `json:"items"`
}

// HealthResponse reports daemon liveness.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
