// Package runagent implements relay.Transport for the run-agent HTTP
// endpoint, which answers a query with a newline-delimited JSON body.
package runagent

const (
	// DefaultEndpoint is the public run-agent deployment.
	DefaultEndpoint = "https://mcp-backend-one.vercel.app/run-agent/"

	// DefaultModel is the model selector used when none is configured.
	DefaultModel = "gpt-4.1"

	// maxErrorBody bounds how much of a non-2xx body is kept for diagnostics.
	maxErrorBody = 4 << 10
)

// apiRequest is the JSON body of a run-agent request.
type apiRequest struct {
	Query     string `json:"query"`
	Model     string `json:"model"`
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	SessionID string `json:"session_id"`
}

// apiErrorResponse covers the error shapes the endpoint is known to return.
type apiErrorResponse struct {
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
}
