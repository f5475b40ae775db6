// Package output provides JSON/text output formatting and error handling.
package output

// Exit codes.
const (
	ExitOK      = 0 // Success
	ExitUsage   = 1 // Invalid arguments or flags
	ExitAuth    = 3 // Not authenticated / authorization failed
	ExitNetwork = 6 // Connection/DNS/timeout error
	ExitAPI     = 7 // Server returned error
	ExitPublish = 8 // Publish pipeline failed
)

// Error codes for JSON envelope.
const (
	CodeUsage    = "usage"
	CodeAuth     = "auth_required"
	CodeExchange = "exchange_failed"
	CodeUpload   = "upload_failed"
	CodePublish  = "publish_failed"
	CodeNetwork  = "network"
	CodeAPI      = "api_error"
)

// ExitCodeFor returns the exit code for a given error code.
func ExitCodeFor(code string) int {
	switch code {
	case CodeUsage:
		return ExitUsage
	case CodeAuth, CodeExchange:
		return ExitAuth
	case CodeNetwork:
		return ExitNetwork
	case CodeUpload, CodePublish:
		return ExitPublish
	case CodeAPI:
		return ExitAPI
	default:
		return ExitAPI
	}
}
