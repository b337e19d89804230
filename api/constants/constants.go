package constants

// Common error messages
const (
	ErrInvalidSession     = "invalid user_id or session"
	ErrInvalidJSON        = "invalid json or missing fields"
	ErrInvalidJSONShort   = "Invalid JSON"
	ErrMissingUserID      = "Missing or invalid user_id in body"
	ErrUserIDRequired     = "user_id required"
	ErrDB                 = "DB error"
	ErrInvalidRequestBody = "Invalid request body"
	ErrPleaseLogin        = "Please login to continue."
	ErrMethodNotAllowed   = "Method Not Allowed"
	ErrConfirmRequired    = "confirm must be true for destructive operations"
)

// DB / SQL error templates
const (
	ErrTxStartFailed  = "failed to start transaction: "
	ErrTxCommitFailed = "failed to commit transaction: "
	ErrQueryFailed    = "query failed: "
)

// Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "Content-Type"
	ContentTypePDF  = "application/pdf"
)

// CORS headers
const (
	HeaderAccessControlAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAccessControlAllowHeaders = "Access-Control-Allow-Headers"
)

// Date formats
const (
	DateTimeFormat = "2006-01-02 15:04:05"
	DateFormat     = "2006-01-02"
)
