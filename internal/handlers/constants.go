package handlers

// Common error message constants shared across handlers
const (
	ErrMsgUserNotFound        = "User not found"
	ErrMsgInvalidRequestBody  = "Invalid request body"
	ErrMsgUnauthorized        = "Unauthorized"
	ErrMsgUserIDNotFound      = "User ID not found"
	ErrMsgInvalidProjectID    = "Invalid project ID"
	ErrMsgInvalidDeliverable  = "Invalid deliverable ID"
	ErrMsgInvalidEvaluationID = "Invalid evaluation ID"
	ErrMsgPermissionDenied    = "permission denied"
	ErrMsgNotFound            = "not found"
)

// API path constants
const (
	AuthAPIBasePath = "/api/v1/auth"
)
