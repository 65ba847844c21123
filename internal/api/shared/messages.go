package shared

// MessageCode tags a response with a stable, machine-readable meaning.
// Clients branch on the code, never on the text.
type MessageCode string

const (
	CodeSuccess     MessageCode = "SUCCESS"
	CodeCreated     MessageCode = "CREATED"
	CodeUpdated     MessageCode = "UPDATED"
	CodeDeleted     MessageCode = "DELETED"
	CodeNoContent   MessageCode = "NO_CONTENT"
	CodeUserCreated MessageCode = "USER_CREATED"
	CodeUserUpdated MessageCode = "USER_UPDATED"
	CodeUserDeleted MessageCode = "USER_DELETED"
	CodeUsersFound  MessageCode = "USERS_FETCHED"
	CodeUserFound   MessageCode = "USER_FETCHED"
	CodeLogin       MessageCode = "LOGIN_SUCCESS"
	CodeLogout      MessageCode = "LOGOUT_SUCCESS"
	CodeUploaded    MessageCode = "FILE_UPLOADED"
	CodeHealthy     MessageCode = "HEALTHY"

	CodeBadRequest         MessageCode = "BAD_REQUEST"
	CodeValidationFailed   MessageCode = "VALIDATION_FAILED"
	CodeMalformedRequest   MessageCode = "MALFORMED_REQUEST"
	CodeUnauthorized       MessageCode = "UNAUTHORIZED"
	CodeInvalidCredentials MessageCode = "INVALID_CREDENTIALS"
	CodeTokenInvalid       MessageCode = "TOKEN_INVALID"
	CodeTokenExpired       MessageCode = "TOKEN_EXPIRED"
	CodeForbidden          MessageCode = "FORBIDDEN"
	CodeNotFound           MessageCode = "NOT_FOUND"
	CodeConflict           MessageCode = "CONFLICT"
	CodeUploadFailed       MessageCode = "UPLOAD_FAILED"
	CodeTooManyRequests    MessageCode = "TOO_MANY_REQUESTS"
	CodeUnprocessable      MessageCode = "UNPROCESSABLE_ENTITY"
	CodeInternalError      MessageCode = "INTERNAL_ERROR"
	CodeServiceUnavailable MessageCode = "SERVICE_UNAVAILABLE"
)

var messageTexts = map[MessageCode]string{
	CodeSuccess:     "Success",
	CodeCreated:     "Resource created successfully",
	CodeUpdated:     "Resource updated successfully",
	CodeDeleted:     "Resource deleted successfully",
	CodeNoContent:   "No content",
	CodeUserCreated: "User registered successfully",
	CodeUserUpdated: "User updated successfully",
	CodeUserDeleted: "User deleted successfully",
	CodeUsersFound:  "Users retrieved successfully",
	CodeUserFound:   "User retrieved successfully",
	CodeLogin:       "Login successful",
	CodeLogout:      "Logout successful",
	CodeUploaded:    "File uploaded successfully",
	CodeHealthy:     "Service is healthy",

	CodeBadRequest:         "Bad request",
	CodeValidationFailed:   "Invalid input data",
	CodeMalformedRequest:   "Malformed request body",
	CodeUnauthorized:       "Authentication required",
	CodeInvalidCredentials: "Invalid credentials",
	CodeTokenInvalid:       "Invalid token",
	CodeTokenExpired:       "Token has expired",
	CodeForbidden:          "Access denied",
	CodeNotFound:           "Resource not found",
	CodeConflict:           "Resource already exists",
	CodeUploadFailed:       "File upload failed",
	CodeTooManyRequests:    "Too many requests, please try again later",
	CodeUnprocessable:      "Unprocessable entity",
	CodeInternalError:      "Internal server error",
	CodeServiceUnavailable: "Service temporarily unavailable",
}

// Text returns the canonical text for c, or "" if c is not a known code.
func (c MessageCode) Text() string {
	return messageTexts[c]
}

// Known reports whether c belongs to the closed set of codes.
func (c MessageCode) Known() bool {
	_, ok := messageTexts[c]
	return ok
}

// resolveMessage applies the message precedence: a known code wins and is
// echoed, free text is used verbatim without a code, and otherwise the
// fallback code applies.
func resolveMessage(code MessageCode, message string, fallback MessageCode) (string, MessageCode) {
	switch {
	case code.Known():
		return code.Text(), code
	case message != "":
		return message, ""
	default:
		return fallback.Text(), fallback
	}
}
