package httpapi

import (
	"errors"
	"net/http"

	"opsboard.io/internal/auth"
	"opsboard.io/internal/dashboard"
)

type operation string

const (
	opRegister      operation = "register"
	opLogin         operation = "login"
	opListProjects  operation = "list_projects"
	opCreateProject operation = "create_project"
	opListWorkLogs  operation = "list_work_logs"
	opCreateWorkLog operation = "create_work_log"
	opOverview      operation = "overview"
)

// failureMessages are the public 500 messages for dashboard operations.
var failureMessages = map[operation]string{
	opListProjects:  "Failed to load projects.",
	opCreateProject: "Failed to create project.",
	opListWorkLogs:  "Failed to load work logs.",
	opCreateWorkLog: "Failed to create work log.",
	opOverview:      "Failed to load manager overview.",
}

const (
	msgRegisterInvalid   = "Name, email, and password are required."
	msgRegisterConflict  = "Email already registered."
	msgRegisterFailed    = "Failed to register user."
	msgPasswordTooLong   = "Password must be at most 72 bytes."
	msgLoginInvalid      = "Email and password are required."
	msgLoginUnauthorized = "Invalid credentials."
	msgLoginFailed       = "Failed to login."
	msgMissingAuth       = "Missing authorization header."
	msgInvalidToken      = "Invalid or expired token."
	msgInternal          = "Internal server error."
	msgBadJSON           = "Request body must be valid JSON."
	msgBodyTooLarge      = "Request body too large."
)

// errorResponse maps an internal error onto the status and public message
// for op. Internal detail never reaches the client.
func errorResponse(op operation, err error) (int, string) {
	switch op {
	case opRegister:
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			return http.StatusBadRequest, msgRegisterInvalid
		case errors.Is(err, auth.ErrEncoding):
			return http.StatusBadRequest, msgPasswordTooLong
		case errors.Is(err, auth.ErrAlreadyExists):
			return http.StatusConflict, msgRegisterConflict
		default:
			return http.StatusInternalServerError, msgRegisterFailed
		}
	case opLogin:
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			return http.StatusBadRequest, msgLoginInvalid
		case errors.Is(err, auth.ErrInvalidCredentials):
			return http.StatusUnauthorized, msgLoginUnauthorized
		default:
			return http.StatusInternalServerError, msgLoginFailed
		}
	default:
		var verr *dashboard.ValidationError
		switch {
		case errors.As(err, &verr):
			return http.StatusBadRequest, verr.Message
		case errors.Is(err, dashboard.ErrInvalidInput):
			return http.StatusBadRequest, "Invalid request."
		case errors.Is(err, auth.ErrMissingCredential):
			return http.StatusUnauthorized, msgMissingAuth
		case errors.Is(err, auth.ErrInvalidCredential), errors.Is(err, dashboard.ErrUnknownUser):
			return http.StatusUnauthorized, msgInvalidToken
		default:
			if msg, ok := failureMessages[op]; ok {
				return http.StatusInternalServerError, msg
			}
			return http.StatusInternalServerError, msgInternal
		}
	}
}

// outcome is the metric label for an auth attempt result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, auth.ErrEncoding):
		return "invalid_input"
	case errors.Is(err, auth.ErrAlreadyExists):
		return "conflict"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "error"
	}
}
