package http

import (
	"encoding/json"
	"net/http"

	apperrors "tripdesk/pkg/errors"
)

type ErrorResponse struct {
	Error       string            `json:"error"`
	Details     map[string]any    `json:"details,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

type SuccessResponse struct {
	Data any `json:"data,omitempty"`
}

// MutationResponse is the structured result of every mutating action.
// Warning carries a qualified-success note, e.g. when a follow-up email
// could not be sent but the primary write committed.
type MutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Warning string `json:"warning,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type PaginatedResponse struct {
	Data       any   `json:"data"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError renders an error as the structured JSON error shape.
// Non-AppError values are masked as a generic internal error so
// storage-layer detail never reaches the caller.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := apperrors.AsAppError(err)

	resp := ErrorResponse{
		Error:       appErr.Message,
		Details:     appErr.Details,
		FieldErrors: appErr.FieldErrors,
	}
	if appErr.Code == apperrors.CodeInternal {
		resp = ErrorResponse{Error: "Internal server error"}
	}

	return WriteJSON(w, appErr.HTTPStatus, resp)
}

func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

func WriteCreated(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusCreated, SuccessResponse{Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func WriteMutation(w http.ResponseWriter, statusCode int, resp MutationResponse) error {
	return WriteJSON(w, statusCode, resp)
}

func WritePaginated(w http.ResponseWriter, data any, totalCount int64, page, pageSize int) error {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((totalCount + int64(pageSize) - 1) / int64(pageSize))
	}
	return WriteJSON(w, http.StatusOK, PaginatedResponse{
		Data:       data,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}
