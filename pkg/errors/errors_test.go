package errors

import (
	stderrors "errors"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_ErrorString(t *testing.T) {
	plain := NotFound("Lead")
	if plain.Error() != "NOT_FOUND: Lead not found" {
		t.Errorf("unexpected error string: %q", plain.Error())
	}

	cause := stderrors.New("connection reset")
	wrapped := Internal("Failed to retrieve lead", cause)
	if !strings.Contains(wrapped.Error(), "caused by: connection reset") {
		t.Errorf("expected cause in error string, got %q", wrapped.Error())
	}
	if !stderrors.Is(wrapped, cause) {
		t.Error("expected errors.Is to reach the wrapped cause")
	}
}

func TestConstructors_StatusCodes(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{NotFound("Lead"), CodeNotFound, http.StatusNotFound},
		{InvalidInput("bad"), CodeInvalidInput, http.StatusBadRequest},
		{Unauthorized("no"), CodeUnauthorized, http.StatusUnauthorized},
		{Forbidden("no"), CodeForbidden, http.StatusForbidden},
		{Conflict("clash"), CodeConflict, http.StatusConflict},
		{Validation("invalid", nil), CodeValidation, http.StatusUnprocessableEntity},
		{Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
		{Timeout("slow"), CodeTimeout, http.StatusGatewayTimeout},
		{Unavailable("Mongo"), CodeUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		if tc.err.Code != tc.code {
			t.Errorf("expected code %s, got %s", tc.code, tc.err.Code)
		}
		if tc.err.StatusCode() != tc.status {
			t.Errorf("%s: expected status %d, got %d", tc.code, tc.status, tc.err.StatusCode())
		}
	}
}

func TestValidation_CarriesFieldErrors(t *testing.T) {
	err := Validation("Lead is not ready to be marked as won", map[string]string{
		"trip_cost": "must be set",
	})

	json := string(err.ToJSON())
	if !strings.Contains(json, `"field_errors"`) || !strings.Contains(json, `"trip_cost"`) {
		t.Errorf("expected field errors in JSON, got %s", json)
	}
}

func TestAsAppError(t *testing.T) {
	original := Forbidden("nope")
	if AsAppError(original) != original {
		t.Error("expected an AppError to pass through unchanged")
	}

	converted := AsAppError(stderrors.New("mongo: no documents in result"))
	if converted.Code != CodeInternal {
		t.Errorf("expected unknown errors to become internal, got %s", converted.Code)
	}
	if strings.Contains(converted.Message, "mongo") {
		t.Errorf("storage detail must not leak into the message: %q", converted.Message)
	}
}
