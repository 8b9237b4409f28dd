package http

import (
	"net/http"
	"strconv"

	"tripdesk/pkg/config"
	apperrors "tripdesk/pkg/errors"
)

// ExtractPage reads the 1-indexed "page" query parameter. Missing or
// sub-1 values clamp to page 1.
func ExtractPage(r *http.Request) (int, error) {
	s := r.URL.Query().Get("page")
	if s == "" {
		return 1, nil
	}

	page, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperrors.InvalidInput("invalid page parameter: " + s)
	}

	return config.NormalizePage(page), nil
}
