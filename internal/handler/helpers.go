package handler

import (
	"errors"
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	internal_errors "github.com/itchan-dev/guestbook/internal/errors"
	"github.com/itchan-dev/guestbook/internal/logger"
)

// writeError answers with the status mapped from err. Client errors carry
// their reason; server errors are logged and answered with the status text only.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := internal_errors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
		http.Error(w, http.StatusText(status), status)
		return
	}
	if status == http.StatusNotFound {
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}

// bodyError classifies a failure while reading the request body.
// Typed errors pass through unless the body limit was hit.
// A DecodeError raised below the handler gets the field name filled in.
func bodyError(field string, err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return &internal_errors.DecodeError{
			Field: field,
			Err:   fmt.Errorf("%w: limit is %d bytes", internal_errors.ErrPayloadTooLarge, maxBytesErr.Limit),
		}
	}
	var decodeErr *internal_errors.DecodeError
	if errors.As(err, &decodeErr) {
		if decodeErr.Field == "" {
			decodeErr.Field = field
		}
		return err
	}
	if internal_errors.Is[*internal_errors.StorageError](err) {
		return err
	}
	return &internal_errors.DecodeError{Field: field, Err: err}
}
