package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Fepozopo/exifgps/pkg/exif"
	"github.com/Fepozopo/exifgps/pkg/geotag"
	"github.com/Fepozopo/exifgps/pkg/gps"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// errorKinds maps codec error kinds to an HTTP status and API code.
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{exif.ErrInvalidContainer, http.StatusUnsupportedMediaType, "invalid_container"},
	{exif.ErrMalformedSegment, http.StatusUnprocessableEntity, "malformed_segment"},
	{exif.ErrUnsupportedTag, http.StatusUnprocessableEntity, "unsupported_tag"},
	{exif.ErrValueTooLarge, http.StatusRequestEntityTooLarge, "value_too_large"},
	{gps.ErrOutOfRange, http.StatusBadRequest, "out_of_range"},
	{gps.ErrInvalidReference, http.StatusUnprocessableEntity, "invalid_reference"},
	{gps.ErrInvalidRational, http.StatusUnprocessableEntity, "invalid_rational"},
	{geotag.ErrNoLocation, http.StatusNotFound, "no_location"},
}

// writeCodecError writes err using the matching error kind, or a 500.
func writeCodecError(w http.ResponseWriter, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		WriteAPIError(w, http.StatusRequestEntityTooLarge, "value_too_large", err.Error())
		return
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			WriteAPIError(w, k.status, k.code, err.Error())
			return
		}
	}
	WriteAPIError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
