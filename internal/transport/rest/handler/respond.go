package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"spothire/internal/common"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads an optional JSON body into dst and validates it. An empty
// body leaves dst at its zero value.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body != nil {
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
		if err != nil && !errors.Is(err, io.EOF) {
			return common.Validation("invalid request body")
		}
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return common.Validation(fmt.Sprintf("%s is invalid", verrs[0].Field()))
		}
		return common.Validation("invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeServiceError maps an error kind to its HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, common.Message(err, "invalid request"))
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, common.Message(err, "not found"))
	case errors.Is(err, common.ErrConflict):
		writeError(w, http.StatusConflict, common.Message(err, "conflict"))
	case errors.Is(err, common.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Database not connected")
	default:
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}
