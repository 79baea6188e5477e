package httpx

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	validate = validator.New()
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(code library.ErrCode) int {
	switch code {
	case library.CodeNotFound:
		return http.StatusNotFound
	case library.CodeInvalidInput:
		return http.StatusBadRequest
	case library.CodeAvailabilityExhausted, library.CodeRenewalLimitExceeded, library.CodeInvalidState,
		library.CodeConflict, library.CodeBorrowLimitReached:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError maps typed library errors to their status. Anything else is
// logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	code := library.Code(err)
	if code == "" {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: "INTERNAL"})
		return
	}
	writeJSON(w, statusFor(code), errorBody{Error: err.Error(), Code: string(code)})
}

// decode reads an optional JSON body into dst and validates it.
func decode(r *http.Request, dst any) error {
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return library.Errorf(library.CodeInvalidInput, "invalid json")
		}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return library.Errorf(library.CodeInvalidInput, "field %s failed %s", verrs[0].Field(), verrs[0].Tag())
		}
		return library.Errorf(library.CodeInvalidInput, "%s", err.Error())
	}
	return nil
}
