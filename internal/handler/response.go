package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Failure messages that do not come from domain outcomes.
const (
	msgValidationFailed = "Validation failed"
	msgInvalidBody      = "Invalid request body"
	msgCouponNotFound   = "Coupon not found"
	msgNotFound         = "Not Found"
	msgMethodNotAllowed = "Method Not Allowed"
	msgInternal         = "Internal Server Error"
)

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeOK writes {"data":...,"success":true}.
func writeOK(w http.ResponseWriter, data func(e *jx.Encoder)) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("data", func(e *jx.Encoder) { e.Obj(data) })
		e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
	})
	writeJSON(w, http.StatusOK, &e)
}

// writeFail writes {"success":false,"error":msg,"details":details}, with
// details encoded as null when nil.
func writeFail(w http.ResponseWriter, status int, msg string, details func(e *jx.Encoder)) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
		e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
		e.Field("details", func(e *jx.Encoder) {
			if details == nil {
				e.Null()
				return
			}
			details(e)
		})
	})
	writeJSON(w, status, &e)
}

func fieldErrorDetails(errs []FieldError) func(e *jx.Encoder) {
	return func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, fe := range errs {
				e.Obj(func(e *jx.Encoder) {
					e.Field("field", func(e *jx.Encoder) { e.Str(fe.Field) })
					e.Field("message", func(e *jx.Encoder) { e.Str(fe.Message) })
				})
			}
		})
	}
}

func stringDetails(s ...string) func(e *jx.Encoder) {
	return func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, v := range s {
				e.Str(v)
			}
		})
	}
}

// encodeDecimal writes d as a JSON number without float rounding.
func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

// NotFound answers unknown routes with the failure envelope.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeFail(w, http.StatusNotFound, msgNotFound, nil)
}

// MethodNotAllowed answers known routes hit with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeFail(w, http.StatusMethodNotAllowed, msgMethodNotAllowed, nil)
}
