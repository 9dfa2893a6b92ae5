package capture

import (
	"net/http"

	"github.com/argusops/argus-go/pkg/domain"
)

// Middleware records inbound requests as navigation transitions and reports
// handler panics at the request boundary (entry kind "window"). The panic is
// re-raised after reporting so the server's own recovery semantics are
// unchanged.
func Middleware(recorder Recorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder.RecordNavigation(r.Referer(), r.URL.Path)

		defer func() {
			if rec := recover(); rec != nil {
				panic(recorder.ReportPanic(rec, domain.KindWindow))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
