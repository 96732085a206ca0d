package api

import (
	"fmt"
	"net/http"
	"os"

	"github.com/camhien7804/Nha-Khoa-OU/internal/appointment"
	"github.com/camhien7804/Nha-Khoa-OU/internal/invoice"
)

// downloadInvoiceHandler serves the invoice PDF, rendering it on demand
// when the background worker has not produced one yet.
func downloadInvoiceHandler(svc *appointment.Service, renderer *invoice.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFrom(r.Context())
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		detail, err := svc.GetAppointment(r.Context(), actor, id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		path := renderer.Path(detail)
		if _, statErr := os.Stat(path); statErr != nil {
			path, err = renderer.Render(detail)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "invoice_render_failed", err.Error())
				return
			}
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("invoice_%s.pdf", detail.ID)))
		http.ServeFile(w, r, path)
	}
}
