package invoice

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/camhien7804/Nha-Khoa-OU/internal/appointment"
	"github.com/camhien7804/Nha-Khoa-OU/internal/config"
)

// Renderer writes appointment invoices as PDF files under the configured
// output directory. Rendering is pure file IO; it never touches the
// database, so callers pass a fully loaded Detail.
type Renderer struct {
	cfg config.InvoiceConfig
}

func NewRenderer(cfg config.InvoiceConfig) *Renderer {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "invoices"
	}
	return &Renderer{cfg: cfg}
}

// Path returns where the invoice for an appointment lives on disk,
// whether or not it has been rendered yet.
func (r *Renderer) Path(d *appointment.Detail) string {
	return filepath.Join(r.cfg.OutputDir, fmt.Sprintf("invoice_%s.pdf", d.ID))
}

// Render produces the invoice PDF and returns its path. Re-rendering an
// appointment overwrites the previous file, so the invoice always reflects
// the latest state (a completed visit gains the treatment section).
func (r *Renderer) Render(d *appointment.Detail) (string, error) {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create invoice dir: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Invoice %s", d.ID), false)
	pdf.AddPage()

	r.header(pdf)
	r.patientBlock(pdf, d)
	r.appointmentBlock(pdf, d)
	if d.Status == appointment.StatusCompleted {
		r.treatmentBlock(pdf, d)
	}
	if err := r.qrBlock(pdf, d); err != nil {
		return "", err
	}
	r.footer(pdf)

	path := r.Path(d)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write invoice: %w", err)
	}
	return path, nil
}

func (r *Renderer) header(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, r.cfg.ClinicName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if r.cfg.ClinicAddress != "" {
		pdf.CellFormat(0, 5, r.cfg.ClinicAddress, "", 1, "C", false, 0, "")
	}
	if r.cfg.ClinicHotline != "" {
		pdf.CellFormat(0, 5, "Hotline: "+r.cfg.ClinicHotline, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "APPOINTMENT INVOICE", "", 1, "C", false, 0, "")
	pdf.Ln(2)
}

func (r *Renderer) patientBlock(pdf *gofpdf.Fpdf, d *appointment.Detail) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Patient", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	r.row(pdf, "Name", d.PatientName)
	r.row(pdf, "Phone", d.PatientPhone)
	if d.PatientEmail != "" {
		r.row(pdf, "Email", d.PatientEmail)
	}
	pdf.Ln(3)
}

func (r *Renderer) appointmentBlock(pdf *gofpdf.Fpdf, d *appointment.Detail) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Appointment", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	r.row(pdf, "Reference", d.ID.String())
	r.row(pdf, "Service", d.ServiceName)
	r.row(pdf, "Date", d.AppointmentDate.Format("02/01/2006"))
	r.row(pdf, "Time", d.TimeSlot)
	if d.DentistName != "" {
		dentist := d.DentistName
		if d.DentistSpecialization != nil && *d.DentistSpecialization != "" {
			dentist += " (" + *d.DentistSpecialization + ")"
		}
		r.row(pdf, "Dentist", dentist)
	}
	r.row(pdf, "Status", string(d.Status))
	r.row(pdf, "Payment", fmt.Sprintf("%s (%s)", d.PaymentStatus, d.PaymentMethod))
	pdf.SetFont("Helvetica", "B", 10)
	r.row(pdf, "Amount", fmt.Sprintf("%d VND", d.ServicePrice))
	pdf.Ln(3)
}

func (r *Renderer) treatmentBlock(pdf *gofpdf.Fpdf, d *appointment.Detail) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Treatment", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if d.TreatmentNotes != "" {
		r.row(pdf, "Notes", d.TreatmentNotes)
	}
	if len(d.Prescriptions) > 0 {
		r.row(pdf, "Prescriptions", strings.Join(d.Prescriptions, ", "))
	}
	for _, entry := range d.History {
		label := fmt.Sprintf("Visit %d", entry.Seq)
		value := entry.Date.Format("02/01/2006")
		if entry.Diagnosis != "" {
			value += " - " + entry.Diagnosis
		}
		if len(entry.Procedures) > 0 {
			value += " (" + strings.Join(entry.Procedures, ", ") + ")"
		}
		r.row(pdf, label, value)
	}
	if d.FollowUpDate != nil {
		r.row(pdf, "Follow-up", d.FollowUpDate.Format("02/01/2006"))
	}
	pdf.Ln(3)
}

// qrBlock embeds a QR code pointing at the online record for this
// appointment so front-desk staff can pull it up from a printed invoice.
func (r *Renderer) qrBlock(pdf *gofpdf.Fpdf, d *appointment.Detail) error {
	if r.cfg.LookupBaseURL == "" {
		return nil
	}
	url := strings.TrimRight(r.cfg.LookupBaseURL, "/") + "/" + d.ID.String()
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	name := "qr_" + d.ID.String()
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	pdf.ImageOptions(name, 170, 10, 28, 28, false, opts, 0, "")
	return nil
}

func (r *Renderer) footer(pdf *gofpdf.Fpdf) {
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 5, "Thank you for choosing "+r.cfg.ClinicName+".", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, "This invoice was generated automatically.", "", 1, "C", false, 0, "")
}

func (r *Renderer) row(pdf *gofpdf.Fpdf, label, value string) {
	pdf.CellFormat(40, 6, label, "", 0, "L", false, 0, "")
	pdf.MultiCell(0, 6, value, "", "L", false)
}
