package notify

import (
	"fmt"
	"strings"

	"github.com/camhien7804/Nha-Khoa-OU/internal/appointment"
)

// ConfirmationMessage builds the booking confirmation email. The rendered
// invoice is attached when invoicePath is non-empty.
func ConfirmationMessage(clinicName string, d *appointment.Detail, invoicePath string) Message {
	dentist := d.DentistName
	if dentist == "" {
		dentist = "to be assigned"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", d.PatientName)
	fmt.Fprintf(&b, "Your appointment at %s has been received.\n\n", clinicName)
	fmt.Fprintf(&b, "  Service:  %s\n", d.ServiceName)
	fmt.Fprintf(&b, "  Date:     %s\n", d.AppointmentDate.Format("Mon, 02 Jan 2006"))
	fmt.Fprintf(&b, "  Time:     %s\n", d.TimeSlot)
	fmt.Fprintf(&b, "  Dentist:  %s\n", dentist)
	fmt.Fprintf(&b, "  Price:    %s VND\n\n", formatAmount(d.ServicePrice))
	b.WriteString("Please arrive 10 minutes early. The invoice is attached.\n")

	msg := Message{
		To:      d.PatientEmail,
		ToName:  d.PatientName,
		Subject: fmt.Sprintf("Appointment confirmation - %s", d.AppointmentDate.Format("02/01/2006")),
		Text:    b.String(),
	}
	if invoicePath != "" {
		msg.Attachments = []Attachment{{
			Path:        invoicePath,
			Filename:    fmt.Sprintf("invoice_%s.pdf", d.ID),
			ContentType: "application/pdf",
		}}
	}
	return msg
}

// CancellationMessage builds the cancellation notice.
func CancellationMessage(clinicName string, d *appointment.Detail) Message {
	reason := "unspecified"
	if d.CancelReason != nil && *d.CancelReason != "" {
		reason = *d.CancelReason
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", d.PatientName)
	fmt.Fprintf(&b, "Your appointment at %s on %s (%s) has been cancelled.\n\n",
		clinicName, d.AppointmentDate.Format("Mon, 02 Jan 2006"), d.TimeSlot)
	fmt.Fprintf(&b, "Reason: %s\n\n", reason)
	b.WriteString("If this was not expected, please contact the front desk to rebook.\n")

	return Message{
		To:      d.PatientEmail,
		ToName:  d.PatientName,
		Subject: fmt.Sprintf("Appointment cancelled - %s", d.AppointmentDate.Format("02/01/2006")),
		Text:    b.String(),
	}
}

func formatAmount(v int64) string {
	s := fmt.Sprintf("%d", v)
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, ",")
}
