package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData holds the fields rendered onto a participation certificate.
type CertificateData struct {
	CertificateID string
	StudentName   string
	EnrollmentID  string
	EventName     string
	EventType     string
	IssuedAt      time.Time
}

// CertificateRenderer produces participation certificates as PDF documents.
type CertificateRenderer struct {
	organization string
}

// NewCertificateRenderer constructs a renderer branded with the organization name.
func NewCertificateRenderer(organization string) *CertificateRenderer {
	if organization == "" {
		organization = "Campus Events"
	}
	return &CertificateRenderer{organization: organization}
}

// Render creates the certificate PDF.
func (r *CertificateRenderer) Render(data CertificateData) ([]byte, error) {
	if data.StudentName == "" || data.EventName == "" {
		return nil, fmt.Errorf("certificate requires student and event names")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 22)
	pdf.CellFormat(0, 14, strings.ToUpper(r.organization), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 16)
	pdf.CellFormat(0, 12, "Certificate of Participation", "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "This is to certify that", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, data.StudentName, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("(Enrollment %s)", data.EnrollmentID), "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.CellFormat(0, 8, "has participated in", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 14)
	title := data.EventName
	if data.EventType != "" {
		title = fmt.Sprintf("%s (%s)", data.EventName, data.EventType)
	}
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued on %s", data.IssuedAt.Format("02 January 2006")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Certificate ID: %s", data.CertificateID), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
