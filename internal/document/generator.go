package document

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/magnogrupo/portal/internal/model"
)

// Uploader is the slice of the storage layer the generator needs.
type Uploader interface {
	Save(ctx context.Context, path string, file io.Reader) error
	URL(path string) string
}

// Generated holds the storage URLs of one generation pass. KeysURL is empty
// when the owner did not hand over keys.
type Generated struct {
	RecruitmentURL string
	KeysURL        string
}

// Generator renders the recruitment agreement and key receipt PDFs and
// stores them in the documents bucket.
type Generator struct {
	store Uploader
}

func NewGenerator(store Uploader) *Generator {
	return &Generator{store: store}
}

// GenerateUnsigned renders the document set for review before signing.
// Unsigned copies live under the owner's namespace and are never
// overwritten: each pass writes fresh timestamped objects so the audit
// trail keeps what the owner actually saw.
func (g *Generator) GenerateUnsigned(ctx context.Context, userID string, sub *model.Submission) (Generated, error) {
	var out Generated
	ts := time.Now().Unix()

	recPath := fmt.Sprintf("%s/submissions/recruitment_unsigned_%d.pdf", userID, ts)
	err := g.render(ctx, recPath, recruitmentPDF(sub, ""))
	if err != nil {
		return out, fmt.Errorf("failed to generate recruitment document: %w", err)
	}
	out.RecruitmentURL = g.store.URL(recPath)

	if sub.FormData.KeysProvided {
		keysPath := fmt.Sprintf("%s/submissions/keys_unsigned_%d.pdf", userID, ts)
		err = g.render(ctx, keysPath, keyReceiptPDF(sub, ""))
		if err != nil {
			// The key receipt is supplementary: the owner can still sign the
			// recruitment agreement, so log and move on.
			slog.Error("key receipt generation failed", "user_id", userID, "error", err)
		} else {
			out.KeysURL = g.store.URL(keysPath)
		}
	}

	return out, nil
}

// GenerateSigned renders the final document set with the owner's signature
// embedded. Signed copies live under the submission id.
func (g *Generator) GenerateSigned(ctx context.Context, sub *model.Submission, signatureDataURL string) (Generated, error) {
	var out Generated
	ts := time.Now().Unix()

	recPath := fmt.Sprintf("%s/recruitment_signed_%s_%d.pdf", sub.ID, uuid.New().String(), ts)
	err := g.render(ctx, recPath, recruitmentPDF(sub, signatureDataURL))
	if err != nil {
		return out, fmt.Errorf("failed to generate signed recruitment document: %w", err)
	}
	out.RecruitmentURL = g.store.URL(recPath)

	if sub.FormData.KeysProvided {
		keysPath := fmt.Sprintf("%s/recruitment_keys_signed_%s_%d.pdf", sub.ID, uuid.New().String(), ts)
		err = g.render(ctx, keysPath, keyReceiptPDF(sub, signatureDataURL))
		if err != nil {
			slog.Error("signed key receipt generation failed", "submission_id", sub.ID, "error", err)
		} else {
			out.KeysURL = g.store.URL(keysPath)
		}
	}

	return out, nil
}

func (g *Generator) render(ctx context.Context, path string, pdf *fpdf.Fpdf) error {
	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return err
	}
	return g.store.Save(ctx, path, &buf)
}

// Row is one labeled value printed on a document.
type Row struct {
	Label string
	Value string
}

// RecruitmentRows lists the fields the recruitment agreement prints, in
// document order. The listing type lives on the submission, not the form.
func RecruitmentRows(sub *model.Submission) []Row {
	form := &sub.FormData
	name := strings.TrimSpace(form.ContactFirstNames + " " + form.ContactLastNames)
	rows := []Row{
		{"Owner", name},
		{"Email", form.ContactEmail},
		{"Phone", form.ContactPhone},
		{"Nationality", form.ContactNationality},
		{"Legal status", form.LegalStatus},
		{"Property address", form.Address},
		{"Property type", form.PropertyType},
		{"Listing type", sub.Type},
		{"Condition", form.Condition},
		{"Land area (m²)", form.LandArea},
		{"Construction area (m²)", form.ConstructionArea},
		{"Price", form.Price},
	}
	if form.MaintenanceFee != "" {
		rows = append(rows, Row{"Maintenance fee", form.MaintenanceFee})
	}
	return rows
}

// KeyReceiptRows lists the fields printed on the key receipt.
func KeyReceiptRows(form *model.FormData) []Row {
	name := strings.TrimSpace(form.ContactFirstNames + " " + form.ContactLastNames)
	return []Row{
		{"Owner", name},
		{"Property address", form.Address},
		{"Keys received", "Yes"},
		{"Date", time.Now().Format("2006-01-02")},
	}
}

func recruitmentPDF(sub *model.Submission, signatureDataURL string) *fpdf.Fpdf {
	pdf := newDoc("Property Recruitment Agreement")
	writeRows(pdf, RecruitmentRows(sub))
	writeTerms(pdf, recruitmentTerms)
	writeSignature(pdf, sub, signatureDataURL)
	return pdf
}

func keyReceiptPDF(sub *model.Submission, signatureDataURL string) *fpdf.Fpdf {
	pdf := newDoc("Key Receipt")
	writeRows(pdf, KeyReceiptRows(&sub.FormData))
	writeTerms(pdf, keyReceiptTerms)
	writeSignature(pdf, sub, signatureDataURL)
	return pdf
}

const recruitmentTerms = "The owner authorizes the brokerage to market the property described " +
	"above, to publish it on its channels, and to receive offers on the owner's behalf. " +
	"The agreed brokerage fee applies upon a completed transaction."

const keyReceiptTerms = "The brokerage acknowledges receipt of the keys to the property " +
	"described above, to be used exclusively for showings and returned on request."

func newDoc(title string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, title, "", 1, "C", false, 0, "")
	pdf.Ln(4)
	return pdf
}

func writeRows(pdf *fpdf.Fpdf, rows []Row) {
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(55, 8, row.Label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 8, row.Value, "", "L", false)
	}
	pdf.Ln(4)
}

func writeTerms(pdf *fpdf.Fpdf, terms string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, terms, "", "L", false)
	pdf.Ln(8)
}

// writeSignature draws the signature block: the embedded image and date when
// signed, an empty line when not.
func writeSignature(pdf *fpdf.Fpdf, sub *model.Submission, signatureDataURL string) {
	pdf.SetFont("Helvetica", "", 10)
	if signatureDataURL == "" {
		pdf.Ln(16)
		pdf.CellFormat(0, 6, "_________________________", "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 6, "Owner signature", "", 1, "L", false, 0, "")
		return
	}

	raw, err := decodeDataURL(signatureDataURL)
	if err != nil {
		slog.Error("signature image decode failed", "submission_id", sub.ID, "error", err)
	} else {
		name := "signature-" + uuid.New().String()
		pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(raw))
		pdf.ImageOptions(name, pdf.GetX(), pdf.GetY(), 60, 0, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
	pdf.CellFormat(0, 6, "Owner signature", "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Signed on "+time.Now().Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
}

func decodeDataURL(dataURL string) ([]byte, error) {
	_, encoded, ok := strings.Cut(dataURL, ",")
	if !ok {
		return nil, fmt.Errorf("malformed signature data URL")
	}
	return base64.StdEncoding.DecodeString(encoded)
}
