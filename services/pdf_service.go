// services/pdf_service.go
package services

import (
	"bytes"
	"fmt"
	"time"

	"devis-backend/models"
	"devis-backend/utils"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// PDFService rend le devis en PDF A4. BaseURL sert à construire le lien
// public encodé dans le QR code.
type PDFService struct {
	BaseURL     string
	CompanyName string
}

func NewPDFService(baseURL, companyName string) *PDFService {
	if companyName == "" {
		companyName = "Plaquiste Pro"
	}
	return &PDFService{BaseURL: baseURL, CompanyName: companyName}
}

func formatEUR(v float64) string {
	return fmt.Sprintf("%.2f EUR", v)
}

func formatQty(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

// GenerateQuotationPDF construit le document complet: en-tête, coordonnées
// client et chantier, lignes par pièce et travail, récapitulatif, QR code.
func (s *PDFService) GenerateQuotationPDF(q *models.Quotation) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Devis "+q.Reference, false)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// En-tête
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(120, 10, tr(s.CompanyName))
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr("DEVIS "+q.Reference), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, tr("Date : "+q.CreatedAt.Format("02/01/2006")), "", 1, "R", false, 0, "")
	if q.ValidityDate != nil {
		pdf.CellFormat(0, 5, tr("Valable jusqu'au : "+q.ValidityDate.Format("02/01/2006")), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Client / chantier
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(95, 6, tr("Client"))
	pdf.Cell(95, 6, tr("Chantier"))
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(95, 5, tr(q.ClientName))
	pdf.Cell(95, 5, tr(q.SiteAddress))
	pdf.Ln(5)
	pdf.Cell(95, 5, tr(q.ClientEmail))
	pdf.Cell(95, 5, tr(q.SitePostalCode+" "+q.SiteCity))
	pdf.Ln(5)
	if q.ClientPhone != "" {
		pdf.Cell(95, 5, tr(q.ClientPhone))
		pdf.Ln(5)
	}
	pdf.Ln(5)

	// Détail par pièce
	for _, room := range q.Rooms {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetFillColor(235, 235, 235)
		pdf.CellFormat(0, 7, tr(room.DisplayName()), "1", 1, "L", true, 0, "")

		for _, work := range room.Works {
			pdf.SetFont("Helvetica", "BI", 9)
			label := models.WorkTypeLabel(work.WorkType)
			if work.Epaisseur != "" {
				label += fmt.Sprintf(" (ép. %s mm)", work.Epaisseur)
			}
			label += fmt.Sprintf(" - %.2f m²", work.Surface)
			pdf.CellFormat(0, 6, tr(label), "", 1, "L", false, 0, "")

			pdf.SetFont("Helvetica", "B", 8)
			pdf.SetFillColor(245, 245, 245)
			pdf.CellFormat(85, 5, tr("Désignation"), "1", 0, "L", true, 0, "")
			pdf.CellFormat(20, 5, tr("Qté"), "1", 0, "C", true, 0, "")
			pdf.CellFormat(20, 5, tr("Unité"), "1", 0, "C", true, 0, "")
			pdf.CellFormat(30, 5, tr("PU HT"), "1", 0, "R", true, 0, "")
			pdf.CellFormat(35, 5, tr("Total HT"), "1", 1, "R", true, 0, "")

			pdf.SetFont("Helvetica", "", 8)
			for _, item := range work.Items {
				designation := item.Designation
				if item.IsModified {
					designation += " *"
				}
				pdf.CellFormat(85, 5, tr(designation), "1", 0, "L", false, 0, "")
				pdf.CellFormat(20, 5, formatQty(item.QuantityAdjusted), "1", 0, "C", false, 0, "")
				pdf.CellFormat(20, 5, tr(item.Unit), "1", 0, "C", false, 0, "")
				pdf.CellFormat(30, 5, formatEUR(item.UnitPrice), "1", 0, "R", false, 0, "")
				pdf.CellFormat(35, 5, formatEUR(item.TotalHT), "1", 1, "R", false, 0, "")
			}

			pdf.SetFont("Helvetica", "B", 8)
			pdf.CellFormat(155, 5, tr("Sous-total travail"), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 5, formatEUR(work.SubtotalHT), "1", 1, "R", false, 0, "")
			pdf.Ln(2)
		}

		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(155, 6, tr("Sous-total "+room.DisplayName()), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, formatEUR(room.SubtotalHT), "1", 1, "R", false, 0, "")
		pdf.Ln(4)
	}

	// Récapitulatif
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(155, 6, tr("Total HT"), "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, formatEUR(q.TotalHT), "", 1, "R", false, 0, "")
	if q.DiscountPercent > 0 {
		pdf.CellFormat(155, 6, tr(fmt.Sprintf("Remise (%.1f %%)", q.DiscountPercent)), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, tr("- "+formatEUR(q.DiscountAmount)), "", 1, "R", false, 0, "")
	}
	pdf.CellFormat(155, 6, tr(fmt.Sprintf("TVA (%.1f %%)", q.TVARate)), "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, formatEUR(q.TotalTVA), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(155, 8, tr("Total TTC"), "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, formatEUR(q.TotalTTC), "", 1, "R", false, 0, "")

	if q.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, 5, tr("Notes"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, tr(q.Notes), "", "L", false)
	}

	// QR code vers la version en ligne
	if s.BaseURL != "" && q.PublicToken != "" {
		publicURL := utils.BuildPublicPDFLink(s.BaseURL, q.PublicToken)
		png, err := qrcode.Encode(publicURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("failed to encode qr code: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("quotation-qr", opts, bytes.NewReader(png))
		pdf.Ln(4)
		y := pdf.GetY()
		pdf.ImageOptions("quotation-qr", 12, y, 25, 25, false, opts, 0, "")
		pdf.SetXY(40, y+8)
		pdf.SetFont("Helvetica", "", 8)
		pdf.MultiCell(100, 4, tr("Scannez ce code pour consulter le devis en ligne."), "", "L", false)
		pdf.SetY(y + 28)
	}

	// Pied de page
	pdf.SetFont("Helvetica", "I", 7)
	pdf.SetTextColor(120, 120, 120)
	footer := fmt.Sprintf("Devis %s - %s - édité le %s. Estimations établies selon les règles de l'art (DTU 25.41). * quantité ajustée manuellement.",
		q.Reference, s.CompanyName, time.Now().Format("02/01/2006"))
	pdf.MultiCell(0, 4, tr(footer), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
