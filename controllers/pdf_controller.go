// controllers/pdf_controller.go
package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"devis-backend/services"
	"devis-backend/utils"

	"github.com/gin-gonic/gin"
)

// PDFController sert la version publique du devis, accessible par token
// opaque uniquement (le lien partagé au client final).
type PDFController struct {
	QuotationSvc *services.QuotationService
	PDFSvc       *services.PDFService
}

func NewPDFController(svc *services.QuotationService, pdfSvc *services.PDFService) *PDFController {
	return &PDFController{QuotationSvc: svc, PDFSvc: pdfSvc}
}

// GetPublicPDF: GET /api/pdf/:token. Token inconnu → 404, sans distinguer
// devis supprimé et token jamais émis.
func (ctrl *PDFController) GetPublicPDF(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		utils.JSONError(c, http.StatusBadRequest, "error.missingToken", "Token manquant.")
		return
	}

	quotation, err := ctrl.QuotationSvc.GetByPublicToken(token)
	if err != nil {
		if errors.Is(err, services.ErrQuotationNotFound) {
			utils.JSONError(c, http.StatusNotFound, "error.quotationNotFound", "Devis introuvable.")
			return
		}
		log.Printf("GetPublicPDF error: %v", err)
		utils.JSONError(c, http.StatusInternalServerError, "error.internal", "Erreur interne.")
		return
	}

	pdfBytes, err := ctrl.PDFSvc.GenerateQuotationPDF(quotation)
	if err != nil {
		log.Printf("GetPublicPDF render error for %s: %v", quotation.Reference, err)
		utils.JSONError(c, http.StatusInternalServerError, "error.pdfFailed", "Impossible de générer le PDF.")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%s.pdf", quotation.Reference))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
