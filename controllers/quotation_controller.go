// controllers/quotation_controller.go
package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"devis-backend/middleware"
	"devis-backend/services"
	"devis-backend/utils"

	"github.com/gin-gonic/gin"
)

type QuotationController struct {
	QuotationSvc *services.QuotationService
	PDFSvc       *services.PDFService
}

func NewQuotationController(svc *services.QuotationService, pdfSvc *services.PDFService) *QuotationController {
	return &QuotationController{QuotationSvc: svc, PDFSvc: pdfSvc}
}

// ---------------------------
// Helpers
// ---------------------------

func currentUserID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "error.missingToken", "Authentification requise.")
		return 0, false
	}
	return userID, true
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		utils.JSONError(c, http.StatusBadRequest, "error.invalidId",
			fmt.Sprintf("Identifiant %q invalide.", raw))
		return 0, false
	}
	return uint(parsed), true
}

// respondQuotationError mappe les erreurs service vers l'enveloppe HTTP.
func respondQuotationError(c *gin.Context, err error) {
	var verrs services.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		utils.JSONValidationError(c, verrs)
	case errors.Is(err, services.ErrQuotationNotFound):
		utils.JSONError(c, http.StatusNotFound, "error.quotationNotFound", "Devis introuvable.")
	case errors.Is(err, services.ErrItemNotFound):
		utils.JSONError(c, http.StatusNotFound, "error.itemNotFound", "Ligne de devis introuvable.")
	case errors.Is(err, services.ErrNotEditable):
		utils.JSONError(c, http.StatusUnprocessableEntity, "error.notEditable",
			"Seul un devis en brouillon peut être modifié.")
	case errors.Is(err, services.ErrStatusConflict):
		utils.JSONError(c, http.StatusUnprocessableEntity, "error.statusConflict",
			"Un devis envoyé ne peut pas revenir en brouillon.")
	default:
		log.Printf("quotation error: %v", err)
		utils.JSONErrorDetails(c, http.StatusInternalServerError, "error.internal",
			"Erreur interne.", err.Error())
	}
}

// ---------------------------
// CRUD
// ---------------------------

func (ctrl *QuotationController) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "15"))
	filters := services.ListFilters{
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		DateFrom: c.Query("date_from"),
		DateTo:   c.Query("date_to"),
		Page:     page,
		PerPage:  perPage,
	}

	quotations, total, err := ctrl.QuotationSvc.List(userID, filters)
	if err != nil {
		respondQuotationError(c, err)
		return
	}

	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"quotations": quotations,
		"total":      total,
		"page":       filters.Page,
		"per_page":   filters.PerPage,
	})
}

func (ctrl *QuotationController) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var payload services.QuotationInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONErrorDetails(c, http.StatusBadRequest, "error.invalidPayload", "Payload invalide.", err.Error())
		return
	}

	quotation, err := ctrl.QuotationSvc.Create(userID, &payload)
	if err != nil {
		respondQuotationError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, quotation)
}

func (ctrl *QuotationController) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	quotation, err := ctrl.QuotationSvc.Get(userID, id)
	if err != nil {
		respondQuotationError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, quotation)
}

func (ctrl *QuotationController) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var payload services.QuotationInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONErrorDetails(c, http.StatusBadRequest, "error.invalidPayload", "Payload invalide.", err.Error())
		return
	}

	quotation, err := ctrl.QuotationSvc.Update(userID, id, &payload)
	if err != nil {
		respondQuotationError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, quotation)
}

func (ctrl *QuotationController) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	if err := ctrl.QuotationSvc.Delete(userID, id); err != nil {
		respondQuotationError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"deleted": true})
}

// Duplicate copie intégralement un devis vers un nouveau brouillon.
func (ctrl *QuotationController) Duplicate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	quotation, err := ctrl.QuotationSvc.Duplicate(userID, id)
	if err != nil {
		respondQuotationError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, quotation)
}

// ---------------------------
// Statut et lignes
// ---------------------------

type UpdateStatusPayload struct {
	Status string `json:"status" binding:"required"`
}

func (ctrl *QuotationController) UpdateStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var payload UpdateStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONErrorDetails(c, http.StatusBadRequest, "error.invalidPayload", "Le champ status est requis.", err.Error())
		return
	}

	quotation, err := ctrl.QuotationSvc.UpdateStatus(userID, id, payload.Status)
	if err != nil {
		respondQuotationError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, quotation)
}

type AdjustItemPayload struct {
	QuantityAdjusted *float64 `json:"quantity_adjusted" binding:"required"`
}

// AdjustItem remplace la quantité ajustée d'une ligne puis renvoie le devis
// recalculé en entier.
func (ctrl *QuotationController) AdjustItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	itemID, ok := paramUint(c, "itemId")
	if !ok {
		return
	}

	var payload AdjustItemPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONErrorDetails(c, http.StatusBadRequest, "error.invalidPayload", "Le champ quantity_adjusted est requis.", err.Error())
		return
	}

	quotation, err := ctrl.QuotationSvc.AdjustItem(userID, id, itemID, *payload.QuantityAdjusted)
	if err != nil {
		respondQuotationError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, quotation)
}

func (ctrl *QuotationController) ResetItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}
	itemID, ok := paramUint(c, "itemId")
	if !ok {
		return
	}

	quotation, err := ctrl.QuotationSvc.ResetItem(userID, id, itemID)
	if err != nil {
		respondQuotationError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, quotation)
}

// ---------------------------
// Stats et export
// ---------------------------

func (ctrl *QuotationController) Stats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := ctrl.QuotationSvc.Stats(userID)
	if err != nil {
		respondQuotationError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, stats)
}

// ExportPDF renvoie le devis du propriétaire en PDF.
func (ctrl *QuotationController) ExportPDF(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	quotation, err := ctrl.QuotationSvc.Get(userID, id)
	if err != nil {
		respondQuotationError(c, err)
		return
	}

	pdfBytes, err := ctrl.PDFSvc.GenerateQuotationPDF(quotation)
	if err != nil {
		log.Printf("ExportPDF error for quotation %d: %v", id, err)
		utils.JSONError(c, http.StatusInternalServerError, "error.pdfFailed", "Impossible de générer le PDF.")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", quotation.Reference))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
