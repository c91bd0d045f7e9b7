// controllers/estimation_controller.go
package controllers

import (
	"net/http"

	"devis-backend/models"
	"devis-backend/services"
	"devis-backend/utils"

	"github.com/gin-gonic/gin"
)

// EstimationController expose les catalogues du configurateur et la
// simulation sans persistance.
type EstimationController struct {
	Engine *services.EstimationService
}

func NewEstimationController(engine *services.EstimationService) *EstimationController {
	return &EstimationController{Engine: engine}
}

// GetOptions renvoie les listes de choix du front: types de pièces, types de
// travaux, épaisseurs de cloison et statuts de devis.
func (ctrl *EstimationController) GetOptions(c *gin.Context) {
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"room_types": models.RoomTypeOptions,
		"work_types": models.WorkTypeOptions,
		"epaisseurs": models.EpaisseurOptions,
		"statuses":   models.StatusLabels,
	})
}

type SimulatePayload struct {
	WorkType  string  `json:"work_type" binding:"required"`
	RoomType  string  `json:"room_type"`
	Epaisseur string  `json:"epaisseur"`
	Longueur  float64 `json:"longueur"`
	Hauteur   float64 `json:"hauteur"`
	Surface   float64 `json:"surface"`
}

// Simulate calcule la liste de matériaux d'un ouvrage sans rien écrire.
// Même moteur que la création de devis, mêmes quantités.
func (ctrl *EstimationController) Simulate(c *gin.Context) {
	var payload SimulatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONErrorDetails(c, http.StatusBadRequest, "error.invalidPayload", "Payload invalide.", err.Error())
		return
	}

	fields := map[string]string{}
	if !models.IsValidWorkType(payload.WorkType) {
		fields["work_type"] = "Type de travail invalide."
	}
	if payload.RoomType != "" && !models.IsValidRoomType(payload.RoomType) {
		fields["room_type"] = "Type de pièce invalide."
	}
	if payload.Epaisseur != "" && !models.IsValidEpaisseur(payload.Epaisseur) {
		fields["epaisseur"] = "Épaisseur de cloison invalide."
	}
	if len(fields) > 0 {
		utils.JSONValidationError(c, fields)
		return
	}

	longueur, hauteur := payload.Longueur, payload.Hauteur
	if (longueur <= 0 || hauteur <= 0) && payload.Surface > 0 {
		longueur, hauteur = payload.Surface, 1
	}

	work := models.QuotationWork{
		WorkType:  payload.WorkType,
		Epaisseur: payload.Epaisseur,
		Longueur:  longueur,
		Hauteur:   hauteur,
		Surface:   longueur * hauteur,
	}
	materials := ctrl.Engine.ComputeMaterials(&work, payload.RoomType)

	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"surface":  work.Surface,
		"items":    materials,
		"total_ht": services.TotalHT(materials),
	})
}
