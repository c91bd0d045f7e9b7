// controllers/auth_controller.go
package controllers

import (
	"errors"
	"log"
	"net/http"

	"devis-backend/middleware"
	"devis-backend/services"
	"devis-backend/utils"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthSvc *services.AuthService
}

func NewAuthController(svc *services.AuthService) *AuthController {
	return &AuthController{AuthSvc: svc}
}

type LoginPayload struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register crée un compte artisan et connecte directement.
func (ctrl *AuthController) Register(c *gin.Context) {
	var payload services.RegisterInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONErrorDetails(c, http.StatusBadRequest, "error.invalidPayload", "Payload invalide.", err.Error())
		return
	}

	user, err := ctrl.AuthSvc.Register(&payload)
	if err != nil {
		var verrs services.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			utils.JSONValidationError(c, verrs)
		case errors.Is(err, services.ErrEmailTaken):
			utils.JSONError(c, http.StatusConflict, "error.emailTaken", "Un compte existe déjà avec cette adresse email.")
		default:
			log.Printf("Register error: %v", err)
			utils.JSONError(c, http.StatusInternalServerError, "error.internal", "Impossible de créer le compte.")
		}
		return
	}

	token, _, err := ctrl.AuthSvc.Login(payload.Email, payload.Password)
	if err != nil {
		log.Printf("Register auto-login error: %v", err)
		utils.JSONError(c, http.StatusInternalServerError, "error.internal", "Compte créé mais connexion impossible.")
		return
	}

	utils.JSONSuccess(c, http.StatusCreated, gin.H{"token": token, "user": user})
}

func (ctrl *AuthController) Login(c *gin.Context) {
	var payload LoginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONErrorDetails(c, http.StatusBadRequest, "error.invalidPayload", "Email et mot de passe sont requis.", err.Error())
		return
	}

	token, user, err := ctrl.AuthSvc.Login(payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.JSONError(c, http.StatusUnauthorized, "error.invalidCredentials", "Email ou mot de passe incorrect.")
			return
		}
		log.Printf("Login error: %v", err)
		utils.JSONError(c, http.StatusInternalServerError, "error.internal", "Connexion impossible.")
		return
	}

	utils.JSONSuccess(c, http.StatusOK, gin.H{"token": token, "user": user})
}

// Me renvoie le profil de l'utilisateur connecté.
func (ctrl *AuthController) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "error.missingToken", "Authentification requise.")
		return
	}

	user, err := ctrl.AuthSvc.GetUser(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.JSONError(c, http.StatusNotFound, "error.userNotFound", "Utilisateur introuvable.")
			return
		}
		log.Printf("Me error: %v", err)
		utils.JSONError(c, http.StatusInternalServerError, "error.internal", "Impossible de charger le profil.")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, user)
}
