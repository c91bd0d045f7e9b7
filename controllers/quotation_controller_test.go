package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"devis-backend/controllers"
	"devis-backend/models"
	"devis-backend/routes"
	"devis-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "test-secret"

func setupTestRouter(t *testing.T) (*gin.Engine, *services.QuotationService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Quotation{},
		&models.QuotationRoom{},
		&models.QuotationWork{},
		&models.QuotationItem{},
	))

	engine := services.NewEstimationService()
	quotationSvc := services.NewQuotationService(db, engine)
	authSvc := services.NewAuthService(db, testJWTSecret)
	pdfSvc := services.NewPDFService("http://localhost:8080", "Test Plaquiste")

	router := routes.SetupRouter(
		controllers.NewAuthController(authSvc),
		controllers.NewEstimationController(engine),
		controllers.NewQuotationController(quotationSvc, pdfSvc),
		controllers.NewPDFController(quotationSvc, pdfSvc),
		testJWTSecret,
	)
	return router, quotationSvc
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerAndLogin(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/register", "", gin.H{
		"full_name": "Jean Plaquiste",
		"email":     "jean@test.local",
		"password":  "motdepasse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func quotationPayload() gin.H {
	return gin.H{
		"client_name":  "M. Dupont",
		"site_address": "12 rue des Lilas",
		"site_city":    "Lyon",
		"rooms": []gin.H{
			{
				"room_type": models.RoomSalleDeBain,
				"works": []gin.H{
					{"work_type": models.WorkHabillageMur, "longueur": 4, "hauteur": 2.5},
				},
			},
		},
	}
}

func TestHealth(t *testing.T) {
	router, _ := setupTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGetOptions(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/quotations/options", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			RoomTypes  []models.RoomTypeOption  `json:"room_types"`
			WorkTypes  []models.WorkTypeOption  `json:"work_types"`
			Epaisseurs []models.EpaisseurConfig `json:"epaisseurs"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data.RoomTypes, 9)
	require.Len(t, resp.Data.WorkTypes, 3)
	require.Len(t, resp.Data.Epaisseurs, 3)
}

func TestSimulate(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/quotations/simulate", "", gin.H{
		"work_type": models.WorkHabillageMur,
		"room_type": models.RoomSalleDeBain,
		"longueur":  4,
		"hauteur":   2.5,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Surface float64             `json:"surface"`
			Items   []services.Material `json:"items"`
			TotalHT float64             `json:"total_ht"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 10.0, resp.Data.Surface)
	require.NotEmpty(t, resp.Data.Items)
	require.Equal(t, "Plaque Hydro", resp.Data.Items[0].Designation)
	require.Equal(t, 4.0, resp.Data.Items[0].QuantityCalculated)
	require.Greater(t, resp.Data.TotalHT, 0.0)
}

func TestSimulateInvalidWorkType(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/quotations/simulate", "", gin.H{
		"work_type": "peinture",
		"longueur":  4,
		"hauteur":   2.5,
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestQuotationsRequireAuth(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/quotations", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/quotations", "pas-un-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAndFetchQuotation(t *testing.T) {
	router, _ := setupTestRouter(t)
	token := registerAndLogin(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/quotations", token, quotationPayload())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data models.Quotation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Contains(t, created.Data.Reference, "DE-")
	require.Equal(t, models.StatusDraft, created.Data.Status)
	require.NotEmpty(t, created.Data.Rooms[0].Works[0].Items)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/quotations/%d", created.Data.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/quotations", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), created.Data.Reference)
}

func TestCreateQuotationValidation(t *testing.T) {
	router, _ := setupTestRouter(t)
	token := registerAndLogin(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/quotations", token, gin.H{"client_name": "X"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Contains(t, w.Body.String(), "site_address")
}

func TestAdjustItemRefuseApresEnvoi(t *testing.T) {
	router, _ := setupTestRouter(t)
	token := registerAndLogin(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/quotations", token, quotationPayload())
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.Quotation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	itemID := created.Data.Rooms[0].Works[0].Items[0].ID

	// ajustement possible en brouillon
	w = doJSON(t, router, http.MethodPatch,
		fmt.Sprintf("/api/quotations/%d/items/%d", created.Data.ID, itemID), token,
		gin.H{"quantity_adjusted": 6})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPatch,
		fmt.Sprintf("/api/quotations/%d/status", created.Data.ID), token,
		gin.H{"status": models.StatusSent})
	require.Equal(t, http.StatusOK, w.Code)

	// plus après envoi
	w = doJSON(t, router, http.MethodPatch,
		fmt.Sprintf("/api/quotations/%d/items/%d", created.Data.ID, itemID), token,
		gin.H{"quantity_adjusted": 9})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Contains(t, w.Body.String(), "error.notEditable")
}

func TestQuotationNotFound(t *testing.T) {
	router, _ := setupTestRouter(t)
	token := registerAndLogin(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/quotations/9999", token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "error.quotationNotFound")
}

func TestPublicPDF(t *testing.T) {
	router, svc := setupTestRouter(t)
	token := registerAndLogin(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/quotations", token, quotationPayload())
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.Quotation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	quotation, err := svc.GetByPublicToken(created.Data.PublicToken)
	require.NoError(t, err)

	w = doJSON(t, router, http.MethodGet, "/api/pdf/"+quotation.PublicToken, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	// token inconnu → 404, pas de fuite d'information
	w = doJSON(t, router, http.MethodGet, "/api/pdf/inconnu", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDuplicateEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)
	token := registerAndLogin(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/quotations", token, quotationPayload())
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.Quotation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/quotations/%d/duplicate", created.Data.ID), token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var dup struct {
		Data models.Quotation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dup))
	require.NotEqual(t, created.Data.Reference, dup.Data.Reference)
	require.Equal(t, created.Data.TotalHT, dup.Data.TotalHT)
}

func TestStatsEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)
	token := registerAndLogin(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/quotations", token, quotationPayload())
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/quotations/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total":1`)
	require.Contains(t, w.Body.String(), `"draft":1`)
}

func TestAuthFlow(t *testing.T) {
	router, _ := setupTestRouter(t)
	token := registerAndLogin(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "jean@test.local")

	w = doJSON(t, router, http.MethodPost, "/api/login", "", gin.H{
		"email":    "jean@test.local",
		"password": "mauvais",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// email déjà pris
	w = doJSON(t, router, http.MethodPost, "/api/register", "", gin.H{
		"full_name": "Doublon",
		"email":     "jean@test.local",
		"password":  "motdepasse",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}
