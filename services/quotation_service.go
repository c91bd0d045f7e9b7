// services/quotation_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"devis-backend/models"
	"devis-backend/utils"

	mysql "github.com/go-sql-driver/mysql"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Erreurs sentinelles remontées aux controllers.
var (
	ErrQuotationNotFound = errors.New("quotation_not_found")
	ErrItemNotFound      = errors.New("item_not_found")
	ErrNotEditable       = errors.New("quotation_not_editable")
	ErrStatusConflict    = errors.New("status_conflict")
)

// ValidationErrors porte les messages par champ (clé style rooms.0.works.1.surface).
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string { return "validation" }

// ---------------------------
// Payloads d'entrée
// ---------------------------

type ItemInput struct {
	Designation        string  `json:"designation"`
	QuantityCalculated float64 `json:"quantity_calculated"`
	// nil → reprend la quantité calculée; un zéro explicite est conservé
	QuantityAdjusted *float64 `json:"quantity_adjusted"`
	Unit             string   `json:"unit"`
	UnitPrice        float64  `json:"unit_price"`
	SortOrder        int      `json:"sort_order"`
}

type WorkInput struct {
	WorkType  string  `json:"work_type"`
	Epaisseur string  `json:"epaisseur"`
	Longueur  float64 `json:"longueur"`
	Hauteur   float64 `json:"hauteur"`
	Surface   float64 `json:"surface"`

	Ouvertures datatypes.JSON `json:"ouvertures,omitempty"`

	// Items explicites: persistés tels quels, le moteur est court-circuité
	Items []ItemInput `json:"items,omitempty"`
}

type RoomInput struct {
	RoomType string      `json:"room_type"`
	RoomName string      `json:"room_name"`
	Works    []WorkInput `json:"works"`
}

type QuotationInput struct {
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	ClientPhone string `json:"client_phone"`

	SiteAddress    string `json:"site_address"`
	SiteCity       string `json:"site_city"`
	SitePostalCode string `json:"site_postal_code"`

	TVARate         *float64 `json:"tva_rate"`
	DiscountPercent *float64 `json:"discount_percent"`

	Notes         string `json:"notes"`
	InternalNotes string `json:"internal_notes"`

	Rooms []RoomInput `json:"rooms"`
}

type ListFilters struct {
	Status   string
	Search   string
	DateFrom string
	DateTo   string
	Page     int
	PerPage  int
}

// ---------------------------
// Service
// ---------------------------

// QuotationService porte toute la logique devis autour de *gorm.DB.
type QuotationService struct {
	DB     *gorm.DB
	Engine *EstimationService
}

func NewQuotationService(db *gorm.DB, engine *EstimationService) *QuotationService {
	return &QuotationService{DB: db, Engine: engine}
}

// normalizeDimensions: longueur+hauteur si fournies, sinon l'ancienne saisie
// surface seule est stockée comme longueur×1.
func normalizeDimensions(longueur, hauteur, surface float64) (l, h float64) {
	if longueur > 0 && hauteur > 0 {
		return longueur, hauteur
	}
	if surface > 0 {
		return surface, 1
	}
	return 0, 0
}

// Validate vérifie le payload complet avant toute écriture.
func (s *QuotationService) Validate(in *QuotationInput) ValidationErrors {
	errs := ValidationErrors{}

	if strings.TrimSpace(in.ClientName) == "" {
		errs["client_name"] = "Le nom du client est obligatoire."
	}
	if strings.TrimSpace(in.SiteAddress) == "" {
		errs["site_address"] = "L'adresse du chantier est obligatoire."
	}
	if strings.TrimSpace(in.SiteCity) == "" {
		errs["site_city"] = "La ville est obligatoire."
	}
	if in.TVARate != nil && (*in.TVARate < 0 || *in.TVARate > 100) {
		errs["tva_rate"] = "Le taux de TVA doit être compris entre 0 et 100."
	}
	if in.DiscountPercent != nil && (*in.DiscountPercent < 0 || *in.DiscountPercent > 100) {
		errs["discount_percent"] = "La remise doit être comprise entre 0 et 100."
	}

	if len(in.Rooms) == 0 {
		errs["rooms"] = "Vous devez ajouter au moins une pièce."
	}
	for ri, room := range in.Rooms {
		if !models.IsValidRoomType(room.RoomType) {
			errs[fmt.Sprintf("rooms.%d.room_type", ri)] = "Type de pièce invalide."
		}
		if len(room.Works) == 0 {
			errs[fmt.Sprintf("rooms.%d.works", ri)] = "Chaque pièce doit avoir au moins un travail."
		}
		for wi, work := range room.Works {
			prefix := fmt.Sprintf("rooms.%d.works.%d", ri, wi)
			if !models.IsValidWorkType(work.WorkType) {
				errs[prefix+".work_type"] = "Type de travail invalide."
			}
			if work.WorkType == models.WorkCloison && work.Epaisseur != "" && !models.IsValidEpaisseur(work.Epaisseur) {
				errs[prefix+".epaisseur"] = "Épaisseur de cloison invalide."
			}
			l, h := normalizeDimensions(work.Longueur, work.Hauteur, work.Surface)
			if l*h <= 0 {
				errs[prefix+".surface"] = "La surface doit être supérieure à 0."
			} else if l*h > 10000 {
				errs[prefix+".surface"] = "La surface ne peut pas dépasser 10 000 m²."
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// generateReference numérote DE-YYYY-NNNN en comptant les devis de l'année
// (soft-deleted inclus, pour ne jamais réutiliser un numéro).
func (s *QuotationService) generateReference(tx *gorm.DB) (string, error) {
	year := time.Now().Year()
	var count int64
	if err := tx.Unscoped().Model(&models.Quotation{}).
		Where("reference LIKE ?", fmt.Sprintf("DE-%d-%%", year)).
		Count(&count).Error; err != nil {
		return "", fmt.Errorf("failed to count quotations for reference: %w", err)
	}
	return fmt.Sprintf("DE-%d-%04d", year, count+1), nil
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var merr *mysql.MySQLError
	if errors.As(err, &merr) {
		return merr.Number == 1062
	}
	lc := strings.ToLower(err.Error())
	return strings.Contains(lc, "duplicate") || strings.Contains(lc, "unique")
}

// Create crée le devis et tout son sous-arbre pièces/travaux/items dans une
// transaction unique. Deux requêtes concurrentes peuvent calculer la même
// référence: l'index unique tranche et on retente.
func (s *QuotationService) Create(userID uint, in *QuotationInput) (*models.Quotation, error) {
	if errs := s.Validate(in); errs != nil {
		return nil, errs
	}

	const maxRetries = 5
	var created *models.Quotation
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		lastErr = s.DB.Transaction(func(tx *gorm.DB) error {
			reference, err := s.generateReference(tx)
			if err != nil {
				return err
			}
			token, err := utils.GenerateSecureToken(32)
			if err != nil {
				return fmt.Errorf("failed to generate public token: %w", err)
			}

			tvaRate := 20.0
			if in.TVARate != nil {
				tvaRate = *in.TVARate
			}
			discount := 0.0
			if in.DiscountPercent != nil {
				discount = *in.DiscountPercent
			}
			validity := time.Now().AddDate(0, 0, 30)

			quotation := models.Quotation{
				UserID:          userID,
				Reference:       reference,
				ClientName:      in.ClientName,
				ClientEmail:     in.ClientEmail,
				ClientPhone:     in.ClientPhone,
				SiteAddress:     in.SiteAddress,
				SiteCity:        in.SiteCity,
				SitePostalCode:  in.SitePostalCode,
				TVARate:         tvaRate,
				DiscountPercent: discount,
				Status:          models.StatusDraft,
				PublicToken:     token,
				ValidityDate:    &validity,
				Notes:           in.Notes,
				InternalNotes:   in.InternalNotes,
			}
			if err := tx.Create(&quotation).Error; err != nil {
				return err
			}

			if err := s.buildRooms(tx, quotation.ID, in.Rooms); err != nil {
				return err
			}
			if err := s.recalculateTotals(tx, quotation.ID); err != nil {
				return err
			}

			created = &quotation
			return nil
		})

		if lastErr == nil {
			return s.Get(userID, created.ID)
		}
		if isDuplicateKeyErr(lastErr) {
			log.Printf("quotation reference collision (attempt %d) - retrying", attempt+1)
			continue
		}
		return nil, lastErr
	}
	return nil, fmt.Errorf("failed to create quotation after retries: %w", lastErr)
}

// buildRooms crée pièces, travaux et items. Items explicites → persistés tels
// quels; sinon le moteur génère la liste de matériaux.
func (s *QuotationService) buildRooms(tx *gorm.DB, quotationID uint, rooms []RoomInput) error {
	for ri, roomIn := range rooms {
		room := models.QuotationRoom{
			QuotationID: quotationID,
			RoomType:    roomIn.RoomType,
			RoomName:    roomIn.RoomName,
			SortOrder:   ri,
		}
		if err := tx.Create(&room).Error; err != nil {
			return fmt.Errorf("failed to create room %d: %w", ri, err)
		}

		for wi, workIn := range roomIn.Works {
			l, h := normalizeDimensions(workIn.Longueur, workIn.Hauteur, workIn.Surface)
			work := models.QuotationWork{
				QuotationRoomID: room.ID,
				WorkType:        workIn.WorkType,
				Epaisseur:       workIn.Epaisseur,
				Longueur:        l,
				Hauteur:         h,
				Surface:         round2(l * h),
				Ouvertures:      workIn.Ouvertures,
				Unit:            "m2",
				SortOrder:       wi,
			}
			if err := tx.Create(&work).Error; err != nil {
				return fmt.Errorf("failed to create work %d in room %d: %w", wi, ri, err)
			}

			if len(workIn.Items) > 0 {
				for ii, itemIn := range workIn.Items {
					adjusted := itemIn.QuantityCalculated
					if itemIn.QuantityAdjusted != nil {
						adjusted = *itemIn.QuantityAdjusted
					}
					item := models.QuotationItem{
						QuotationWorkID:    work.ID,
						Designation:        itemIn.Designation,
						QuantityCalculated: itemIn.QuantityCalculated,
						QuantityAdjusted:   adjusted,
						Unit:               itemIn.Unit,
						UnitPrice:          itemIn.UnitPrice,
						IsModified:         adjusted != itemIn.QuantityCalculated,
						SortOrder:          ii,
					}
					item.ComputeTotal()
					if err := tx.Create(&item).Error; err != nil {
						return fmt.Errorf("failed to create explicit item: %w", err)
					}
				}
			} else if err := s.generateItems(tx, &work, roomIn.RoomType); err != nil {
				return err
			}
		}
	}
	return nil
}

// generateItems remplace les items d'un travail par la sortie du moteur.
func (s *QuotationService) generateItems(tx *gorm.DB, work *models.QuotationWork, roomType string) error {
	if err := tx.Unscoped().Where("quotation_work_id = ?", work.ID).
		Delete(&models.QuotationItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear items of work %d: %w", work.ID, err)
	}

	for _, m := range s.Engine.ComputeMaterials(work, roomType) {
		item := models.QuotationItem{
			QuotationWorkID:    work.ID,
			Designation:        m.Designation,
			QuantityCalculated: m.QuantityCalculated,
			QuantityAdjusted:   m.QuantityAdjusted,
			Unit:               m.Unit,
			UnitPrice:          m.UnitPrice,
			TotalHT:            m.TotalHT,
			IsModified:         false,
			SortOrder:          m.SortOrder,
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("failed to create item %q: %w", m.Designation, err)
		}
	}
	return nil
}

// recalculateTotals remonte item → travail → pièce → devis, toujours à la
// demande après une mutation (pas de hooks implicites).
func (s *QuotationService) recalculateTotals(tx *gorm.DB, quotationID uint) error {
	var quotation models.Quotation
	if err := tx.Preload("Rooms", sortedByOrder).
		Preload("Rooms.Works", sortedByOrder).
		Preload("Rooms.Works.Items", sortedByOrder).
		First(&quotation, quotationID).Error; err != nil {
		return fmt.Errorf("failed to load quotation for recalculation: %w", err)
	}

	totalHT := 0.0
	for ri := range quotation.Rooms {
		room := &quotation.Rooms[ri]
		roomSubtotal := 0.0
		for wi := range room.Works {
			work := &room.Works[wi]
			workSubtotal := 0.0
			for ii := range work.Items {
				item := &work.Items[ii]
				item.ComputeTotal()
				workSubtotal += item.TotalHT
			}
			work.SubtotalHT = round2(workSubtotal)
			if err := tx.Model(work).Update("subtotal_ht", work.SubtotalHT).Error; err != nil {
				return err
			}
			roomSubtotal += work.SubtotalHT
		}
		room.SubtotalHT = round2(roomSubtotal)
		if err := tx.Model(room).Update("subtotal_ht", room.SubtotalHT).Error; err != nil {
			return err
		}
		totalHT += room.SubtotalHT
	}

	totalHT = round2(totalHT)
	discountAmount := 0.0
	if quotation.DiscountPercent > 0 {
		discountAmount = round2(totalHT * quotation.DiscountPercent / 100)
	}
	totalTVA := round2((totalHT - discountAmount) * quotation.TVARate / 100)
	totalTTC := round2(totalHT - discountAmount + totalTVA)

	return tx.Model(&quotation).Updates(map[string]interface{}{
		"total_ht":        totalHT,
		"discount_amount": discountAmount,
		"total_tva":       totalTVA,
		"total_ttc":       totalTTC,
	}).Error
}

func sortedByOrder(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, id ASC")
}

// Get charge un devis complet, filtré par propriétaire avant lookup.
func (s *QuotationService) Get(userID, quotationID uint) (*models.Quotation, error) {
	var quotation models.Quotation
	err := s.DB.Preload("Rooms", sortedByOrder).
		Preload("Rooms.Works", sortedByOrder).
		Preload("Rooms.Works.Items", sortedByOrder).
		Where("user_id = ?", userID).
		First(&quotation, quotationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuotationNotFound
		}
		return nil, fmt.Errorf("failed to retrieve quotation: %w", err)
	}
	return &quotation, nil
}

// GetByPublicToken: accès PDF public, jamais par id numérique.
func (s *QuotationService) GetByPublicToken(token string) (*models.Quotation, error) {
	var quotation models.Quotation
	err := s.DB.Preload("Rooms", sortedByOrder).
		Preload("Rooms.Works", sortedByOrder).
		Preload("Rooms.Works.Items", sortedByOrder).
		Preload("User").
		Where("public_token = ?", token).
		First(&quotation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuotationNotFound
		}
		return nil, fmt.Errorf("failed to retrieve quotation by token: %w", err)
	}
	return &quotation, nil
}

// List avec filtres statut / recherche / dates et pagination simple.
func (s *QuotationService) List(userID uint, filters ListFilters) ([]models.Quotation, int64, error) {
	query := s.DB.Model(&models.Quotation{}).Where("user_id = ?", userID)

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where("reference LIKE ? OR client_name LIKE ? OR site_city LIKE ?", like, like, like)
	}
	if filters.DateFrom != "" {
		query = query.Where("DATE(created_at) >= ?", filters.DateFrom)
	}
	if filters.DateTo != "" {
		query = query.Where("DATE(created_at) <= ?", filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count quotations: %w", err)
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	perPage := filters.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 15
	}

	var list []models.Quotation
	err := query.Preload("Rooms", sortedByOrder).
		Preload("Rooms.Works", sortedByOrder).
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&list).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list quotations: %w", err)
	}
	return list, total, nil
}

// Update: brouillons uniquement. Si rooms est fourni, l'ancien sous-arbre est
// remplacé entièrement.
func (s *QuotationService) Update(userID, quotationID uint, in *QuotationInput) (*models.Quotation, error) {
	quotation, err := s.Get(userID, quotationID)
	if err != nil {
		return nil, err
	}
	if !quotation.CanEdit() {
		return nil, ErrNotEditable
	}
	if errs := s.Validate(in); errs != nil {
		return nil, errs
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"client_name":      in.ClientName,
			"client_email":     in.ClientEmail,
			"client_phone":     in.ClientPhone,
			"site_address":     in.SiteAddress,
			"site_city":        in.SiteCity,
			"site_postal_code": in.SitePostalCode,
			"notes":            in.Notes,
			"internal_notes":   in.InternalNotes,
		}
		if in.TVARate != nil {
			updates["tva_rate"] = *in.TVARate
		}
		if in.DiscountPercent != nil {
			updates["discount_percent"] = *in.DiscountPercent
		}
		if err := tx.Model(quotation).Updates(updates).Error; err != nil {
			return err
		}

		if err := s.deleteRoomSubtree(tx, quotation.ID); err != nil {
			return err
		}
		if err := s.buildRooms(tx, quotation.ID, in.Rooms); err != nil {
			return err
		}
		return s.recalculateTotals(tx, quotation.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID, quotationID)
}

// deleteRoomSubtree supprime items, travaux puis pièces d'un devis.
// Suppression définitive: le sous-arbre est reconstruit juste après.
func (s *QuotationService) deleteRoomSubtree(tx *gorm.DB, quotationID uint) error {
	roomIDs := tx.Model(&models.QuotationRoom{}).Select("id").Where("quotation_id = ?", quotationID)
	workIDs := tx.Model(&models.QuotationWork{}).Select("id").Where("quotation_room_id IN (?)", roomIDs)

	if err := tx.Unscoped().Where("quotation_work_id IN (?)", workIDs).
		Delete(&models.QuotationItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete items: %w", err)
	}
	if err := tx.Unscoped().Where("quotation_room_id IN (?)", roomIDs).
		Delete(&models.QuotationWork{}).Error; err != nil {
		return fmt.Errorf("failed to delete works: %w", err)
	}
	if err := tx.Unscoped().Where("quotation_id = ?", quotationID).
		Delete(&models.QuotationRoom{}).Error; err != nil {
		return fmt.Errorf("failed to delete rooms: %w", err)
	}
	return nil
}

// Delete: soft delete du devis (le sous-arbre reste rattaché).
func (s *QuotationService) Delete(userID, quotationID uint) error {
	quotation, err := s.Get(userID, quotationID)
	if err != nil {
		return err
	}
	if err := s.DB.Delete(quotation).Error; err != nil {
		return fmt.Errorf("failed to delete quotation: %w", err)
	}
	return nil
}

// Duplicate recopie tout l'arbre avec de nouvelles identités, statut draft,
// nouvelle référence et nouveau token public.
func (s *QuotationService) Duplicate(userID, quotationID uint) (*models.Quotation, error) {
	source, err := s.Get(userID, quotationID)
	if err != nil {
		return nil, err
	}

	rooms := make([]RoomInput, 0, len(source.Rooms))
	for _, room := range source.Rooms {
		roomIn := RoomInput{RoomType: room.RoomType, RoomName: room.RoomName}
		for _, work := range room.Works {
			workIn := WorkInput{
				WorkType:   work.WorkType,
				Epaisseur:  work.Epaisseur,
				Longueur:   work.Longueur,
				Hauteur:    work.Hauteur,
				Surface:    work.Surface,
				Ouvertures: work.Ouvertures,
			}
			for _, item := range work.Items {
				adjusted := item.QuantityAdjusted
				workIn.Items = append(workIn.Items, ItemInput{
					Designation:        item.Designation,
					QuantityCalculated: item.QuantityCalculated,
					QuantityAdjusted:   &adjusted,
					Unit:               item.Unit,
					UnitPrice:          item.UnitPrice,
					SortOrder:          item.SortOrder,
				})
			}
			roomIn.Works = append(roomIn.Works, workIn)
		}
		rooms = append(rooms, roomIn)
	}

	in := &QuotationInput{
		ClientName:      source.ClientName,
		ClientEmail:     source.ClientEmail,
		ClientPhone:     source.ClientPhone,
		SiteAddress:     source.SiteAddress,
		SiteCity:        source.SiteCity,
		SitePostalCode:  source.SitePostalCode,
		TVARate:         &source.TVARate,
		DiscountPercent: &source.DiscountPercent,
		Notes:           source.Notes,
		InternalNotes:   source.InternalNotes,
		Rooms:           rooms,
	}
	return s.Create(userID, in)
}

// UpdateStatus: draft → sent → {accepted, rejected, expired}. Aucun retour
// vers draft. accepted horodate accepted_at.
func (s *QuotationService) UpdateStatus(userID, quotationID uint, status string) (*models.Quotation, error) {
	if !models.IsValidStatus(status) {
		return nil, ValidationErrors{"status": "Statut invalide."}
	}

	quotation, err := s.Get(userID, quotationID)
	if err != nil {
		return nil, err
	}
	if status == models.StatusDraft && quotation.Status != models.StatusDraft {
		return nil, ErrStatusConflict
	}

	updates := map[string]interface{}{"status": status}
	if status == models.StatusAccepted {
		now := time.Now().UTC()
		updates["accepted_at"] = &now
	} else {
		updates["accepted_at"] = nil
	}
	if err := s.DB.Model(quotation).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	return s.Get(userID, quotationID)
}

// findOwnedItem retrouve un item en le rattachant au devis du propriétaire
// (jamais de lookup direct par id, pour ne pas révéler les items d'autrui).
func (s *QuotationService) findOwnedItem(quotationID, itemID uint) (*models.QuotationItem, error) {
	var item models.QuotationItem
	err := s.DB.
		Joins("JOIN quotation_works ON quotation_works.id = quotation_items.quotation_work_id").
		Joins("JOIN quotation_rooms ON quotation_rooms.id = quotation_works.quotation_room_id").
		Where("quotation_rooms.quotation_id = ? AND quotation_items.id = ?", quotationID, itemID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	return &item, nil
}

// AdjustItem remplace la quantité ajustée d'un item puis recalcule la chaîne
// de sous-totaux. Refusé hors brouillon.
func (s *QuotationService) AdjustItem(userID, quotationID, itemID uint, quantity float64) (*models.Quotation, error) {
	if quantity < 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return nil, ValidationErrors{"quantity_adjusted": "La quantité doit être un nombre positif."}
	}

	quotation, err := s.Get(userID, quotationID)
	if err != nil {
		return nil, err
	}
	if !quotation.CanEdit() {
		return nil, ErrNotEditable
	}

	item, err := s.findOwnedItem(quotation.ID, itemID)
	if err != nil {
		return nil, err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		item.QuantityAdjusted = quantity
		item.IsModified = quantity != item.QuantityCalculated
		item.ComputeTotal()
		if err := tx.Model(item).Updates(map[string]interface{}{
			"quantity_adjusted": item.QuantityAdjusted,
			"is_modified":       item.IsModified,
			"total_ht":          item.TotalHT,
		}).Error; err != nil {
			return err
		}
		return s.recalculateTotals(tx, quotation.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID, quotationID)
}

// ResetItem ramène un item à sa quantité calculée. Idempotent.
func (s *QuotationService) ResetItem(userID, quotationID, itemID uint) (*models.Quotation, error) {
	quotation, err := s.Get(userID, quotationID)
	if err != nil {
		return nil, err
	}
	if !quotation.CanEdit() {
		return nil, ErrNotEditable
	}

	item, err := s.findOwnedItem(quotation.ID, itemID)
	if err != nil {
		return nil, err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		item.QuantityAdjusted = item.QuantityCalculated
		item.IsModified = false
		item.ComputeTotal()
		if err := tx.Model(item).Updates(map[string]interface{}{
			"quantity_adjusted": item.QuantityAdjusted,
			"is_modified":       false,
			"total_ht":          item.TotalHT,
		}).Error; err != nil {
			return err
		}
		return s.recalculateTotals(tx, quotation.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(userID, quotationID)
}

// QuotationStats: tableau de bord des devis d'un utilisateur.
type QuotationStats struct {
	Total               int64   `json:"total"`
	Draft               int64   `json:"draft"`
	Sent                int64   `json:"sent"`
	Accepted            int64   `json:"accepted"`
	Rejected            int64   `json:"rejected"`
	TotalAcceptedAmount float64 `json:"total_accepted_amount"`
	TotalPendingAmount  float64 `json:"total_pending_amount"`
	ConversionRate      float64 `json:"conversion_rate"`
}

func (s *QuotationService) Stats(userID uint) (*QuotationStats, error) {
	stats := &QuotationStats{}
	base := func() *gorm.DB {
		return s.DB.Model(&models.Quotation{}).Where("user_id = ?", userID)
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	counts := map[string]*int64{
		models.StatusDraft:    &stats.Draft,
		models.StatusSent:     &stats.Sent,
		models.StatusAccepted: &stats.Accepted,
		models.StatusRejected: &stats.Rejected,
	}
	for status, dest := range counts {
		if err := base().Where("status = ?", status).Count(dest).Error; err != nil {
			return nil, err
		}
	}

	if err := base().Where("status = ?", models.StatusAccepted).
		Select("COALESCE(SUM(total_ttc), 0)").Scan(&stats.TotalAcceptedAmount).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status IN ?", []string{models.StatusDraft, models.StatusSent}).
		Select("COALESCE(SUM(total_ttc), 0)").Scan(&stats.TotalPendingAmount).Error; err != nil {
		return nil, err
	}

	processed := stats.Accepted + stats.Rejected
	if processed > 0 {
		stats.ConversionRate = math.Round(float64(stats.Accepted)/float64(processed)*1000) / 10
	}
	return stats, nil
}
