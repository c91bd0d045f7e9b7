package models

import (
	"time"

	"gorm.io/gorm"
)

// Types de pièces. Le type détermine la plaque utilisée (hydro, feu, ...).
const (
	RoomSalonSejour = "salon_sejour"
	RoomChambre     = "chambre"
	RoomCuisine     = "cuisine"
	RoomSalleDeBain = "salle_de_bain"
	RoomWC          = "wc"
	RoomBureau      = "bureau"
	RoomGarage      = "garage"
	RoomExterieur   = "exterieur"
	RoomAutre       = "autre"
)

type RoomTypeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// RoomTypeOptions keeps the display order used by the quotation form.
var RoomTypeOptions = []RoomTypeOption{
	{RoomSalonSejour, "Salon / Séjour"},
	{RoomChambre, "Chambre"},
	{RoomCuisine, "Cuisine"},
	{RoomSalleDeBain, "Salle de bain"},
	{RoomWC, "WC"},
	{RoomBureau, "Bureau"},
	{RoomGarage, "Garage / Local technique"},
	{RoomExterieur, "Extérieur"},
	{RoomAutre, "Autre"},
}

func IsValidRoomType(v string) bool {
	for _, opt := range RoomTypeOptions {
		if opt.Value == v {
			return true
		}
	}
	return false
}

func RoomTypeLabel(v string) string {
	for _, opt := range RoomTypeOptions {
		if opt.Value == v {
			return opt.Label
		}
	}
	return v
}

type QuotationRoom struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	QuotationID uint `gorm:"index;column:quotation_id" json:"quotation_id"`

	RoomType string `gorm:"column:room_type;size:30" json:"room_type"`
	RoomName string `gorm:"column:room_name;size:100" json:"room_name,omitempty"`

	SortOrder  int     `gorm:"column:sort_order;default:0" json:"sort_order"`
	SubtotalHT float64 `gorm:"column:subtotal_ht;type:decimal(12,2);default:0" json:"subtotal_ht"`

	Works []QuotationWork `gorm:"foreignKey:QuotationRoomID;constraint:OnDelete:CASCADE" json:"works"`
}

// DisplayName: nom personnalisé sinon libellé du type
func (r *QuotationRoom) DisplayName() string {
	if r.RoomName != "" {
		return r.RoomName
	}
	return RoomTypeLabel(r.RoomType)
}
