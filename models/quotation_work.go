package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Types de travaux (3 types simplifiés, DTU 25.41)
const (
	WorkHabillageMur = "habillage_mur"
	WorkCloison      = "cloison"
	WorkPlafondBA13  = "plafond_ba13"
)

type WorkTypeOption struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
	UnitLabel   string `json:"unit_label"`
}

var WorkTypeOptions = []WorkTypeOption{
	{WorkHabillageMur, "Habillage BA13 / Contre-cloison", "Ouvrage vertical – 1 face", "m2", "m²"},
	{WorkCloison, "Cloison", "Selon épaisseur : M48/M70/Double", "m2", "m²"},
	{WorkPlafondBA13, "Plafond BA13", "Sur ossature métallique", "m2", "m²"},
}

func IsValidWorkType(v string) bool {
	for _, opt := range WorkTypeOptions {
		if opt.Value == v {
			return true
		}
	}
	return false
}

func WorkTypeLabel(v string) string {
	for _, opt := range WorkTypeOptions {
		if opt.Value == v {
			return opt.Label
		}
	}
	return v
}

// Épaisseur d'une cloison: détermine la famille montant/rail et
// simple ou double ossature.
const (
	Epaisseur100     = "100"
	Epaisseur140     = "140"
	EpaisseurPlus140 = "+ 140"
)

type EpaisseurConfig struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	MontantKey string `json:"-"`
	RailKey    string `json:"-"`
	IsDouble   bool   `json:"is_double"`
}

var EpaisseurOptions = []EpaisseurConfig{
	{Epaisseur100, "< 100 mm (M48/R48)", "montant_48", "rail_48", false},
	{Epaisseur140, "< 140 mm (M70/R70)", "montant_70", "rail_70", false},
	{EpaisseurPlus140, "> + 140 mm (Double M48/R48)", "montant_48", "rail_48", true},
}

func EpaisseurConfigFor(v string) (EpaisseurConfig, bool) {
	for _, opt := range EpaisseurOptions {
		if opt.Value == v {
			return opt, true
		}
	}
	return EpaisseurConfig{}, false
}

func IsValidEpaisseur(v string) bool {
	_, ok := EpaisseurConfigFor(v)
	return ok
}

type QuotationWork struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	QuotationRoomID uint `gorm:"index;column:quotation_room_id" json:"quotation_room_id"`

	WorkType  string `gorm:"column:work_type;size:30" json:"work_type"`
	Epaisseur string `gorm:"column:epaisseur;size:10" json:"epaisseur,omitempty"`

	// Dimensions en mètres. Pour un plafond, hauteur porte la largeur
	// de la pièce (2e dimension du plan).
	Longueur float64 `gorm:"column:longueur;type:decimal(10,2)" json:"longueur"`
	Hauteur  float64 `gorm:"column:hauteur;type:decimal(10,2)" json:"hauteur"`
	Surface  float64 `gorm:"column:surface;type:decimal(10,2)" json:"surface"`

	// Ouvertures (portes, fenêtres) déclarées sur l'ouvrage, stockées telles quelles
	Ouvertures datatypes.JSON `gorm:"column:ouvertures" json:"ouvertures,omitempty"`

	Unit       string  `gorm:"column:unit;size:10;default:m2" json:"unit"`
	SubtotalHT float64 `gorm:"column:subtotal_ht;type:decimal(12,2);default:0" json:"subtotal_ht"`
	SortOrder  int     `gorm:"column:sort_order;default:0" json:"sort_order"`

	Items []QuotationItem `gorm:"foreignKey:QuotationWorkID;constraint:OnDelete:CASCADE" json:"items"`
}
