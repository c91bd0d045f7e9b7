package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// QuotationItem est une ligne de matériau générée par le moteur de calcul.
// quantity_calculated garde la valeur du moteur, quantity_adjusted la valeur
// éventuellement corrigée par l'utilisateur.
type QuotationItem struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	QuotationWorkID uint `gorm:"index;column:quotation_work_id" json:"quotation_work_id"`

	Designation string `gorm:"column:designation;size:255" json:"designation"`

	QuantityCalculated float64 `gorm:"column:quantity_calculated;type:decimal(10,2)" json:"quantity_calculated"`
	QuantityAdjusted   float64 `gorm:"column:quantity_adjusted;type:decimal(10,2)" json:"quantity_adjusted"`
	Unit               string  `gorm:"column:unit;size:20" json:"unit"`

	UnitPrice float64 `gorm:"column:unit_price;type:decimal(10,2)" json:"unit_price"`
	TotalHT   float64 `gorm:"column:total_ht;type:decimal(12,2)" json:"total_ht"`

	IsModified bool `gorm:"column:is_modified;default:false" json:"is_modified"`
	SortOrder  int  `gorm:"column:sort_order;default:0" json:"sort_order"`
}

// ComputeTotal recalcule total_ht = quantity_adjusted × unit_price, arrondi
// au centime. Toujours appelé avant sauvegarde, jamais stocké périmé.
func (i *QuotationItem) ComputeTotal() {
	i.TotalHT = math.Round(i.QuantityAdjusted*i.UnitPrice*100) / 100
}
