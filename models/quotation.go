package models

import (
	"time"

	"gorm.io/gorm"
)

// Statuts d'un devis. draft est le seul état modifiable.
const (
	StatusDraft    = "draft"
	StatusSent     = "sent"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusExpired  = "expired"
)

var StatusLabels = map[string]string{
	StatusDraft:    "Brouillon",
	StatusSent:     "Envoyé",
	StatusAccepted: "Accepté",
	StatusRejected: "Refusé",
	StatusExpired:  "Expiré",
}

func IsValidStatus(s string) bool {
	_, ok := StatusLabels[s]
	return ok
}

type Quotation struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint `gorm:"index;column:user_id" json:"user_id"`

	// Numérotation DE-YYYY-NNNN, séquentielle par année
	Reference string `gorm:"column:reference;size:32;uniqueIndex" json:"reference"`

	ClientName  string `gorm:"column:client_name;size:255" json:"client_name"`
	ClientEmail string `gorm:"column:client_email;size:255" json:"client_email,omitempty"`
	ClientPhone string `gorm:"column:client_phone;size:20" json:"client_phone,omitempty"`

	SiteAddress    string `gorm:"column:site_address;size:255" json:"site_address"`
	SiteCity       string `gorm:"column:site_city;size:100" json:"site_city"`
	SitePostalCode string `gorm:"column:site_postal_code;size:20" json:"site_postal_code,omitempty"`

	TotalHT  float64 `gorm:"column:total_ht;type:decimal(12,2);default:0" json:"total_ht"`
	TotalTVA float64 `gorm:"column:total_tva;type:decimal(12,2);default:0" json:"total_tva"`
	TotalTTC float64 `gorm:"column:total_ttc;type:decimal(12,2);default:0" json:"total_ttc"`
	TVARate  float64 `gorm:"column:tva_rate;type:decimal(5,2);default:20" json:"tva_rate"`

	DiscountPercent float64 `gorm:"column:discount_percent;type:decimal(5,2);default:0" json:"discount_percent"`
	DiscountAmount  float64 `gorm:"column:discount_amount;type:decimal(12,2);default:0" json:"discount_amount"`

	Status string `gorm:"column:status;size:20;default:draft;index" json:"status"`

	// Accès public au PDF (QR code) sans authentification
	PublicToken string `gorm:"column:public_token;size:64;uniqueIndex" json:"public_token"`

	ValidityDate *time.Time `gorm:"column:validity_date" json:"validity_date,omitempty"`
	AcceptedAt   *time.Time `gorm:"column:accepted_at" json:"accepted_at,omitempty"`

	Notes         string `gorm:"column:notes;type:text" json:"notes,omitempty"`
	InternalNotes string `gorm:"column:internal_notes;type:text" json:"internal_notes,omitempty"`

	User  User            `gorm:"foreignKey:UserID" json:"-"`
	Rooms []QuotationRoom `gorm:"foreignKey:QuotationID;constraint:OnDelete:CASCADE" json:"rooms"`
}

func (q *Quotation) IsDraft() bool {
	return q.Status == StatusDraft
}

// CanEdit: seuls les brouillons sont modifiables
func (q *Quotation) CanEdit() bool {
	return q.Status == StatusDraft
}

func (q *Quotation) IsExpired() bool {
	return q.ValidityDate != nil && q.ValidityDate.Before(time.Now())
}
