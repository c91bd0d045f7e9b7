package services

import "devis-backend/models"

// Clés matériaux du catalogue de prix.
const (
	PlaqueBA13Standard = "plaque_ba13_standard"
	PlaqueHydro        = "plaque_hydro"
	PlaqueFeu          = "plaque_feu"
	PlaqueOutguard     = "plaque_outguard"
	Montant48          = "montant_48"
	Montant70          = "montant_70"
	Rail48             = "rail_48"
	Rail70             = "rail_70"
	Fourrure           = "fourrure"
	IsolantVerre       = "isolant_verre"
	Vis25Boite         = "vis_25mm_boite"
	Vis9Boite          = "vis_9mm_boite"
	Suspente           = "suspente"
	Corniere           = "corniere"
	BandeJoint150      = "bande_joint_150"
	BandeJoint300      = "bande_joint_300"
	EnduitSac          = "enduit_sac"
)

// PriceList mappe une clé matériau vers son prix unitaire HT.
type PriceList map[string]float64

// DefaultPrices est le catalogue courant (prix fournisseur 2026).
var DefaultPrices = PriceList{
	PlaqueBA13Standard: 24.12,
	PlaqueHydro:        34.20,
	PlaqueFeu:          42.00,
	PlaqueOutguard:     97.20,
	Montant48:          26.16,
	Montant70:          33.00,
	Rail48:             21.12,
	Rail70:             28.20,
	Fourrure:           21.12,
	IsolantVerre:       18.00,
	Vis25Boite:         62.40,
	Vis9Boite:          69.60,
	Suspente:           0.00,
	Corniere:           13.44,
	BandeJoint150:      48.00,
	BandeJoint300:      85.00,
	EnduitSac:          163.20,
}

// PlaqueChoice: plaque retenue selon le type de pièce.
type PlaqueChoice struct {
	Designation string `json:"designation"`
	PriceKey    string `json:"price_key"`
}

// PlaqueByRoom: pièces humides → hydro, garage → feu, extérieur → outguard,
// défaut → BA13 standard.
var PlaqueByRoom = map[string]PlaqueChoice{
	models.RoomSalonSejour: {"Plaque BA13 standard", PlaqueBA13Standard},
	models.RoomChambre:     {"Plaque BA13 standard", PlaqueBA13Standard},
	models.RoomCuisine:     {"Plaque Hydro", PlaqueHydro},
	models.RoomSalleDeBain: {"Plaque Hydro", PlaqueHydro},
	models.RoomWC:          {"Plaque Hydro", PlaqueHydro},
	models.RoomBureau:      {"Plaque BA13 standard", PlaqueBA13Standard},
	models.RoomGarage:      {"Plaque Feu", PlaqueFeu},
	models.RoomExterieur:   {"Plaque Outguard", PlaqueOutguard},
	models.RoomAutre:       {"Plaque BA13 standard", PlaqueBA13Standard},
}

// PlaqueFor résout la plaque d'une pièce. Type inconnu ou travail sans
// pièce (simulation) → plaque standard.
func (p PriceList) PlaqueFor(roomType string) (designation string, price float64) {
	choice, ok := PlaqueByRoom[roomType]
	if !ok {
		choice = PlaqueByRoom[models.RoomAutre]
	}
	price, ok = p[choice.PriceKey]
	if !ok {
		price = p[PlaqueBA13Standard]
	}
	return choice.Designation, price
}
