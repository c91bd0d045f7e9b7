package services

import (
	"math"

	"devis-backend/models"
)

// DTU regroupe les constantes de calcul issues du DTU 25.41. Injecté dans le
// moteur pour garder les formules testables avec d'autres jeux de règles.
type DTU struct {
	Entraxe        float64 // espacement montants/fourrures (m)
	PlaqueSurface  float64 // surface couverte par une plaque (m²)
	ProfilLongueur float64 // longueur standard d'un profilé (m)
	VisParBoite    float64
	KgParSacEnduit float64
	BandeRouleauPM float64 // petit rouleau (ml)
	BandeRouleauGM float64 // grand rouleau (ml)
}

var DefaultDTU = DTU{
	Entraxe:        0.60,
	PlaqueSurface:  3.00,
	ProfilLongueur: 3.00,
	VisParBoite:    1000,
	KgParSacEnduit: 25,
	BandeRouleauPM: 150,
	BandeRouleauGM: 300,
}

// Material est une ligne de matériau produite par le moteur, prête à être
// persistée en QuotationItem ou renvoyée telle quelle par la simulation.
type Material struct {
	Designation        string  `json:"designation"`
	QuantityCalculated float64 `json:"quantity_calculated"`
	QuantityAdjusted   float64 `json:"quantity_adjusted"`
	Unit               string  `json:"unit"`
	UnitPrice          float64 `json:"unit_price"`
	TotalHT            float64 `json:"total_ht"`
	IsModified         bool    `json:"is_modified"`
	SortOrder          int     `json:"sort_order"`
}

// EstimationService calcule les matériaux d'un ouvrage. Pur: aucune écriture,
// deux appels identiques produisent des listes identiques.
type EstimationService struct {
	DTU    DTU
	Prices PriceList
}

func NewEstimationService() *EstimationService {
	return &EstimationService{DTU: DefaultDTU, Prices: DefaultPrices}
}

func arrondiSup(v float64) float64 {
	return math.Ceil(v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// visToBoites: nombre de vis → boîtes de 1000, minimum 1 boîte dès qu'il y a
// des vis à poser.
func (e *EstimationService) visToBoites(nombreVis float64) float64 {
	if nombreVis <= 0 {
		return 0
	}
	return math.Max(1, arrondiSup(nombreVis/e.DTU.VisParBoite))
}

func (e *EstimationService) kgToSacs(kg float64) float64 {
	if kg <= 0 {
		return 0
	}
	return arrondiSup(kg / e.DTU.KgParSacEnduit)
}

// bandeToRouleaux choisit le conditionnement: un 150 m s'il suffit, sinon un
// ou plusieurs 300 m.
func (e *EstimationService) bandeToRouleaux(ml float64) (designation string, qty float64, priceKey string) {
	switch {
	case ml <= 0:
		return "Bande à joint 150m", 0, BandeJoint150
	case ml <= e.DTU.BandeRouleauPM:
		return "Bande à joint 150m", 1, BandeJoint150
	case ml <= e.DTU.BandeRouleauGM:
		return "Bande à joint 300m", 1, BandeJoint300
	default:
		return "Bande à joint 300m", arrondiSup(ml / e.DTU.BandeRouleauGM), BandeJoint300
	}
}

type materialBuilder struct {
	list []Material
}

func (b *materialBuilder) add(designation string, qty float64, unit string, unitPrice float64) {
	b.list = append(b.list, Material{
		Designation:        designation,
		QuantityCalculated: qty,
		QuantityAdjusted:   qty,
		Unit:               unit,
		UnitPrice:          unitPrice,
		TotalHT:            round2(qty * unitPrice),
		IsModified:         false,
		SortOrder:          len(b.list),
	})
}

// frameQuantities: montants et rails d'une ossature verticale.
// Montants: 2 × (lignes − 1) × montants par ligne (doublement des lignes
// intérieures, retrait de 2 par ligne). Rails: lisses haute et basse.
func (e *EstimationService) frameQuantities(l, h float64) (montants, rails float64) {
	nbLignes := arrondiSup(l/e.DTU.Entraxe + 1)
	parLigne := math.Max(1, arrondiSup(h/e.DTU.ProfilLongueur))
	montants = 2 * (nbLignes - 1) * parLigne
	rails = arrondiSup((l * 2) / e.DTU.ProfilLongueur)
	return montants, rails
}

// ComputeMaterials applique la règle du type d'ouvrage aux dimensions du
// travail. roomType ne sert qu'au choix de la plaque; surface nulle ou
// négative → liste vide. Toutes les quantités physiques sont arrondies à
// l'unité supérieure (on n'achète pas de demi-plaque).
func (e *EstimationService) ComputeMaterials(work *models.QuotationWork, roomType string) []Material {
	l := work.Longueur
	h := work.Hauteur
	surface := l * h
	if surface <= 0 {
		return []Material{}
	}

	plaqueName, plaquePrice := e.Prices.PlaqueFor(roomType)
	b := &materialBuilder{list: []Material{}}

	switch work.WorkType {
	case models.WorkHabillageMur:
		b.add(plaqueName, arrondiSup(surface/e.DTU.PlaqueSurface), "plaque", plaquePrice)

		montants, rails := e.frameQuantities(l, h)
		b.add("Montant M48", montants, "unité", e.Prices[Montant48])
		b.add("Rail R48", rails, "unité", e.Prices[Rail48])
		b.add("Fourrure", arrondiSup((surface/10)*4), "unité", e.Prices[Fourrure])
		b.add("Isolant (laine de verre)", arrondiSup(surface), "m²", e.Prices[IsolantVerre])
		b.add("Vis TTPC 25 mm", e.visToBoites(arrondiSup(surface*20)), "boîte", e.Prices[Vis25Boite])
		b.add("Vis TTPC 9 mm", e.visToBoites(arrondiSup(surface*3)), "boîte", e.Prices[Vis9Boite])
		bande, qty, key := e.bandeToRouleaux(arrondiSup(surface * 3))
		b.add(bande, qty, "rlx", e.Prices[key])
		b.add("Enduit", e.kgToSacs(surface*0.5), "sac", e.Prices[EnduitSac])

	case models.WorkCloison:
		config, ok := models.EpaisseurConfigFor(work.Epaisseur)
		if !ok {
			// épaisseur absente: famille M48 simple ossature
			config, _ = models.EpaisseurConfigFor(models.Epaisseur100)
		}
		montantLabel := "Montant M48"
		railLabel := "Rail R48"
		if config.MontantKey == Montant70 {
			montantLabel = "Montant M70"
		}
		if config.RailKey == Rail70 {
			railLabel = "Rail R70"
		}

		// 2 faces de plaques
		b.add(plaqueName, arrondiSup((surface*2)/e.DTU.PlaqueSurface), "plaque", plaquePrice)

		montants, rails := e.frameQuantities(l, h)
		fourrures := arrondiSup((surface / 10) * 4)
		isolant := arrondiSup(surface)
		vis25 := surface * 40
		vis9 := surface * 4
		enduitKg := surface * 1.0
		if config.IsDouble {
			// double ossature: seules les quantités d'ossature doublent,
			// pas la visserie ratio simple ni les plaques (déjà 2 faces)
			montants *= 2
			rails *= 2
			fourrures *= 2
			isolant = arrondiSup(surface * 2)
			vis25 = surface * 45
			vis9 = surface * 6
			enduitKg = surface * 1.2
		}
		b.add(montantLabel, montants, "unité", e.Prices[config.MontantKey])
		b.add(railLabel, rails, "unité", e.Prices[config.RailKey])
		b.add("Fourrure", fourrures, "unité", e.Prices[Fourrure])
		b.add("Isolant (laine de verre)", isolant, "m²", e.Prices[IsolantVerre])
		b.add("Vis TTPC 25 mm", e.visToBoites(arrondiSup(vis25)), "boîte", e.Prices[Vis25Boite])
		b.add("Vis TTPC 9 mm", e.visToBoites(arrondiSup(vis9)), "boîte", e.Prices[Vis9Boite])
		bande, qty, key := e.bandeToRouleaux(arrondiSup(surface * 6))
		b.add(bande, qty, "rlx", e.Prices[key])
		b.add("Enduit", e.kgToSacs(enduitKg), "sac", e.Prices[EnduitSac])

	case models.WorkPlafondBA13:
		// pour un plafond, hauteur porte la largeur de la pièce
		largeur := h
		b.add(plaqueName, arrondiSup(surface/e.DTU.PlaqueSurface), "plaque", plaquePrice)
		b.add("Fourrure", arrondiSup((largeur/e.DTU.Entraxe)*l/e.DTU.ProfilLongueur), "unité", e.Prices[Fourrure])
		b.add("Suspente", arrondiSup(surface*2.5), "unité", e.Prices[Suspente])
		b.add("Cornière périphérique", arrondiSup(((l+largeur)*2)/e.DTU.ProfilLongueur), "unité", e.Prices[Corniere])
		b.add("Vis TTPC 25 mm", e.visToBoites(arrondiSup(surface*22)), "boîte", e.Prices[Vis25Boite])
		bande, qty, key := e.bandeToRouleaux(arrondiSup(surface * 3))
		b.add(bande, qty, "rlx", e.Prices[key])
		b.add("Enduit", e.kgToSacs(surface*0.5), "sac", e.Prices[EnduitSac])
	}

	return b.list
}

// TotalHT somme les lignes d'une simulation.
func TotalHT(materials []Material) float64 {
	var total float64
	for _, m := range materials {
		total += m.TotalHT
	}
	return round2(total)
}
