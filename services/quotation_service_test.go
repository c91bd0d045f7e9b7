package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"devis-backend/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
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
	return db
}

func newTestService(t *testing.T) (*QuotationService, uint) {
	t.Helper()
	db := setupTestDB(t)
	user := models.User{FullName: "Jean Plaquiste", Email: "jean@test.local", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	return NewQuotationService(db, NewEstimationService()), user.ID
}

func bathroomInput() *QuotationInput {
	return &QuotationInput{
		ClientName:  "M. Dupont",
		SiteAddress: "12 rue des Lilas",
		SiteCity:    "Lyon",
		Rooms: []RoomInput{
			{
				RoomType: models.RoomSalleDeBain,
				Works: []WorkInput{
					{WorkType: models.WorkHabillageMur, Longueur: 4, Hauteur: 2.5},
				},
			},
		},
	}
}

func TestCreateQuotation(t *testing.T) {
	svc, userID := newTestService(t)

	quotation, err := svc.Create(userID, bathroomInput())
	require.NoError(t, err)

	require.Equal(t, fmt.Sprintf("DE-%d-0001", time.Now().Year()), quotation.Reference)
	require.Equal(t, models.StatusDraft, quotation.Status)
	require.Len(t, quotation.PublicToken, 64)
	require.NotNil(t, quotation.ValidityDate)

	require.Len(t, quotation.Rooms, 1)
	require.Len(t, quotation.Rooms[0].Works, 1)
	require.NotEmpty(t, quotation.Rooms[0].Works[0].Items)

	// la première ligne est la plaque hydro de la salle de bain
	plaque := quotation.Rooms[0].Works[0].Items[0]
	require.Equal(t, "Plaque Hydro", plaque.Designation)
	require.Equal(t, 4.0, plaque.QuantityCalculated)

	// chaîne de totaux cohérente
	require.Equal(t, quotation.Rooms[0].SubtotalHT, quotation.TotalHT)
	require.Equal(t, round2(quotation.TotalHT*0.20), quotation.TotalTVA)
	require.Equal(t, round2(quotation.TotalHT+quotation.TotalTVA), quotation.TotalTTC)
}

func TestReferencesSequentielles(t *testing.T) {
	svc, userID := newTestService(t)
	year := time.Now().Year()

	for i := 1; i <= 3; i++ {
		quotation, err := svc.Create(userID, bathroomInput())
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("DE-%d-%04d", year, i), quotation.Reference)
	}
}

func TestValidationErrors(t *testing.T) {
	svc, userID := newTestService(t)

	_, err := svc.Create(userID, &QuotationInput{})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Contains(t, verrs, "client_name")
	require.Contains(t, verrs, "site_address")
	require.Contains(t, verrs, "rooms")

	in := bathroomInput()
	in.Rooms[0].Works[0].Longueur = 0
	in.Rooms[0].Works[0].Hauteur = 0
	_, err = svc.Create(userID, in)
	require.ErrorAs(t, err, &verrs)
	require.Contains(t, verrs, "rooms.0.works.0.surface")

	in = bathroomInput()
	in.Rooms[0].RoomType = "piscine"
	_, err = svc.Create(userID, in)
	require.ErrorAs(t, err, &verrs)
	require.Contains(t, verrs, "rooms.0.room_type")
}

func TestTotauxAvecRemiseEtTVA(t *testing.T) {
	svc, userID := newTestService(t)

	tva := 10.0
	remise := 10.0
	in := &QuotationInput{
		ClientName:      "M. Martin",
		SiteAddress:     "3 avenue du Parc",
		SiteCity:        "Nantes",
		TVARate:         &tva,
		DiscountPercent: &remise,
		Rooms: []RoomInput{
			{
				RoomType: models.RoomChambre,
				Works: []WorkInput{
					{
						WorkType: models.WorkHabillageMur,
						Longueur: 2,
						Hauteur:  1,
						Items: []ItemInput{
							{Designation: "Forfait pose", QuantityCalculated: 2, Unit: "h", UnitPrice: 50},
						},
					},
				},
			},
		},
	}

	quotation, err := svc.Create(userID, in)
	require.NoError(t, err)

	require.Equal(t, 100.0, quotation.TotalHT)
	require.Equal(t, 10.0, quotation.DiscountAmount)
	require.Equal(t, 9.0, quotation.TotalTVA)  // 10 % de 90
	require.Equal(t, 99.0, quotation.TotalTTC) // 90 + 9
}

func TestAdjustEtResetItem(t *testing.T) {
	svc, userID := newTestService(t)

	quotation, err := svc.Create(userID, bathroomInput())
	require.NoError(t, err)
	item := quotation.Rooms[0].Works[0].Items[0]
	originalTotal := quotation.TotalHT

	adjusted, err := svc.AdjustItem(userID, quotation.ID, item.ID, item.QuantityCalculated+2)
	require.NoError(t, err)

	got := adjusted.Rooms[0].Works[0].Items[0]
	require.True(t, got.IsModified)
	require.Equal(t, item.QuantityCalculated, got.QuantityCalculated)
	require.Equal(t, item.QuantityCalculated+2, got.QuantityAdjusted)
	require.Greater(t, adjusted.TotalHT, originalTotal)

	// reset revient à la quantité calculée, deux fois de suite sans effet
	reset, err := svc.ResetItem(userID, quotation.ID, item.ID)
	require.NoError(t, err)
	got = reset.Rooms[0].Works[0].Items[0]
	require.False(t, got.IsModified)
	require.Equal(t, got.QuantityCalculated, got.QuantityAdjusted)
	require.Equal(t, originalTotal, reset.TotalHT)

	reset2, err := svc.ResetItem(userID, quotation.ID, item.ID)
	require.NoError(t, err)
	require.Equal(t, reset.TotalHT, reset2.TotalHT)
}

func TestAdjustQuantiteNegative(t *testing.T) {
	svc, userID := newTestService(t)
	quotation, err := svc.Create(userID, bathroomInput())
	require.NoError(t, err)
	item := quotation.Rooms[0].Works[0].Items[0]

	_, err = svc.AdjustItem(userID, quotation.ID, item.ID, -1)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Contains(t, verrs, "quantity_adjusted")
}

func TestMutationRefuseeHorsBrouillon(t *testing.T) {
	svc, userID := newTestService(t)

	quotation, err := svc.Create(userID, bathroomInput())
	require.NoError(t, err)
	item := quotation.Rooms[0].Works[0].Items[0]

	_, err = svc.UpdateStatus(userID, quotation.ID, models.StatusSent)
	require.NoError(t, err)

	_, err = svc.AdjustItem(userID, quotation.ID, item.ID, 99)
	require.ErrorIs(t, err, ErrNotEditable)

	_, err = svc.Update(userID, quotation.ID, bathroomInput())
	require.ErrorIs(t, err, ErrNotEditable)

	// aucune mutation partielle
	after, err := svc.Get(userID, quotation.ID)
	require.NoError(t, err)
	require.Equal(t, quotation.TotalHT, after.TotalHT)
	require.False(t, after.Rooms[0].Works[0].Items[0].IsModified)
}

func TestCycleDeStatuts(t *testing.T) {
	svc, userID := newTestService(t)

	quotation, err := svc.Create(userID, bathroomInput())
	require.NoError(t, err)

	sent, err := svc.UpdateStatus(userID, quotation.ID, models.StatusSent)
	require.NoError(t, err)
	require.Equal(t, models.StatusSent, sent.Status)
	require.Nil(t, sent.AcceptedAt)

	// retour en brouillon interdit
	_, err = svc.UpdateStatus(userID, quotation.ID, models.StatusDraft)
	require.ErrorIs(t, err, ErrStatusConflict)

	accepted, err := svc.UpdateStatus(userID, quotation.ID, models.StatusAccepted)
	require.NoError(t, err)
	require.Equal(t, models.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)

	_, err = svc.UpdateStatus(userID, quotation.ID, "archived")
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestDuplicate(t *testing.T) {
	svc, userID := newTestService(t)

	in := bathroomInput()
	in.Rooms[0].Works = append(in.Rooms[0].Works,
		WorkInput{WorkType: models.WorkPlafondBA13, Longueur: 4, Hauteur: 3})
	in.Rooms = append(in.Rooms, RoomInput{
		RoomType: models.RoomGarage,
		Works: []WorkInput{
			{WorkType: models.WorkCloison, Epaisseur: models.Epaisseur100, Longueur: 3, Hauteur: 2.5},
		},
	})

	source, err := svc.Create(userID, in)
	require.NoError(t, err)
	item := source.Rooms[0].Works[0].Items[0]
	_, err = svc.AdjustItem(userID, source.ID, item.ID, item.QuantityCalculated+1)
	require.NoError(t, err)
	source, err = svc.Get(userID, source.ID)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(userID, source.ID, models.StatusSent)
	require.NoError(t, err)

	dup, err := svc.Duplicate(userID, source.ID)
	require.NoError(t, err)

	require.NotEqual(t, source.ID, dup.ID)
	require.NotEqual(t, source.Reference, dup.Reference)
	require.NotEqual(t, source.PublicToken, dup.PublicToken)
	require.Equal(t, models.StatusDraft, dup.Status)

	// copie profonde: même arbre, identités neuves, mêmes valeurs
	require.Len(t, dup.Rooms, len(source.Rooms))
	for ri := range source.Rooms {
		require.NotEqual(t, source.Rooms[ri].ID, dup.Rooms[ri].ID)
		require.Len(t, dup.Rooms[ri].Works, len(source.Rooms[ri].Works))
		for wi := range source.Rooms[ri].Works {
			require.NotEqual(t, source.Rooms[ri].Works[wi].ID, dup.Rooms[ri].Works[wi].ID)
			require.Len(t, dup.Rooms[ri].Works[wi].Items, len(source.Rooms[ri].Works[wi].Items))
		}
	}
	require.Equal(t, source.TotalHT, dup.TotalHT)
	copiedItem := dup.Rooms[0].Works[0].Items[0]
	require.Equal(t, item.QuantityCalculated+1, copiedItem.QuantityAdjusted)
	require.True(t, copiedItem.IsModified)

	// modifier la copie ne touche pas l'original
	_, err = svc.ResetItem(userID, dup.ID, copiedItem.ID)
	require.NoError(t, err)
	original, err := svc.Get(userID, source.ID)
	require.NoError(t, err)
	require.True(t, original.Rooms[0].Works[0].Items[0].IsModified)
}

func TestDuplicateConserveQuantiteAjusteeAZero(t *testing.T) {
	svc, userID := newTestService(t)

	source, err := svc.Create(userID, bathroomInput())
	require.NoError(t, err)
	item := source.Rooms[0].Works[0].Items[0]

	// ligne mise à zéro par l'utilisateur (le zéro n'est pas "absent")
	adjusted, err := svc.AdjustItem(userID, source.ID, item.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 0.0, adjusted.Rooms[0].Works[0].Items[0].QuantityAdjusted)
	require.True(t, adjusted.Rooms[0].Works[0].Items[0].IsModified)

	dup, err := svc.Duplicate(userID, source.ID)
	require.NoError(t, err)

	copied := dup.Rooms[0].Works[0].Items[0]
	require.Equal(t, item.QuantityCalculated, copied.QuantityCalculated)
	require.Equal(t, 0.0, copied.QuantityAdjusted)
	require.True(t, copied.IsModified)
	require.Equal(t, 0.0, copied.TotalHT)
}

func TestItemsExplicitesPersistesTelsQuels(t *testing.T) {
	svc, userID := newTestService(t)

	zero := 0.0
	in := bathroomInput()
	in.Rooms[0].Works[0].Items = []ItemInput{
		{Designation: "Plaque fournie par le client", QuantityCalculated: 4, QuantityAdjusted: &zero, Unit: "plaque", UnitPrice: 24.12},
		{Designation: "Forfait pose", QuantityCalculated: 2, Unit: "h", UnitPrice: 50},
	}

	quotation, err := svc.Create(userID, in)
	require.NoError(t, err)
	items := quotation.Rooms[0].Works[0].Items
	require.Len(t, items, 2)

	// zéro explicite conservé, absence → quantité calculée
	require.Equal(t, 0.0, items[0].QuantityAdjusted)
	require.True(t, items[0].IsModified)
	require.Equal(t, 2.0, items[1].QuantityAdjusted)
	require.False(t, items[1].IsModified)
	require.Equal(t, 100.0, quotation.TotalHT)
}

func TestIsolationParUtilisateur(t *testing.T) {
	svc, userID := newTestService(t)
	other := models.User{FullName: "Autre", Email: "autre@test.local", Password: "x"}
	require.NoError(t, svc.DB.Create(&other).Error)

	quotation, err := svc.Create(userID, bathroomInput())
	require.NoError(t, err)

	_, err = svc.Get(other.ID, quotation.ID)
	require.ErrorIs(t, err, ErrQuotationNotFound)

	_, err = svc.UpdateStatus(other.ID, quotation.ID, models.StatusSent)
	require.ErrorIs(t, err, ErrQuotationNotFound)
}

func TestUpdateRemplaceLesPieces(t *testing.T) {
	svc, userID := newTestService(t)

	quotation, err := svc.Create(userID, bathroomInput())
	require.NoError(t, err)

	in := bathroomInput()
	in.ClientName = "Mme Bernard"
	in.Rooms = append(in.Rooms, RoomInput{
		RoomType: models.RoomGarage,
		Works: []WorkInput{
			{WorkType: models.WorkCloison, Epaisseur: models.Epaisseur140, Longueur: 3, Hauteur: 2.5},
		},
	})

	updated, err := svc.Update(userID, quotation.ID, in)
	require.NoError(t, err)
	require.Equal(t, "Mme Bernard", updated.ClientName)
	require.Len(t, updated.Rooms, 2)
	require.Equal(t, "Plaque Feu", updated.Rooms[1].Works[0].Items[0].Designation)
	require.Greater(t, updated.TotalHT, quotation.TotalHT)
}

func TestListEtFiltres(t *testing.T) {
	svc, userID := newTestService(t)

	first, err := svc.Create(userID, bathroomInput())
	require.NoError(t, err)
	in := bathroomInput()
	in.ClientName = "Mme Durand"
	_, err = svc.Create(userID, in)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(userID, first.ID, models.StatusSent)
	require.NoError(t, err)

	all, total, err := svc.List(userID, ListFilters{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, all, 2)

	sent, total, err := svc.List(userID, ListFilters{Status: models.StatusSent})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, first.ID, sent[0].ID)

	byName, total, err := svc.List(userID, ListFilters{Search: "Durand"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "Mme Durand", byName[0].ClientName)
}

func TestStats(t *testing.T) {
	svc, userID := newTestService(t)

	first, err := svc.Create(userID, bathroomInput())
	require.NoError(t, err)
	second, err := svc.Create(userID, bathroomInput())
	require.NoError(t, err)
	_, err = svc.Create(userID, bathroomInput())
	require.NoError(t, err)

	accepted, err := svc.UpdateStatus(userID, first.ID, models.StatusAccepted)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(userID, second.ID, models.StatusRejected)
	require.NoError(t, err)

	stats, err := svc.Stats(userID)
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.Total)
	require.EqualValues(t, 1, stats.Draft)
	require.EqualValues(t, 1, stats.Accepted)
	require.EqualValues(t, 1, stats.Rejected)
	require.Equal(t, accepted.TotalTTC, stats.TotalAcceptedAmount)
	require.Equal(t, 50.0, stats.ConversionRate)
}

func TestGetByPublicToken(t *testing.T) {
	svc, userID := newTestService(t)

	quotation, err := svc.Create(userID, bathroomInput())
	require.NoError(t, err)

	found, err := svc.GetByPublicToken(quotation.PublicToken)
	require.NoError(t, err)
	require.Equal(t, quotation.ID, found.ID)

	_, err = svc.GetByPublicToken("jamais-emis")
	require.ErrorIs(t, err, ErrQuotationNotFound)
}
