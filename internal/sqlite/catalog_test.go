package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/carwizard/internal/domain/vehicle"
	"github.com/stretchr/testify/require"
)

func seedCatalog(t *testing.T, repo *CatalogRepository) {
	t.Helper()
	require.NoError(t, repo.Upsert(context.Background(), []vehicle.Vehicle{
		{ID: "a", Make: "Skoda", Model: "Kodiaq", Price: 1_000_000, BodyType: "SUV", FuelType: "Petrol", Tags: []string{"family-focused"}, QualityScore: 80},
		{ID: "b", Make: "Volvo", Model: "XC60", Price: 2_000_000, BodyType: "Compact SUV", FuelType: "Petrol (MHEV)", Tags: []string{"family-focused", "safety"}, QualityScore: 60},
		{ID: "c", Make: "Tesla", Model: "Model 3", Price: 1_500_000, BodyType: "Sedan", FuelType: "Electric", Tags: []string{"technology"}, QualityScore: 90},
		{ID: "d", Make: "Odd", Model: "100%", Price: 10, BodyType: "100%_body", FuelType: "Diesel", Tags: nil, QualityScore: 1},
	}))
}

func TestCatalogRepository_QueryAll(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCatalogRepository(db)
	seedCatalog(t, repo)

	vehicles, err := repo.Query(context.Background(), vehicle.CatalogFilters{})
	require.NoError(t, err)
	require.Len(t, vehicles, 4)
	require.Equal(t, "a", vehicles[0].ID)
	require.Equal(t, []string{"family-focused", "safety"}, vehicles[1].Tags)
	require.Equal(t, []string{}, vehicles[3].Tags)
	require.InDelta(t, 60.0, vehicles[1].QualityScore, 1e-9)
}

func TestCatalogRepository_QueryFilters(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCatalogRepository(db)
	seedCatalog(t, repo)
	ctx := context.Background()

	budget := int64(1_500_000)
	vehicles, err := repo.Query(ctx, vehicle.CatalogFilters{MaxPrice: &budget})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c", "d"}, ids(vehicles))

	vehicles, err = repo.Query(ctx, vehicle.CatalogFilters{BodyTypeContains: "suv"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ids(vehicles))

	vehicles, err = repo.Query(ctx, vehicle.CatalogFilters{FuelTypeStartsWith: "PETROL"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ids(vehicles))

	vehicles, err = repo.Query(ctx, vehicle.CatalogFilters{FuelTypeStartsWith: "Electric", BodyTypeContains: "SUV"})
	require.NoError(t, err)
	require.Empty(t, vehicles)
}

func TestCatalogRepository_QueryTreatsWildcardsLiterally(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCatalogRepository(db)
	seedCatalog(t, repo)

	vehicles, err := repo.Query(context.Background(), vehicle.CatalogFilters{BodyTypeContains: "%_"})
	require.NoError(t, err)
	require.Equal(t, []string{"d"}, ids(vehicles))

	vehicles, err = repo.Query(context.Background(), vehicle.CatalogFilters{BodyTypeContains: "_"})
	require.NoError(t, err)
	require.Equal(t, []string{"d"}, ids(vehicles))
}

func TestCatalogRepository_QueryAgreesWithFilter(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCatalogRepository(db)
	seedCatalog(t, repo)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, []vehicle.Vehicle{
		{ID: "e", Make: "Renault", Model: "Mégane", Price: 900_000, BodyType: "COUPÉ", FuelType: "ÉLECTRIQUE", QualityScore: 70},
	}))

	all, err := repo.Query(ctx, vehicle.CatalogFilters{})
	require.NoError(t, err)

	budget := int64(2_000_000)
	cases := []vehicle.Criteria{
		{Budget: &budget, BodyType: "suv", FuelType: "Gasoline"},
		{BodyType: "coupé"},
		{BodyType: "Coupé", FuelType: "électrique"},
		{FuelType: "ÉLEC"},
	}
	for _, c := range cases {
		filters := c.CatalogFilters()
		pushed, err := repo.Query(ctx, filters)
		require.NoError(t, err)
		require.Equal(t, vehicle.FilterBy(all, filters), pushed, "criteria %+v", c)
	}
}

func TestCatalogRepository_QueryFoldsNonASCIICase(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, []vehicle.Vehicle{
		{ID: "coupe", Price: 1, BodyType: "COUPÉ", FuelType: "Petrol"},
		{ID: "city", Price: 1, BodyType: "Şehir SUV", FuelType: "Dizel"},
	}))

	vehicles, err := repo.Query(ctx, vehicle.CatalogFilters{BodyTypeContains: "coupé"})
	require.NoError(t, err)
	require.Equal(t, []string{"coupe"}, ids(vehicles))

	vehicles, err = repo.Query(ctx, vehicle.CatalogFilters{BodyTypeContains: "ŞEHIR"})
	require.NoError(t, err)
	require.Equal(t, []string{"city"}, ids(vehicles))
}

func TestCatalogRepository_UpsertKeepsPosition(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCatalogRepository(db)
	seedCatalog(t, repo)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, []vehicle.Vehicle{
		{ID: "a", Price: 900_000, BodyType: "SUV", FuelType: "Diesel", Tags: []string{"winter"}},
	}))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	vehicles, err := repo.Query(ctx, vehicle.CatalogFilters{})
	require.NoError(t, err)
	require.Equal(t, "a", vehicles[0].ID)
	require.Equal(t, int64(900_000), vehicles[0].Price)
	require.Equal(t, "Diesel", vehicles[0].FuelType)
}

func TestCatalogRepository_UpsertRollsBack(t *testing.T) {
	db := NewTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	err := repo.Upsert(ctx, []vehicle.Vehicle{
		{ID: "ok", Price: 1, BodyType: "SUV", FuelType: "Petrol"},
		{ID: "bad", Price: -1, BodyType: "SUV", FuelType: "Petrol"},
	})
	require.Error(t, err)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func ids(vehicles []vehicle.Vehicle) []string {
	out := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, v.ID)
	}
	return out
}
