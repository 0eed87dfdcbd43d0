package data

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"geo-places/internal/biz"
	"geo-places/internal/conf"
	"geo-places/internal/geo"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const queryLat, queryLon = 40.778513, -73.974493

var (
	upperWestSide = &biz.Place{
		Name:       "Upper West Side",
		Latitude:   40.787751,
		Longitude:  -73.975883,
		Popularity: 1000,
		Polygon: orb.Polygon{{
			{-73.996142, 40.769848}, {-73.996142, 40.805802}, {-73.958354, 40.805802},
			{-73.958354, 40.769848}, {-73.996142, 40.769848},
		}},
	}
	centralPark = &biz.Place{
		Name:       "Central Park",
		Latitude:   40.764356,
		Longitude:  -73.973057,
		Popularity: 10000,
		Polygon: orb.Polygon{{
			{-73.973057, 40.764356}, {-73.981898, 40.768094}, {-73.958209, 40.800621},
			{-73.949282, 40.796853}, {-73.973057, 40.764356},
		}},
	}
)

func newTestData(t *testing.T, ttl time.Duration) *Data {
	t.Helper()
	return openTestData(t, filepath.Join(t.TempDir(), "places.db"), ttl)
}

func openTestData(t *testing.T, path string, ttl time.Duration) *Data {
	t.Helper()
	c := &conf.Data{
		Database: &conf.Data_Database{
			Driver: dialect.SQLite,
			Source: path,
		},
		Cache: &conf.Data_Cache{Ttl: &conf.Duration{Duration: ttl}},
	}
	drv, err := NewSqlDriver(c, log.DefaultLogger)
	require.NoError(t, err)
	d, cleanup, err := NewData(c, drv, log.DefaultLogger)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return d
}

func newTestUsecase(t *testing.T, places ...*biz.Place) (*biz.PlaceUsecase, biz.PlaceRepo) {
	t.Helper()
	return seedUsecase(t, newTestData(t, time.Minute), places...)
}

func seedUsecase(t *testing.T, d *Data, places ...*biz.Place) (*biz.PlaceUsecase, biz.PlaceRepo) {
	t.Helper()
	repo := NewPlaceRepo(d, log.DefaultLogger)
	uc := biz.NewPlaceUsecase(repo, nil, log.DefaultLogger)
	for _, p := range places {
		cp := *p
		_, err := uc.Save(context.Background(), &cp)
		require.NoError(t, err)
	}
	return uc, repo
}

func names(places []biz.RankedPlace) []string {
	out := make([]string, 0, len(places))
	for _, p := range places {
		out = append(out, p.Place.Name)
	}
	return out
}

func radius(v float64) *float64 { return &v }

func TestReverseGeolocateScenario(t *testing.T) {
	uc, _ := newTestUsecase(t, upperWestSide, centralPark)
	ctx := context.Background()

	places, err := uc.ReverseGeolocate(ctx, biz.ReverseParams{Lat: queryLat, Lon: queryLon})
	require.NoError(t, err)
	assert.Equal(t, []string{"Upper West Side", "Central Park"}, names(places))
	assert.InDelta(t, 1035.0, places[0].Distance, 1)
	assert.InDelta(t, 1580.6, places[1].Distance, 1)

	weighted, err := uc.ReverseGeolocate(ctx, biz.ReverseParams{Lat: queryLat, Lon: queryLon, Weighted: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Central Park", "Upper West Side"}, names(weighted))
	// 距离仍是原始距离，而非加权分数
	assert.InDelta(t, 1580.6, weighted[0].Distance, 1)
	assert.InDelta(t, 1035.0, weighted[1].Distance, 1)
}

func TestNearbyScenarios(t *testing.T) {
	uc, _ := newTestUsecase(t, upperWestSide, centralPark)
	ctx := context.Background()

	tests := []struct {
		radius float64
		want   []string
	}{
		{0, []string{}},
		{1500, []string{"Upper West Side"}},
		{2500, []string{"Upper West Side", "Central Park"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.radius), func(t *testing.T) {
			places, err := uc.Nearby(ctx, biz.NearbyParams{Lat: queryLat, Lon: queryLon, Radius: radius(tt.radius)})
			require.NoError(t, err)
			assert.NotNil(t, places)
			assert.Equal(t, tt.want, names(places))
		})
	}
}

func TestNearbyRadiusIsStrict(t *testing.T) {
	uc, _ := newTestUsecase(t, upperWestSide, centralPark)
	ctx := context.Background()

	all, err := uc.Nearby(ctx, biz.NearbyParams{Lat: queryLat, Lon: queryLon, Radius: radius(2500)})
	require.NoError(t, err)
	require.Len(t, all, 2)

	exact := all[0].Distance
	places, err := uc.Nearby(ctx, biz.NearbyParams{Lat: queryLat, Lon: queryLon, Radius: &exact})
	require.NoError(t, err)
	assert.Empty(t, places)

	places, err = uc.Nearby(ctx, biz.NearbyParams{Lat: queryLat, Lon: queryLon, Radius: radius(exact + 0.001)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Upper West Side"}, names(places))
}

func TestNearbyLimitAndOrder(t *testing.T) {
	var places []*biz.Place
	for i := 0; i < 15; i++ {
		places = append(places, &biz.Place{
			Name:      fmt.Sprintf("place-%02d", i),
			Latitude:  queryLat + float64(15-i)*0.0005,
			Longitude: queryLon,
		})
	}
	uc, _ := newTestUsecase(t, places...)
	ctx := context.Background()

	var prev []string
	for _, r := range []float64{100, 300, 600, 900, 5000} {
		got, err := uc.Nearby(ctx, biz.NearbyParams{Lat: queryLat, Lon: queryLon, Radius: radius(r)})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), biz.DefaultLimit)
		assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Distance < got[j].Distance }))
		for _, p := range got {
			assert.Less(t, p.Distance, r)
		}
		// 半径增大时结果只增不减（截断前）
		if len(got) < biz.DefaultLimit {
			assert.Subset(t, names(got), prev)
		}
		prev = names(got)
	}

	got, err := uc.Nearby(ctx, biz.NearbyParams{Lat: queryLat, Lon: queryLon, Radius: radius(5000)})
	require.NoError(t, err)
	require.Len(t, got, biz.DefaultLimit)
	assert.Equal(t, "place-14", got[0].Place.Name)
}

func TestReverseGeolocateSameSetWhenWeighted(t *testing.T) {
	noPolygon := &biz.Place{Name: "No Polygon", Latitude: queryLat, Longitude: queryLon, Popularity: 99999}
	uc, _ := newTestUsecase(t, upperWestSide, centralPark, noPolygon)
	ctx := context.Background()

	plain, err := uc.ReverseGeolocate(ctx, biz.ReverseParams{Lat: queryLat, Lon: queryLon})
	require.NoError(t, err)
	weighted, err := uc.ReverseGeolocate(ctx, biz.ReverseParams{Lat: queryLat, Lon: queryLon, Weighted: true})
	require.NoError(t, err)

	assert.ElementsMatch(t, names(plain), names(weighted))
	assert.NotContains(t, names(plain), "No Polygon")
}

func TestReverseGeolocateBuffer(t *testing.T) {
	uc, _ := newTestUsecase(t, centralPark)
	ctx := context.Background()

	// 查询点距公园多边形约 13.5 米，只靠 100 米缓冲命中
	places, err := uc.ReverseGeolocate(ctx, biz.ReverseParams{Lat: queryLat, Lon: queryLon})
	require.NoError(t, err)
	assert.Equal(t, []string{"Central Park"}, names(places))

	places, err = uc.ReverseGeolocate(ctx, biz.ReverseParams{Lat: 40.70, Lon: -74.01})
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestQueriesAreIdempotent(t *testing.T) {
	// 不开缓存，两次都落到存储
	uc, _ := seedUsecase(t, newTestData(t, 0), upperWestSide, centralPark)
	ctx := context.Background()
	params := biz.NearbyParams{Lat: queryLat, Lon: queryLon, Radius: radius(2500)}

	first, err := uc.Nearby(ctx, params)
	require.NoError(t, err)
	second, err := uc.Nearby(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGetAndSavePlace(t *testing.T) {
	_, repo := newTestUsecase(t)
	ctx := context.Background()

	saved, err := repo.SavePlace(ctx, &biz.Place{
		Name:      "Upper West Side",
		Latitude:  40.787751,
		Longitude: -73.975883,
		Center:    orb.Point{-73.975883, 40.787751},
		Polygon:   upperWestSide.Polygon,
	})
	require.NoError(t, err)
	require.NotZero(t, saved.ID)

	got, err := repo.GetPlace(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Upper West Side", got.Name)
	assert.Equal(t, orb.Point{-73.975883, 40.787751}, got.Center)
	assert.Equal(t, upperWestSide.Polygon, got.Polygon)
	assert.Zero(t, got.Popularity)

	got.Popularity = 42
	_, err = repo.SavePlace(ctx, got)
	require.NoError(t, err)
	again, err := repo.GetPlace(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), again.Popularity)

	_, err = repo.GetPlace(ctx, saved.ID+100)
	assert.True(t, errors.IsNotFound(err))
}

func TestSaveInvalidatesCache(t *testing.T) {
	uc, _ := newTestUsecase(t, upperWestSide)
	ctx := context.Background()
	params := biz.NearbyParams{Lat: queryLat, Lon: queryLon, Radius: radius(2500)}

	before, err := uc.Nearby(ctx, params)
	require.NoError(t, err)
	require.Len(t, before, 1)

	cp := *centralPark
	_, err = uc.Save(ctx, &cp)
	require.NoError(t, err)

	after, err := uc.Nearby(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, []string{"Upper West Side", "Central Park"}, names(after))
}

func TestQueriesSeeWritesFromAnotherProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.db")
	server, _ := seedUsecase(t, openTestData(t, path, 0))
	importer, _ := seedUsecase(t, openTestData(t, path, 0))
	ctx := context.Background()
	params := biz.NearbyParams{Lat: queryLat, Lon: queryLon, Radius: radius(2500)}

	before, err := server.Nearby(ctx, params)
	require.NoError(t, err)
	assert.Empty(t, before)

	cp := *upperWestSide
	_, err = importer.Save(ctx, &cp)
	require.NoError(t, err)

	after, err := server.Nearby(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, []string{"Upper West Side"}, names(after))
}

func TestPing(t *testing.T) {
	_, repo := newTestUsecase(t)
	assert.NoError(t, repo.Ping(context.Background()))
}

// queryRecorder 记录 usecase 下发的查询，不访问存储。
type queryRecorder struct {
	biz.PlaceRepo
	last geo.Query
}

func (r *queryRecorder) ListPlaces(_ context.Context, q geo.Query) ([]biz.PlaceRow, error) {
	r.last = q
	return nil, nil
}

func weightedReverseQuery(t *testing.T) geo.Query {
	t.Helper()
	rec := &queryRecorder{}
	uc := biz.NewPlaceUsecase(rec, nil, log.DefaultLogger)
	_, err := uc.ReverseGeolocate(context.Background(), biz.ReverseParams{Lat: queryLat, Lon: queryLon, Weighted: true})
	require.NoError(t, err)
	return rec.last
}

func renderPlaces(d string, q geo.Query) (string, []any) {
	r := &placeRepo{data: &Data{sqlDrv: entsql.OpenDB(d, nil)}}
	return r.buildQuery(q)
}

func TestBuildQueryPostgres(t *testing.T) {
	query, args := renderPlaces(dialect.Postgres, weightedReverseQuery(t))

	point := "SRID=4326;" + wkt.MarshalString(orb.Point{queryLon, queryLat})
	assert.Equal(t, []any{point, point, biz.DefaultIntersectBuffer, point}, args)

	assert.True(t, strings.HasPrefix(query, `SELECT "id", "name", "latitude", "longitude"`), query)
	assert.Contains(t, query, `ST_AsGeoJSON("polygon")`)
	assert.Contains(t, query, `ST_Distance("center", ST_GeogFromText($1))`)
	assert.Contains(t, query, ` AS "distance"`)
	assert.Contains(t, query, `FROM "place"`)
	assert.Contains(t, query, `WHERE ST_Intersects("polygon", ST_Buffer(ST_GeogFromText($2), $3))`)
	assert.Contains(t, query, `ORDER BY ((ST_Distance("center", ST_GeogFromText($4)) + 1) / ("popularity" + 1))`)
	assert.True(t, strings.HasSuffix(query, " LIMIT 10"), query)

	// 占位符按出现顺序连续编号
	prev := -1
	for i := 1; i <= len(args); i++ {
		at := strings.Index(query, fmt.Sprintf("$%d)", i))
		require.Greater(t, at, prev, "$%d out of order in %s", i, query)
		prev = at
	}
	assert.NotContains(t, query, "$5")
}

func TestBuildQueryMySQL(t *testing.T) {
	query, args := renderPlaces(dialect.MySQL, weightedReverseQuery(t))

	point := wkt.MarshalString(orb.Point{queryLon, queryLat})
	assert.Equal(t, []any{point, point, biz.DefaultIntersectBuffer, point}, args)

	const lit = "ST_GeomFromText(?, 4326, 'axis-order=long-lat')"
	assert.Contains(t, query, "ST_Distance_Sphere(`center`, "+lit+")")
	assert.Contains(t, query, "WHERE ST_Intersects(`polygon`, ST_Buffer("+lit+", ?))")
	assert.Contains(t, query, "ORDER BY ((ST_Distance_Sphere(`center`, "+lit+") + 1) / (`popularity` + 1))")
	assert.Equal(t, len(args), strings.Count(query, "?"))
	assert.True(t, strings.HasSuffix(query, " LIMIT 10"), query)
}

func TestReindex(t *testing.T) {
	d := newTestData(t, 0)
	require.NoError(t, Reindex(context.Background(), d.sqlDrv))
	assert.Equal(t, []string{`REINDEX TABLE "place"`, `ANALYZE "place"`}, ReindexStatements(dialect.Postgres))
}

func TestMigrationStatements(t *testing.T) {
	pg := MigrationStatements(dialect.Postgres)
	require.Len(t, pg, 4)
	assert.Equal(t, "CREATE EXTENSION IF NOT EXISTS postgis", pg[0])
	assert.Contains(t, pg[1], `"center" geography(Point, 4326) NOT NULL`)
	assert.Equal(t, `CREATE INDEX IF NOT EXISTS "place_polygon_idx" ON "place" USING GIST ("polygon")`, pg[3])

	my := MigrationStatements(dialect.MySQL)
	require.Len(t, my, 1)
	assert.Contains(t, my[0], "SPATIAL INDEX `place_center_idx` (`center`)")

	lite := MigrationStatements(dialect.SQLite)
	require.Len(t, lite, 1)
	assert.Contains(t, lite[0], "CREATE TABLE IF NOT EXISTS `place` (`id` INTEGER PRIMARY KEY AUTOINCREMENT")
}
