package data

import (
	"database/sql/driver"
	"fmt"
	"math"
	"sync"

	"geo-places/internal/geo"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"modernc.org/sqlite"
)

// 嵌入式 SQLite 上的空间函数。几何以 GeoJSON 文本保存，
// 距离为球面 haversine 距离（米）。
var (
	spatialOnce sync.Once
	spatialErr  error
)

func registerSpatialFunctions() error {
	spatialOnce.Do(func() {
		fns := []struct {
			name  string
			nArgs int32
			fn    func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error)
		}{
			{"geo_distance", 2, sqliteDistance},
			{"geo_buffered_intersects", 3, sqliteBufferedIntersects},
			{"geo_asgeojson", 1, sqliteAsGeoJSON},
		}
		for _, f := range fns {
			if err := sqlite.RegisterDeterministicScalarFunction(f.name, f.nArgs, f.fn); err != nil {
				spatialErr = fmt.Errorf("register %s: %w", f.name, err)
				return
			}
		}
	})
	return spatialErr
}

func sqliteDistance(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	g, err := geometryArg(args[0])
	if err != nil || g == nil {
		return nil, err
	}
	p, err := pointArg(args[1])
	if err != nil || p == nil {
		return nil, err
	}
	return distanceTo(g, *p), nil
}

func sqliteBufferedIntersects(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	g, err := geometryArg(args[0])
	if err != nil || g == nil {
		return nil, err
	}
	p, err := pointArg(args[1])
	if err != nil || p == nil {
		return nil, err
	}
	buffer, ok := toFloat(args[2])
	if !ok {
		return nil, fmt.Errorf("geo_buffered_intersects: invalid buffer %v", args[2])
	}
	if distanceTo(g, *p) <= buffer {
		return int64(1), nil
	}
	return int64(0), nil
}

func sqliteAsGeoJSON(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	g, err := geometryArg(args[0])
	if err != nil || g == nil {
		return nil, err
	}
	return geo.MarshalGeoJSON(g), nil
}

// distanceTo 返回点到几何的最短测地距离（米），点落在多边形内时为 0。
func distanceTo(g orb.Geometry, p orb.Point) float64 {
	switch g := g.(type) {
	case orb.Point:
		return orbgeo.DistanceHaversine(g, p)
	case orb.Polygon:
		if planar.PolygonContains(g, p) {
			return 0
		}
		return ringsDistance(g, p)
	case orb.MultiPolygon:
		best := math.Inf(1)
		for _, poly := range g {
			best = math.Min(best, distanceTo(poly, p))
		}
		return best
	default:
		return orbgeo.DistanceHaversine(g.Bound().Center(), p)
	}
}

// ringsDistance 在以 p 为原点的局部等距投影中计算到各边的最短距离。
// 缓冲距离为百米量级，投影误差可以忽略。
func ringsDistance(poly orb.Polygon, p orb.Point) float64 {
	ky := orb.EarthRadius * math.Pi / 180
	kx := ky * math.Cos(p.Lat()*math.Pi/180)
	project := func(q orb.Point) orb.Point {
		return orb.Point{(q.Lon() - p.Lon()) * kx, (q.Lat() - p.Lat()) * ky}
	}
	origin := orb.Point{0, 0}
	best := math.Inf(1)
	for _, ring := range poly {
		for i := 1; i < len(ring); i++ {
			d := planar.DistanceFromSegment(project(ring[i-1]), project(ring[i]), origin)
			best = math.Min(best, d)
		}
	}
	return best
}

func geometryArg(v driver.Value) (orb.Geometry, error) {
	var s string
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return nil, fmt.Errorf("geo: unsupported geometry value %T", v)
	}
	return geo.ParseGeoJSON(s)
}

func pointArg(v driver.Value) (*orb.Point, error) {
	g, err := geometryArg(v)
	if err != nil || g == nil {
		return nil, err
	}
	p, ok := g.(orb.Point)
	if !ok {
		return nil, fmt.Errorf("geo: expected point, got %s", g.GeoJSONType())
	}
	return &p, nil
}

func toFloat(v driver.Value) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
