package biz

import (
	"context"
	"fmt"
	"math"
	"strings"

	"geo-places/internal/conf"
	"geo-places/internal/geo"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 存储列名，data 层建表与查询使用同一组名字。
const (
	PlaceTable      = "place"
	FieldID         = "id"
	FieldName       = "name"
	FieldLatitude   = "latitude"
	FieldLongitude  = "longitude"
	FieldCenter     = "center"
	FieldPolygon    = "polygon"
	FieldPopularity = "popularity"
	FieldDistance   = "distance"
)

// 查询策略默认值，可由 conf.Geo 覆盖。
const (
	DefaultRadius          = 500.0
	DefaultIntersectBuffer = 100.0
	DefaultLimit           = 10
)

var (
	colCenter     = geo.Col(FieldCenter)
	colPolygon    = geo.Col(FieldPolygon)
	colPopularity = geo.Col(FieldPopularity)
)

// Place 是带名称、中心点和可选多边形的地理对象。
type Place struct {
	ID         int64
	Name       string
	Latitude   float64
	Longitude  float64
	Center     orb.Point   // 经度在前
	Polygon    orb.Polygon // nil 表示没有多边形，反向地理编码永远不会命中
	Popularity int64
}

// CenterGeoJSON returns the center as a GeoJSON point.
func (p *Place) CenterGeoJSON() *geojson.Geometry {
	return geojson.NewGeometry(p.Center)
}

// PolygonGeoJSON returns the polygon as GeoJSON, or nil when the place has none.
func (p *Place) PolygonGeoJSON() *geojson.Geometry {
	if p.Polygon == nil {
		return nil
	}
	return geojson.NewGeometry(p.Polygon)
}

// PlaceRow 是存储按排序返回的原始 (Place, distance) 对。
type PlaceRow struct {
	Place    *Place
	Distance float64
}

// RankedPlace 是一次查询的结果项。Distance 为真实测地距离（米），只属于这次查询。
type RankedPlace struct {
	Place    Place
	Distance float64
}

// PlaceRepo 抽象读写路径。ListPlaces 在存储端执行 geo.Query 并保持存储给出的顺序。
type PlaceRepo interface {
	ListPlaces(ctx context.Context, q geo.Query) ([]PlaceRow, error)
	GetPlace(ctx context.Context, id int64) (*Place, error)
	SavePlace(ctx context.Context, p *Place) (*Place, error)
	Ping(ctx context.Context) error
}

// NearbyParams 附近查询参数，Radius 为 nil 时使用默认半径。
type NearbyParams struct {
	Lat    float64
	Lon    float64
	Radius *float64
}

// ReverseParams 反向地理编码参数。
type ReverseParams struct {
	Lat      float64
	Lon      float64
	Weighted bool
}

// PlaceUsecase 负责构造查询与排序策略。
type PlaceUsecase struct {
	repo   PlaceRepo
	radius float64
	buffer float64
	limit  int
	log    *log.Helper
}

func NewPlaceUsecase(repo PlaceRepo, c *conf.Geo, logger log.Logger) *PlaceUsecase {
	uc := &PlaceUsecase{
		repo:   repo,
		radius: DefaultRadius,
		buffer: DefaultIntersectBuffer,
		limit:  DefaultLimit,
		log:    log.NewHelper(log.With(logger, "module", "biz/place")),
	}
	if c != nil {
		if c.DefaultRadius > 0 {
			uc.radius = c.DefaultRadius
		}
		if c.IntersectBuffer > 0 {
			uc.buffer = c.IntersectBuffer
		}
		if c.Limit > 0 {
			uc.limit = c.Limit
		}
	}
	return uc
}

// Nearby 返回中心点距离严格小于半径的地点，由近到远，最多 limit 条。
func (uc *PlaceUsecase) Nearby(ctx context.Context, p NearbyParams) ([]RankedPlace, error) {
	radius := uc.radius
	if p.Radius != nil {
		radius = *p.Radius
	}
	if err := validatePoint(p.Lat, p.Lon); err != nil {
		return nil, err
	}
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius < 0 {
		return nil, errors.BadRequest(InvalidRadius, fmt.Sprintf("invalid radius %v", radius))
	}
	uc.log.WithContext(ctx).Debugf("nearby lat=%f lon=%f radius=%f", p.Lat, p.Lon, radius)

	rows, err := uc.repo.ListPlaces(ctx, uc.nearbyQuery(p.Lat, p.Lon, radius))
	if err != nil {
		return nil, storeError(err)
	}
	return assemble(rows), nil
}

// ReverseGeolocate 返回多边形与点的缓冲圆相交的候选地点。
// weighted 时按 (distance + 1) / (popularity + 1) 升序，否则按距离升序。
func (uc *PlaceUsecase) ReverseGeolocate(ctx context.Context, p ReverseParams) ([]RankedPlace, error) {
	if err := validatePoint(p.Lat, p.Lon); err != nil {
		return nil, err
	}
	uc.log.WithContext(ctx).Debugf("reverse lat=%f lon=%f weighted=%t", p.Lat, p.Lon, p.Weighted)

	rows, err := uc.repo.ListPlaces(ctx, uc.reverseQuery(p.Lat, p.Lon, p.Weighted))
	if err != nil {
		return nil, storeError(err)
	}
	return assemble(rows), nil
}

func (uc *PlaceUsecase) nearbyQuery(lat, lon, radius float64) geo.Query {
	point := geo.FormatPoint(lat, lon)
	d := geo.Distance(colCenter, point)
	return geo.Query{
		Distance: d,
		Where:    geo.Lt(d, geo.Arg(radius)),
		OrderBy:  []geo.Expr{d},
		Limit:    uc.limit,
	}
}

func (uc *PlaceUsecase) reverseQuery(lat, lon float64, weighted bool) geo.Query {
	point := geo.FormatPoint(lat, lon)
	d := geo.Distance(colCenter, point)
	var order geo.Expr = d
	if weighted {
		// +1 避免距离为 0 或人气为 0 时退化
		order = geo.Div(geo.Add(d, geo.Num(1)), geo.Add(colPopularity, geo.Num(1)))
	}
	return geo.Query{
		Distance: d,
		Where:    geo.BufferedIntersects(colPolygon, point, uc.buffer),
		OrderBy:  []geo.Expr{order},
		Limit:    uc.limit,
	}
}

// Get 按 ID 读取地点，不存在时返回 ErrPlaceNotFound。
func (uc *PlaceUsecase) Get(ctx context.Context, id int64) (*Place, error) {
	p, err := uc.repo.GetPlace(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return p, nil
}

// ValidatePlace 检查写入前的必填项：名称非空、热度非负、经纬度合法。
func ValidatePlace(p *Place) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.BadRequest(InvalidArgument, "place name is required")
	}
	if p.Popularity < 0 {
		return errors.BadRequest(InvalidArgument, "popularity must not be negative")
	}
	return validatePoint(p.Latitude, p.Longitude)
}

// Save 写入地点。中心点总是由经纬度生成，两者不会经由此路径产生偏差。
func (uc *PlaceUsecase) Save(ctx context.Context, p *Place) (*Place, error) {
	if err := ValidatePlace(p); err != nil {
		return nil, err
	}
	p.Center = orb.Point{p.Longitude, p.Latitude}
	saved, err := uc.repo.SavePlace(ctx, p)
	if err != nil {
		return nil, storeError(err)
	}
	uc.log.WithContext(ctx).Infof("saved place id=%d name=%s", saved.ID, saved.Name)
	return saved, nil
}

// Ping 检查存储可用性。
func (uc *PlaceUsecase) Ping(ctx context.Context) error {
	return uc.repo.Ping(ctx)
}

// assemble 按原顺序把距离附加到地点上，不重排，不修改持久化字段。
// 多边形深拷贝，结果与存储（含缓存）返回的行不共享底层数组。
func assemble(rows []PlaceRow) []RankedPlace {
	out := make([]RankedPlace, 0, len(rows))
	for _, row := range rows {
		place := *row.Place
		if place.Polygon != nil {
			place.Polygon = place.Polygon.Clone()
		}
		out = append(out, RankedPlace{Place: place, Distance: row.Distance})
	}
	return out
}

func validatePoint(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return errors.BadRequest(InvalidPoint, fmt.Sprintf("invalid coordinate lat=%v lon=%v", lat, lon))
	}
	return nil
}
