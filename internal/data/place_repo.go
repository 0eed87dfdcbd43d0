package data

import (
	"context"
	"database/sql"
	"fmt"

	"geo-places/internal/biz"
	"geo-places/internal/geo"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/paulmach/orb"
)

const (
	aliasCenter  = "center_geojson"
	aliasPolygon = "polygon_geojson"
)

func NewPlaceRepo(d *Data, logger log.Logger) biz.PlaceRepo {
	return &placeRepo{
		data: d,
		log:  log.NewHelper(log.With(logger, "module", "data/place")),
	}
}

type placeRepo struct {
	data *Data
	log  *log.Helper
}

// selectPlaces 选取 place 的全部持久化字段，几何统一以 GeoJSON 文本返回。
func (r *placeRepo) selectPlaces() *entsql.Selector {
	s := entsql.Dialect(r.data.Dialect()).
		Select(biz.FieldID, biz.FieldName, biz.FieldLatitude, biz.FieldLongitude).
		From(entsql.Table(biz.PlaceTable))
	s.AppendSelectExprAs(geo.Compile(geo.AsGeoJSON(geo.Col(biz.FieldCenter))), aliasCenter)
	s.AppendSelectExprAs(geo.Compile(geo.AsGeoJSON(geo.Col(biz.FieldPolygon))), aliasPolygon)
	s.AppendSelect(biz.FieldPopularity)
	return s
}

func (r *placeRepo) buildQuery(q geo.Query) (string, []any) {
	s := r.selectPlaces()
	if q.Distance != nil {
		s.AppendSelectExprAs(geo.Compile(q.Distance), biz.FieldDistance)
	}
	if q.Where != nil {
		s.Where(geo.Predicate(q.Where))
	}
	for _, o := range q.OrderBy {
		s.OrderExpr(geo.Compile(o))
	}
	if q.Limit > 0 {
		s.Limit(q.Limit)
	}
	return s.Query()
}

// ListPlaces 在存储端执行过滤、排序与截断，结果按存储顺序返回。
func (r *placeRepo) ListPlaces(ctx context.Context, q geo.Query) ([]biz.PlaceRow, error) {
	query, args := r.buildQuery(q)
	key := cacheKey(r.data.Dialect(), query, args)
	if r.cacheEnabled() {
		if v, err := r.data.cache.Get(ctx, key); err == nil {
			if rows, ok := v.([]biz.PlaceRow); ok {
				return rows, nil
			}
		}
	}

	rows := &entsql.Rows{}
	if err := r.data.db.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}
	defer rows.Close()

	out := make([]biz.PlaceRow, 0)
	for rows.Next() {
		var (
			row  biz.PlaceRow
			dist sql.NullFloat64
		)
		dest := []any{}
		p, placeDest := scanTargets()
		dest = append(dest, placeDest...)
		if q.Distance != nil {
			dest = append(dest, &dist)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		place, err := p.place()
		if err != nil {
			return nil, err
		}
		row.Place = place
		row.Distance = dist.Float64
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}

	if r.cacheEnabled() {
		if err := r.data.cache.Set(ctx, key, out, store.WithExpiration(r.data.conf.Cache.Ttl.AsDuration())); err != nil {
			r.log.WithContext(ctx).Warnf("cache set failed: %v", err)
		}
	}
	return out, nil
}

func (r *placeRepo) GetPlace(ctx context.Context, id int64) (*biz.Place, error) {
	s := r.selectPlaces().Where(entsql.EQ(biz.FieldID, id)).Limit(1)
	query, args := s.Query()

	rows := &entsql.Rows{}
	if err := r.data.db.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("get place %d: %w", id, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get place %d: %w", id, err)
		}
		return nil, biz.ErrPlaceNotFound
	}
	p, dest := scanTargets()
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan place: %w", err)
	}
	return p.place()
}

// SavePlace 新增或按 ID 覆盖地点，写入后清空查询缓存。
func (r *placeRepo) SavePlace(ctx context.Context, p *biz.Place) (*biz.Place, error) {
	d := r.data.Dialect()
	var polygon any
	if p.Polygon != nil {
		polygon = geo.Compile(geo.Geometry(p.Polygon))
	}
	columns := []string{biz.FieldName, biz.FieldLatitude, biz.FieldLongitude, biz.FieldCenter, biz.FieldPolygon, biz.FieldPopularity}
	values := []any{p.Name, p.Latitude, p.Longitude, geo.Compile(geo.Geometry(p.Center)), polygon, p.Popularity}
	if p.ID != 0 {
		columns = append([]string{biz.FieldID}, columns...)
		values = append([]any{p.ID}, values...)
	}
	insert := entsql.Dialect(d).Insert(biz.PlaceTable).Columns(columns...).Values(values...)
	if p.ID != 0 {
		insert.OnConflict(entsql.ConflictColumns(biz.FieldID), entsql.ResolveWithNewValues())
	}

	out := *p
	if d == dialect.Postgres && p.ID == 0 {
		insert.Returning(biz.FieldID)
		query, args := insert.Query()
		rows := &entsql.Rows{}
		if err := r.data.db.Query(ctx, query, args, rows); err != nil {
			return nil, fmt.Errorf("insert place: %w", err)
		}
		defer rows.Close()
		if !rows.Next() {
			return nil, fmt.Errorf("insert place: no id returned: %w", rows.Err())
		}
		if err := rows.Scan(&out.ID); err != nil {
			return nil, fmt.Errorf("insert place: %w", err)
		}
	} else {
		query, args := insert.Query()
		var res sql.Result
		if err := r.data.db.Exec(ctx, query, args, &res); err != nil {
			return nil, fmt.Errorf("save place: %w", err)
		}
		if p.ID == 0 {
			id, err := res.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("save place: %w", err)
			}
			out.ID = id
		}
	}

	if err := r.data.cache.Clear(ctx); err != nil {
		r.log.WithContext(ctx).Warnf("cache clear failed: %v", err)
	}
	return &out, nil
}

func (r *placeRepo) Ping(ctx context.Context) error {
	db := r.data.SQLDB()
	if db == nil {
		return fmt.Errorf("database not configured")
	}
	return db.PingContext(ctx)
}

func (r *placeRepo) cacheEnabled() bool {
	c := r.data.conf.Cache
	return c != nil && c.Ttl.AsDuration() > 0
}

func cacheKey(d, query string, args []any) string {
	return fmt.Sprintf("places:%s:%s:%v", d, query, args)
}

// placeScan 接收 selectPlaces 选出的列。
type placeScan struct {
	id         int64
	name       string
	lat, lon   float64
	center     sql.NullString
	polygon    sql.NullString
	popularity int64
}

func scanTargets() (*placeScan, []any) {
	p := &placeScan{}
	return p, []any{&p.id, &p.name, &p.lat, &p.lon, &p.center, &p.polygon, &p.popularity}
}

func (s *placeScan) place() (*biz.Place, error) {
	p := &biz.Place{
		ID:         s.id,
		Name:       s.name,
		Latitude:   s.lat,
		Longitude:  s.lon,
		Popularity: s.popularity,
	}
	if s.center.Valid {
		g, err := geo.ParseGeoJSON(s.center.String)
		if err != nil {
			return nil, fmt.Errorf("place %d center: %w", s.id, err)
		}
		if pt, ok := g.(orb.Point); ok {
			p.Center = pt
		}
	}
	if s.polygon.Valid {
		g, err := geo.ParseGeoJSON(s.polygon.String)
		if err != nil {
			return nil, fmt.Errorf("place %d polygon: %w", s.id, err)
		}
		if poly, ok := g.(orb.Polygon); ok {
			p.Polygon = poly
		}
	}
	return p, nil
}
