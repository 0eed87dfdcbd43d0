package geo

import (
	"fmt"
	"strconv"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// SRID 为 WGS84。
const SRID = 4326

// Querier 是表达式的 ent Querier 实现。
// 嵌入 Selector 时由外层 Builder 设置方言与参数计数，保证 $n 占位符连续。
type Querier struct {
	expr    Expr
	dialect string
	total   int
}

// Compile wraps e so it can be used wherever ent accepts a Querier.
func Compile(e Expr) *Querier {
	return &Querier{expr: e}
}

// Render compiles e standalone for the given dialect.
func Render(d string, e Expr) (string, []any) {
	q := Compile(e)
	q.SetDialect(d)
	return q.Query()
}

// Predicate wraps a boolean expression as an ent WHERE predicate.
func Predicate(e Expr) *entsql.Predicate {
	return entsql.P(func(b *entsql.Builder) {
		write(b, e)
	})
}

func (q *Querier) Query() (string, []any) {
	b := &entsql.Builder{}
	b.SetDialect(q.dialect)
	b.SetTotal(q.total)
	write(b, q.expr)
	return b.Query()
}

func (q *Querier) SetDialect(d string) { q.dialect = d }

func (q *Querier) Dialect() string { return q.dialect }

func (q *Querier) SetTotal(total int) { q.total = total }

func (q *Querier) Total() int { return q.total }

func write(b *entsql.Builder, e Expr) {
	switch e := e.(type) {
	case Point:
		writeShape(b, e.Orb())
	case Shape:
		writeShape(b, e.Geom)
	case Column:
		b.Ident(e.Name)
	case Number:
		b.WriteString(strconv.FormatFloat(e.Value, 'f', -1, 64))
	case Param:
		b.Arg(e.Value)
	case DistanceExpr:
		switch b.Dialect() {
		case dialect.Postgres:
			b.WriteString("ST_Distance(")
		case dialect.MySQL:
			b.WriteString("ST_Distance_Sphere(")
		default:
			b.WriteString("geo_distance(")
		}
		write(b, e.Geom)
		b.Comma()
		write(b, e.Point)
		b.WriteString(")")
	case BufferedIntersectsExpr:
		switch b.Dialect() {
		case dialect.Postgres, dialect.MySQL:
			b.WriteString("ST_Intersects(")
			write(b, e.Geom)
			b.WriteString(", ST_Buffer(")
			write(b, e.Point)
			b.Comma()
			b.Arg(e.Buffer)
			b.WriteString("))")
		default:
			b.WriteString("geo_buffered_intersects(")
			write(b, e.Geom)
			b.Comma()
			write(b, e.Point)
			b.Comma()
			b.Arg(e.Buffer)
			b.WriteString(")")
		}
	case AsGeoJSONExpr:
		switch b.Dialect() {
		case dialect.Postgres, dialect.MySQL:
			b.WriteString("ST_AsGeoJSON(")
		default:
			b.WriteString("geo_asgeojson(")
		}
		write(b, e.Geom)
		b.WriteString(")")
	case ArithExpr:
		b.WriteString("(")
		write(b, e.L)
		b.WriteString(" " + string(e.Op) + " ")
		write(b, e.R)
		b.WriteString(")")
	case CompareExpr:
		write(b, e.L)
		b.WriteString(" " + string(e.Op) + " ")
		write(b, e.R)
	default:
		panic(fmt.Sprintf("geo: unsupported expression %T", e))
	}
}

// writeShape 输出几何字面量：PostGIS 用 EWKT 转 geography，MySQL 用经度在前的 WKT，
// SQLite 直接绑定 GeoJSON 文本，由 geo_* 函数解析。
func writeShape(b *entsql.Builder, g orb.Geometry) {
	switch b.Dialect() {
	case dialect.Postgres:
		b.WriteString("ST_GeogFromText(")
		b.Arg("SRID=" + strconv.Itoa(SRID) + ";" + wkt.MarshalString(g))
		b.WriteString(")")
	case dialect.MySQL:
		b.WriteString("ST_GeomFromText(")
		b.Arg(wkt.MarshalString(g))
		b.WriteString(", " + strconv.Itoa(SRID) + ", 'axis-order=long-lat')")
	default:
		b.Arg(MarshalGeoJSON(g))
	}
}

// MarshalGeoJSON returns the GeoJSON geometry text for g.
func MarshalGeoJSON(g orb.Geometry) string {
	data, err := geojson.NewGeometry(g).MarshalJSON()
	if err != nil {
		// orb 几何总能编码，出错只可能是 NaN 坐标
		return "null"
	}
	return string(data)
}

// ParseGeoJSON parses GeoJSON geometry text as produced by ST_AsGeoJSON.
func ParseGeoJSON(s string) (orb.Geometry, error) {
	g, err := geojson.UnmarshalGeometry([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("geo: parse geojson: %w", err)
	}
	return g.Geometry(), nil
}
