// Package geo 提供可组合的延迟空间表达式。
//
// 表达式只描述查询，不在进程内求值：Compile 把表达式树翻译为目标数据库方言的
// SQL 片段（PostGIS、MySQL 8 空间函数，或嵌入式 SQLite 上注册的 geo_* 函数），
// 过滤、排序与加权打分全部下推到存储端执行。
package geo

import (
	"github.com/paulmach/orb"
)

// Expr is a deferred expression node. The set of implementations is closed.
type Expr interface {
	expr()
}

// Point 是测地点字面量（经纬度，十进制度），不做范围校验。
type Point struct {
	Lat float64
	Lon float64
}

// Orb returns the point in lon/lat axis order.
func (p Point) Orb() orb.Point { return orb.Point{p.Lon, p.Lat} }

// Shape 是任意几何字面量，写入路径使用。
type Shape struct {
	Geom orb.Geometry
}

// Column 引用当前表的列。
type Column struct {
	Name string
}

// Number 是内联数值常量。
type Number struct {
	Value float64
}

// Param 是绑定参数，适用于调用方传入的值（如半径）。
type Param struct {
	Value any
}

// DistanceExpr 计算几何与点之间的测地距离（米）。
type DistanceExpr struct {
	Geom  Expr
	Point Point
}

// BufferedIntersectsExpr 在以 Point 为圆心、Buffer 米为半径的圆与 Geom 相交时为真。
// Geom 为 NULL 时结果为 NULL，在 WHERE 中等同于假。
type BufferedIntersectsExpr struct {
	Geom   Expr
	Point  Point
	Buffer float64
}

// AsGeoJSONExpr 把几何列输出为 GeoJSON 文本。
type AsGeoJSONExpr struct {
	Geom Expr
}

type ArithOp string

const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
	OpMul ArithOp = "*"
	OpDiv ArithOp = "/"
)

type ArithExpr struct {
	Op ArithOp
	L  Expr
	R  Expr
}

type CompareOp string

const (
	OpLT  CompareOp = "<"
	OpLTE CompareOp = "<="
	OpGT  CompareOp = ">"
	OpGTE CompareOp = ">="
	OpEQ  CompareOp = "="
)

type CompareExpr struct {
	Op CompareOp
	L  Expr
	R  Expr
}

func (Point) expr()                  {}
func (Shape) expr()                  {}
func (Column) expr()                 {}
func (Number) expr()                 {}
func (Param) expr()                  {}
func (DistanceExpr) expr()           {}
func (BufferedIntersectsExpr) expr() {}
func (AsGeoJSONExpr) expr()          {}
func (ArithExpr) expr()              {}
func (CompareExpr) expr()            {}

// FormatPoint builds a point literal from decimal degrees.
func FormatPoint(lat, lon float64) Point {
	return Point{Lat: lat, Lon: lon}
}

func Geometry(g orb.Geometry) Shape { return Shape{Geom: g} }

func Col(name string) Column { return Column{Name: name} }

func Num(v float64) Number { return Number{Value: v} }

func Arg(v any) Param { return Param{Value: v} }

// Distance returns the geodetic distance in meters between geom and p.
func Distance(geom Expr, p Point) DistanceExpr {
	return DistanceExpr{Geom: geom, Point: p}
}

// BufferedIntersects is true when a disc of buffer meters around p intersects geom.
func BufferedIntersects(geom Expr, p Point, buffer float64) BufferedIntersectsExpr {
	return BufferedIntersectsExpr{Geom: geom, Point: p, Buffer: buffer}
}

func AsGeoJSON(geom Expr) AsGeoJSONExpr { return AsGeoJSONExpr{Geom: geom} }

func Add(l, r Expr) ArithExpr { return ArithExpr{Op: OpAdd, L: l, R: r} }

func Sub(l, r Expr) ArithExpr { return ArithExpr{Op: OpSub, L: l, R: r} }

func Mul(l, r Expr) ArithExpr { return ArithExpr{Op: OpMul, L: l, R: r} }

func Div(l, r Expr) ArithExpr { return ArithExpr{Op: OpDiv, L: l, R: r} }

func Lt(l, r Expr) CompareExpr { return CompareExpr{Op: OpLT, L: l, R: r} }

func Lte(l, r Expr) CompareExpr { return CompareExpr{Op: OpLTE, L: l, R: r} }

func Eq(l, r Expr) CompareExpr { return CompareExpr{Op: OpEQ, L: l, R: r} }

// Query 描述一次单表查询：选取列、附加的距离列、过滤、排序与条数上限。
type Query struct {
	// Distance 作为结果列 "distance" 返回，可为 nil。
	Distance Expr
	Where    Expr
	OrderBy  []Expr
	Limit    int
}
