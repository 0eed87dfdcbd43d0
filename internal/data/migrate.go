package data

import (
	"context"
	"fmt"

	"geo-places/internal/biz"
	"geo-places/internal/geo"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// columnTypes 按方言给出 place 表的列类型。
func columnTypes(d string) [][2]string {
	srid := fmt.Sprint(geo.SRID)
	switch d {
	case dialect.Postgres:
		return [][2]string{
			{biz.FieldID, "BIGSERIAL PRIMARY KEY"},
			{biz.FieldName, "TEXT NOT NULL"},
			{biz.FieldLatitude, "DOUBLE PRECISION NOT NULL"},
			{biz.FieldLongitude, "DOUBLE PRECISION NOT NULL"},
			{biz.FieldCenter, "geography(Point, " + srid + ") NOT NULL"},
			{biz.FieldPolygon, "geography(Polygon, " + srid + ")"},
			{biz.FieldPopularity, "BIGINT NOT NULL DEFAULT 0"},
		}
	case dialect.MySQL:
		return [][2]string{
			{biz.FieldID, "BIGINT AUTO_INCREMENT PRIMARY KEY"},
			{biz.FieldName, "VARCHAR(255) NOT NULL"},
			{biz.FieldLatitude, "DOUBLE NOT NULL"},
			{biz.FieldLongitude, "DOUBLE NOT NULL"},
			{biz.FieldCenter, "POINT NOT NULL SRID " + srid},
			{biz.FieldPolygon, "POLYGON NULL SRID " + srid},
			{biz.FieldPopularity, "BIGINT NOT NULL DEFAULT 0"},
		}
	default:
		// SQLite 以 GeoJSON 文本保存几何
		return [][2]string{
			{biz.FieldID, "INTEGER PRIMARY KEY AUTOINCREMENT"},
			{biz.FieldName, "TEXT NOT NULL"},
			{biz.FieldLatitude, "REAL NOT NULL"},
			{biz.FieldLongitude, "REAL NOT NULL"},
			{biz.FieldCenter, "TEXT NOT NULL"},
			{biz.FieldPolygon, "TEXT"},
			{biz.FieldPopularity, "INTEGER NOT NULL DEFAULT 0"},
		}
	}
}

// MigrationStatements 返回建表语句，可重复执行。
func MigrationStatements(d string) []string {
	b := entsql.Dialect(d)
	var stmts []string
	if d == dialect.Postgres {
		stmts = append(stmts, "CREATE EXTENSION IF NOT EXISTS postgis")
	}
	stmts = append(stmts, b.String(func(b *entsql.Builder) {
		b.WriteString("CREATE TABLE IF NOT EXISTS ").Ident(biz.PlaceTable).Pad().Wrap(func(b *entsql.Builder) {
			for i, c := range columnTypes(d) {
				if i > 0 {
					b.Comma()
				}
				b.Join(entsql.Dialect(d).Column(c[0]).Type(c[1]))
			}
			if d == dialect.MySQL {
				b.Comma().WriteString("SPATIAL INDEX ").Ident("place_center_idx").Pad().Wrap(func(b *entsql.Builder) {
					b.Ident(biz.FieldCenter)
				})
			}
		})
	}))
	if d == dialect.Postgres {
		for _, col := range []string{biz.FieldCenter, biz.FieldPolygon} {
			stmts = append(stmts, b.String(func(b *entsql.Builder) {
				b.WriteString("CREATE INDEX IF NOT EXISTS ").Ident("place_"+col+"_idx").
					WriteString(" ON ").Ident(biz.PlaceTable).
					WriteString(" USING GIST ").Wrap(func(b *entsql.Builder) { b.Ident(col) })
			}))
		}
	}
	return stmts
}

// Migrate 创建 place 表及空间索引。
func Migrate(ctx context.Context, drv dialect.Driver) error {
	for _, stmt := range MigrationStatements(drv.Dialect()) {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("migrate: %s: %w", stmt, err)
		}
	}
	return nil
}

// ReindexStatements 重建 place 表索引并刷新统计信息。
func ReindexStatements(d string) []string {
	b := entsql.Dialect(d)
	table := b.String(func(b *entsql.Builder) { b.Ident(biz.PlaceTable) })
	switch d {
	case dialect.Postgres:
		return []string{"REINDEX TABLE " + table, "ANALYZE " + table}
	case dialect.MySQL:
		return []string{"ANALYZE TABLE " + table}
	default:
		return []string{"REINDEX " + table, "ANALYZE " + table}
	}
}

// Reindex 执行 ReindexStatements。
func Reindex(ctx context.Context, drv dialect.Driver) error {
	for _, stmt := range ReindexStatements(drv.Dialect()) {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("reindex: %s: %w", stmt, err)
		}
	}
	return nil
}
