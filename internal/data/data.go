package data

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"geo-places/internal/conf"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/store/go_cache/v4"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-sql-driver/mysql"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/stdlib"
	gocache "github.com/patrickmn/go-cache"
	"github.com/qustavo/sqlhooks/v2"
	"modernc.org/sqlite"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewSqlDriver,
	NewPlaceRepo,
)

// Data .
type Data struct {
	db     dialect.Driver
	cache  cache.CacheInterface[any]
	conf   *conf.Data
	sqlDrv *entsql.Driver
	log    *log.Helper
}

// SQLDB 返回共享的 *sql.DB（由 ent 驱动管理的连接池）
func (d *Data) SQLDB() *sql.DB {
	if d.sqlDrv != nil {
		return d.sqlDrv.DB()
	}
	return nil
}

// Dialect 返回 ent 方言名：postgres、mysql 或 sqlite3。
func (d *Data) Dialect() string {
	return d.sqlDrv.Dialect()
}

// Cache 返回缓存客户端
func (d *Data) Cache() cache.CacheInterface[any] {
	return d.cache
}

// NewData .
func NewData(
	c *conf.Data,
	drv *entsql.Driver,
	logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data"))
	goCache := gocache.New(5*time.Minute, 10*time.Minute)
	store := go_cache.NewGoCache(goCache)
	data := &Data{
		db:     drv,
		cache:  cache.New[any](store),
		conf:   c,
		sqlDrv: drv,
		log:    helper,
	}
	// 设置 debug 模式
	if c.Database.Debug {
		data.db = dialect.DebugWithContext(drv, func(ctx context.Context, v ...any) {
			helper.WithContext(ctx).Debug(v...)
		})
	}
	cleanup := func() {
		helper.Info("closing the data resources")
		if err := drv.Close(); err != nil {
			helper.Error(err)
		}
	}
	// 启动时自动建表
	if err := Migrate(context.Background(), drv); err != nil {
		drv.Close()
		return nil, nil, err
	}
	return data, cleanup, nil
}

func NewSqlDriver(c *conf.Data, logger log.Logger) (*entsql.Driver, error) {
	hooks := NewHooks(c.Database.SlowThreshold.AsDuration(), logger)
	switch c.Database.Driver {
	case "mysql":
		return newMySqlDriver(c, hooks)
	case "sqlite3", "sqlite":
		return newSqliteDriver(c, hooks)
	case "postgres", "postgresql", "pgx":
		return newPostgresDriver(c, hooks)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", c.Database.Driver)
	}
}

// dsnConnector 让带 hook 的驱动无需 sql.Register 即可打开，每个配置可使用自己的 hook。
type dsnConnector struct {
	dsn string
	drv driver.Driver
}

func (c dsnConnector) Connect(context.Context) (driver.Conn, error) { return c.drv.Open(c.dsn) }

func (c dsnConnector) Driver() driver.Driver { return c.drv }

func openDB(drv driver.Driver, dsn string, hooks *Hooks) *sql.DB {
	db := sql.OpenDB(dsnConnector{dsn: dsn, drv: sqlhooks.Wrap(drv, hooks)})
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(100)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Minute * 10)
	return db
}

func newSqliteDriver(c *conf.Data, hooks *Hooks) (*entsql.Driver, error) {
	if err := registerSpatialFunctions(); err != nil {
		return nil, err
	}
	db := openDB(&sqlite.Driver{}, c.Database.Source, hooks)
	// 单写者，避免 database is locked
	db.SetMaxOpenConns(1)
	return entsql.OpenDB(dialect.SQLite, db), nil
}

func newMySqlDriver(c *conf.Data, hooks *Hooks) (*entsql.Driver, error) {
	cfg, err := mysql.ParseDSN(c.Database.Source)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	dbName := cfg.DBName
	if dbName != "" {
		// 去除数据库名字，先自动创建数据库
		cfg.DBName = ""
		tdb := openDB(&mysql.MySQLDriver{}, cfg.FormatDSN(), hooks)
		defer tdb.Close()
		if _, err := tdb.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4", dbName)); err != nil {
			return nil, fmt.Errorf("create database %s: %w", dbName, err)
		}
	}
	db := openDB(&mysql.MySQLDriver{}, c.Database.Source, hooks)
	return entsql.OpenDB(dialect.MySQL, db), nil
}

func newPostgresDriver(c *conf.Data, hooks *Hooks) (*entsql.Driver, error) {
	db := openDB(&stdlib.Driver{}, c.Database.Source, hooks)
	return entsql.OpenDB(dialect.Postgres, db), nil
}
