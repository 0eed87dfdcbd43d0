package conf

import (
	"errors"
	"io/fs"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	_ "github.com/go-kratos/kratos/v2/encoding/yaml"
	"github.com/joho/godotenv"
)

// EnvPrefix 环境变量前缀，GEOPLACES_DB_SOURCE 对应配置中的 ${DB_SOURCE}。
const EnvPrefix = "GEOPLACES_"

// Load 读取 path（目录或文件）下的配置，并用环境变量解析 ${KEY:default} 占位符。
// 当前目录存在 .env 时先加载，已存在的环境变量不会被覆盖。
func Load(path string) (*Bootstrap, func(), error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, err
	}
	c := config.New(
		config.WithSource(
			file.NewSource(path),
			env.NewSource(EnvPrefix),
		),
	)
	if err := c.Load(); err != nil {
		c.Close()
		return nil, nil, err
	}
	var bc Bootstrap
	if err := c.Scan(&bc); err != nil {
		c.Close()
		return nil, nil, err
	}
	bc.normalize()
	return &bc, func() { c.Close() }, nil
}

// normalize 补齐缺省的配置段，下游可以直接解引用。
func (b *Bootstrap) normalize() {
	if b.Server == nil {
		b.Server = &Server{}
	}
	if b.Server.Http == nil {
		b.Server.Http = &Server_HTTP{}
	}
	if b.Data == nil {
		b.Data = &Data{}
	}
	if b.Data.Database == nil {
		b.Data.Database = &Data_Database{}
	}
	if b.Data.Cache == nil {
		b.Data.Cache = &Data_Cache{}
	}
	if b.Geo == nil {
		b.Geo = &Geo{}
	}
}
