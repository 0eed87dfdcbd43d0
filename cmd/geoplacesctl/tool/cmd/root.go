package cmd

import (
	"fmt"
	"os"

	"geo-places/internal/biz"
	"geo-places/internal/conf"
	"geo-places/internal/data"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "geoplacesctl",
	Short: "geo-places 运维工具",
	Long:  `geoplacesctl 提供建表、导入、查询、维护等子命令，读取与 geoplaces 服务相同的配置。`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "conf", "c", "./configs", "config path (directory or file)")
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func newLogger() log.Logger {
	return log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(log.LevelWarn))
}

// openDriver 按配置打开数据库驱动，不执行建表。
func openDriver() (*conf.Bootstrap, *entsql.Driver, func(), error) {
	bc, closeConf, err := conf.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}
	drv, err := data.NewSqlDriver(bc.Data, newLogger())
	if err != nil {
		closeConf()
		return nil, nil, nil, err
	}
	return bc, drv, func() {
		_ = drv.Close()
		closeConf()
	}, nil
}

// openUsecase 组装与服务端一致的 data -> biz 链路。
func openUsecase() (*biz.PlaceUsecase, func(), error) {
	bc, closeConf, err := conf.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger()
	drv, err := data.NewSqlDriver(bc.Data, logger)
	if err != nil {
		closeConf()
		return nil, nil, err
	}
	d, cleanup, err := data.NewData(bc.Data, drv, logger)
	if err != nil {
		closeConf()
		return nil, nil, err
	}
	uc := biz.NewPlaceUsecase(data.NewPlaceRepo(d, logger), bc.Geo, logger)
	return uc, func() {
		cleanup()
		closeConf()
	}, nil
}
