package ioc

import (
	"fmt"
	"sync"

	"github.com/JrMarcco/easy-kit/xsync"
	"github.com/JrMarcco/jreminder/internal/pkg/sharding"
	"github.com/JrMarcco/jreminder/internal/repository/dao"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DBFxOpt = fx.Provide(
	InitDB,
	InitShardingDB,
	fx.Annotate(
		InitLifecycleEventSharding,
		fx.As(new(sharding.Strategy)),
	),
)

var DBFxInvoke = fx.Invoke(
	MigrateTables,
)

type dbConfig struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
	Sharding    struct {
		DBPrefix      string            `mapstructure:"db_prefix"`
		TablePrefix   string            `mapstructure:"table_prefix"`
		DBSharding    uint64            `mapstructure:"db_sharding"`
		TableSharding uint64            `mapstructure:"table_sharding"`
		DSN           map[string]string `mapstructure:"dsn"`
	} `mapstructure:"sharding"`
}

func loadDBConfig() *dbConfig {
	cfg := &dbConfig{}
	if err := viper.UnmarshalKey("db", cfg); err != nil {
		panic(err)
	}
	return cfg
}

// dialectorOf 根据驱动名选择方言，默认 mysql
func dialectorOf(driver, dsn string) gorm.Dialector {
	switch driver {
	case "postgres":
		return postgres.Open(dsn)
	case "sqlite":
		return sqlite.Open(dsn)
	case "", "mysql":
		return mysql.Open(dsn)
	default:
		panic(fmt.Sprintf("[jreminder] unsupported db driver: %s", driver))
	}
}

// InitDB 患者、通知记录、升级工单所在的主库
func InitDB() *gorm.DB {
	cfg := loadDBConfig()
	db, err := gorm.Open(dialectorOf(cfg.Driver, cfg.DSN), &gorm.Config{})
	if err != nil {
		panic(err)
	}
	return db
}

var (
	mu   sync.Mutex
	once sync.Once
)

// InitShardingDB 生命周期事件分库，key 为分库名
func InitShardingDB() *xsync.Map[string, *gorm.DB] {
	cfg := loadDBConfig()

	mu.Lock()
	defer mu.Unlock()

	var dbs xsync.Map[string, *gorm.DB]
	once.Do(func() {
		for key, dsn := range cfg.Sharding.DSN {
			db, err := gorm.Open(dialectorOf(cfg.Driver, dsn), &gorm.Config{})
			if err != nil {
				panic(err)
			}
			dbs.Store(key, db)
		}
	})
	return &dbs
}

func InitLifecycleEventSharding() sharding.HashStrategy {
	cfg := loadDBConfig()
	return sharding.NewHashStrategy(
		cfg.Sharding.DBPrefix,
		cfg.Sharding.TablePrefix,
		cfg.Sharding.DBSharding,
		cfg.Sharding.TableSharding,
	)
}

// MigrateTables 本地开发时自动建表
func MigrateTables(db *gorm.DB, eventDAO *dao.LifecycleEventShardingDAO) {
	if !loadDBConfig().AutoMigrate {
		return
	}
	if err := dao.InitTables(db); err != nil {
		panic(err)
	}
	if err := eventDAO.AutoMigrate(); err != nil {
		panic(err)
	}
}
