package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Game     GameConfig     `mapstructure:"game"`
	Security SecurityConfig `mapstructure:"security"`
	ImageGen ImageGenConfig `mapstructure:"imagegen"`
	Data     DataConfig     `mapstructure:"data"`
}

type ServerConfig struct {
	Port      int      `mapstructure:"port"`
	Debug     bool     `mapstructure:"debug"`
	AdminKey  string   `mapstructure:"admin_key"`
	AdminIPs  []string `mapstructure:"admin_ips"`  // addresses or CIDRs allowed on /api/admin; empty allows all
	StaticDir string   `mapstructure:"static_dir"` // built browser client, served at /
}

type DatabaseConfig struct {
	Mode          string        `mapstructure:"mode"` // sqlite | sqlite_memory | mysql | mongo
	SQLitePath    string        `mapstructure:"sqlite_path"`
	MySQLDSN      string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen  int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle  int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife  time.Duration `mapstructure:"mysql_max_life"`
	MongoURI      string        `mapstructure:"mongo_uri"`
	MongoDatabase string        `mapstructure:"mongo_database"`
	MongoTimeout  time.Duration `mapstructure:"mongo_timeout"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	RedisPrefix     string        `mapstructure:"redis_prefix"`
	RedisPoolSize   int           `mapstructure:"redis_pool_size"`
	RedisTimeout    time.Duration `mapstructure:"redis_timeout"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type GameConfig struct {
	MaxCharacters     int           `mapstructure:"max_characters"`
	StartingGold      int64         `mapstructure:"starting_gold"`
	HealCostPerHP     int64         `mapstructure:"heal_cost_per_hp"`
	LaborUnit         time.Duration `mapstructure:"labor_unit"`
	LaborMaxHours     int           `mapstructure:"labor_max_hours"`
	LaborBaseWage     int64         `mapstructure:"labor_base_wage"`
	TempInventorySize int           `mapstructure:"temp_inventory_size"`
	StaleDungeonAfter time.Duration `mapstructure:"stale_dungeon_after"`
	RankingRefresh    time.Duration `mapstructure:"ranking_refresh"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// ImageGenConfig points at an OpenAI-compatible image generation endpoint.
// An empty APIKey disables portrait generation.
type ImageGenConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Size    string        `mapstructure:"size"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DataConfig struct {
	CatalogPath string `mapstructure:"catalog_path"` // optional JSON overrides for the built-in catalog
}

// Load reads config from the given YAML file path. Every key can be
// overridden from the environment, e.g. DUSK_SERVER_PORT or DUSK_IMAGEGEN_API_KEY.
// A key only picks up its env override if it has a default or appears in
// the file, so every key gets a default below.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("dusk")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.admin_key", "")
	v.SetDefault("server.admin_ips", []string{})
	v.SetDefault("server.static_dir", "")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/dusk.db")
	v.SetDefault("database.mysql_dsn", "")
	v.SetDefault("database.mongo_uri", "mongodb://127.0.0.1:27017")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("database.mongo_database", "duskhollow")
	v.SetDefault("database.mongo_timeout", "10s")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_prefix", "dusk:")
	v.SetDefault("cache.redis_pool_size", 0)
	v.SetDefault("cache.redis_timeout", "5s")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("game.max_characters", 3)
	v.SetDefault("game.starting_gold", 50)
	v.SetDefault("game.heal_cost_per_hp", 1)
	v.SetDefault("game.labor_unit", "1h")
	v.SetDefault("game.labor_max_hours", 8)
	v.SetDefault("game.labor_base_wage", 10)
	v.SetDefault("game.temp_inventory_size", 20)
	v.SetDefault("game.stale_dungeon_after", "24h")
	v.SetDefault("game.ranking_refresh", "5m")
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("imagegen.base_url", "https://api.openai.com")
	v.SetDefault("imagegen.api_key", "")
	v.SetDefault("imagegen.model", "dall-e-3")
	v.SetDefault("imagegen.size", "1024x1024")
	v.SetDefault("imagegen.timeout", "60s")
	v.SetDefault("data.catalog_path", "")
}
