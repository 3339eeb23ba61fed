package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	CRS          CRSConfig          `yaml:"crs" mapstructure:"crs"`
	Grid         GridConfig         `yaml:"grid" mapstructure:"grid"`
	Neighborhood NeighborhoodConfig `yaml:"neighborhood" mapstructure:"neighborhood"`
	Blocks       BlocksConfig       `yaml:"blocks" mapstructure:"blocks"`
	Streets      StreetsConfig      `yaml:"streets" mapstructure:"streets"`
	POI          POIConfig          `yaml:"poi" mapstructure:"poi"`
	Neighbors    NeighborsConfig    `yaml:"neighbors" mapstructure:"neighbors"`
	Tables       TablesConfig       `yaml:"tables" mapstructure:"tables"`
	Pipeline     PipelineConfig     `yaml:"pipeline" mapstructure:"pipeline"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run/feature cache database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CRSConfig holds the projected coordinate system of the input layers as a
// proj4 string. Geometry math assumes a metric planar projection.
type CRSConfig struct {
	Proj string `yaml:"proj" mapstructure:"proj"`
}

// GridConfig configures the hex grid used for neighborhood aggregation.
type GridConfig struct {
	Resolution int   `yaml:"resolution" mapstructure:"resolution"`
	Radii      []int `yaml:"radii" mapstructure:"radii"`
}

// NeighborhoodConfig configures buffer aggregation behavior.
type NeighborhoodConfig struct {
	MinCount    int  `yaml:"min_count" mapstructure:"min_count"`
	ExcludeSelf bool `yaml:"exclude_self" mapstructure:"exclude_self"`
	DropNA      bool `yaml:"dropna" mapstructure:"dropna"`
}

// BlocksConfig configures block delineation.
type BlocksConfig struct {
	SnapTolerance float64 `yaml:"snap_tolerance" mapstructure:"snap_tolerance"`
}

// StreetsConfig configures street proximity features.
type StreetsConfig struct {
	MaxDistance float64 `yaml:"max_distance" mapstructure:"max_distance"`
}

// POIConfig configures POI proximity features.
type POIConfig struct {
	MaxDistance float64  `yaml:"max_distance" mapstructure:"max_distance"`
	Categories  []string `yaml:"categories" mapstructure:"categories"`
}

// NeighborsConfig configures neighbor attribute features.
type NeighborsConfig struct {
	AttrDistance  float64 `yaml:"attr_distance" mapstructure:"attr_distance"`
	ValueDistance float64 `yaml:"value_distance" mapstructure:"value_distance"`
}

// TablesConfig points at optional lookup table overrides.
type TablesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PipelineConfig configures stage execution.
type PipelineConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the HTTP feature server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FEATURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "features.db")
	// ETRS89-extended LAEA Europe, meters.
	v.SetDefault("crs.proj", "+proj=laea +lat_0=52 +lon_0=10 +x_0=4321000 +y_0=3210000 +ellps=GRS80 +units=m +no_defs")
	v.SetDefault("grid.resolution", 10)
	v.SetDefault("grid.radii", []int{1, 3, 5})
	v.SetDefault("neighborhood.min_count", 5)
	v.SetDefault("neighborhood.exclude_self", true)
	v.SetDefault("neighborhood.dropna", false)
	v.SetDefault("blocks.snap_tolerance", 0.5)
	v.SetDefault("streets.max_distance", 100.0)
	v.SetDefault("poi.max_distance", 5000.0)
	v.SetDefault("poi.categories", []string{"food", "education", "health", "transport"})
	v.SetDefault("neighbors.attr_distance", 50.0)
	v.SetDefault("neighbors.value_distance", 1000.0)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Grid.Resolution < 0 || c.Grid.Resolution > 15 {
		return eris.Errorf("config: grid resolution %d out of range 0-15", c.Grid.Resolution)
	}
	for _, k := range c.Grid.Radii {
		if k < 0 {
			return eris.Errorf("config: negative grid radius %d", k)
		}
	}
	if c.Neighborhood.MinCount < 1 {
		return eris.Errorf("config: neighborhood min_count %d must be at least 1", c.Neighborhood.MinCount)
	}
	if c.Blocks.SnapTolerance < 0 {
		return eris.New("config: blocks snap_tolerance must not be negative")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
