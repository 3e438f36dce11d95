package datamodels

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"quantsim/src/utils/errors"
)

const (
	DefaultInitialCapital  = 10000.0
	DefaultShortWindow     = 5
	DefaultLongWindow      = 20
	DefaultInitialTicks    = 100
	DefaultPriceVolatility = 0.1
	DefaultStartingPrice   = 100.0
	DefaultStartTime       = "2024-01-01T00:00:00Z"
	DefaultTickInterval    = time.Hour
	DefaultStepInterval    = time.Second
	DefaultSignalType      = "crossover"

	DefaultServerPort     = ":8080"
	DefaultHealthEndpoint = "/health"
	DefaultRecentRecords  = 200
)

type QuantsimConfig struct {
	Simulation    SimulationConfig    `mapstructure:"simulation"`
	MetricsWriter MetricsWriterConfig `mapstructure:"metrics_writer"`
	Server        ServerConfig        `mapstructure:"server"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Storage       StorageConfig       `mapstructure:"storage"`
}

// SimulationConfig holds the knobs of the price walk, the crossover and the portfolio.
type SimulationConfig struct {
	InitialCapital  float64       `mapstructure:"initial_capital"`
	ShortWindow     int           `mapstructure:"short_window"`
	LongWindow      int           `mapstructure:"long_window"`
	InitialTicks    int           `mapstructure:"initial_ticks"`
	PriceVolatility float64       `mapstructure:"price_volatility"`
	StartingPrice   float64       `mapstructure:"starting_price"`
	Seed            int64         `mapstructure:"seed"`
	StartTime       string        `mapstructure:"start_time"`
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	StepInterval    time.Duration `mapstructure:"step_interval"`
	MaxSteps        int           `mapstructure:"max_steps"`
	SignalType      string        `mapstructure:"signal_type"`
	// PriceFile replays recorded prices from a csv file instead of the random walk.
	PriceFile string `mapstructure:"price_file"`
}

func NewDefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		InitialCapital:  DefaultInitialCapital,
		ShortWindow:     DefaultShortWindow,
		LongWindow:      DefaultLongWindow,
		InitialTicks:    DefaultInitialTicks,
		PriceVolatility: DefaultPriceVolatility,
		StartingPrice:   DefaultStartingPrice,
		StartTime:       DefaultStartTime,
		TickInterval:    DefaultTickInterval,
		StepInterval:    DefaultStepInterval,
		SignalType:      DefaultSignalType,
	}
}

func (c *SimulationConfig) Validate() error {
	if c.InitialCapital <= 0 {
		return errors.New("initial_capital must be greater than 0")
	}
	if c.ShortWindow <= 0 || c.LongWindow <= 0 {
		return errors.New("short_window and long_window must be greater than 0")
	}
	if c.ShortWindow >= c.LongWindow {
		return errors.Newf("short_window (%d) must be less than long_window (%d)", c.ShortWindow, c.LongWindow)
	}
	if c.InitialTicks < 1 {
		return errors.New("initial_ticks must be at least 1")
	}
	if c.PriceVolatility < 0 {
		return errors.New("price_volatility must not be negative")
	}
	if c.StartingPrice <= 0 {
		return errors.New("starting_price must be greater than 0")
	}
	if c.TickInterval <= 0 {
		return errors.New("tick_interval must be greater than 0")
	}
	if c.StepInterval < 0 {
		return errors.New("step_interval must not be negative")
	}
	if c.MaxSteps < 0 {
		return errors.New("max_steps must not be negative")
	}
	if _, err := c.ParseStartTime(); err != nil {
		return err
	}
	return nil
}

func (c *SimulationConfig) ParseStartTime() (time.Time, error) {
	if c.StartTime == "" {
		return time.Parse(time.RFC3339, DefaultStartTime)
	}
	startTime, err := time.Parse(time.RFC3339, c.StartTime)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse start_time %q", c.StartTime)
	}
	return startTime, nil
}

type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Database string `mapstructure:"database"`
	Host     string `mapstructure:"host"`
	Password string `mapstructure:"password"`
	Port     int    `mapstructure:"port"`
	SSL      struct {
		CA   string `mapstructure:"ca"`
		Cert string `mapstructure:"cert"`
		Key  string `mapstructure:"key"`
		Mode string `mapstructure:"mode"`
	} `mapstructure:"ssl"`
	URI  string `mapstructure:"uri"`
	User string `mapstructure:"user"`
}

type ServerConfig struct {
	Port           string `mapstructure:"port"`
	HealthEndpoint string `mapstructure:"health_endpoint"`
	RecentRecords  int    `mapstructure:"recent_records"`
}

type StorageConfig struct {
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`
	Prefix string `mapstructure:"prefix"`
}

type MetricsWriterConfig struct {
	WsWriter   bool   `mapstructure:"ws_writer"`
	FileWriter bool   `mapstructure:"file_writer"`
	FileFormat string `mapstructure:"file_format"`
	FilePath   string `mapstructure:"file_path"`
	DbWriter   bool   `mapstructure:"db_writer"`
	PlotPath   string `mapstructure:"plot_path"`
}

// NewQuantsimConfigFromFile reads a standalone run file. Relative output paths are resolved against baseDir.
func NewQuantsimConfigFromFile(thisFilepath string, baseDir string) (*QuantsimConfig, error) {
	v := viper.New()
	SetConfigDefaults(v)
	v.SetConfigFile(thisFilepath)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", thisFilepath)
	}

	var quantsimConfig QuantsimConfig
	if err := v.Unmarshal(&quantsimConfig); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if baseDir != "" {
		if quantsimConfig.MetricsWriter.FilePath != "" && !filepath.IsAbs(quantsimConfig.MetricsWriter.FilePath) {
			quantsimConfig.MetricsWriter.FilePath = filepath.Join(baseDir, quantsimConfig.MetricsWriter.FilePath)
		}
		if quantsimConfig.MetricsWriter.PlotPath != "" && !filepath.IsAbs(quantsimConfig.MetricsWriter.PlotPath) {
			quantsimConfig.MetricsWriter.PlotPath = filepath.Join(baseDir, quantsimConfig.MetricsWriter.PlotPath)
		}
		if quantsimConfig.Simulation.PriceFile != "" && !filepath.IsAbs(quantsimConfig.Simulation.PriceFile) {
			quantsimConfig.Simulation.PriceFile = filepath.Join(baseDir, quantsimConfig.Simulation.PriceFile)
		}
	}
	slog.Debug("Loaded run config", "path", thisFilepath, "simulation", quantsimConfig.Simulation)

	return &quantsimConfig, nil
}

// SetConfigDefaults registers every default on v so partial files and env-only setups work.
func SetConfigDefaults(v *viper.Viper) {
	defaults := NewDefaultSimulationConfig()
	v.SetDefault("simulation.initial_capital", defaults.InitialCapital)
	v.SetDefault("simulation.short_window", defaults.ShortWindow)
	v.SetDefault("simulation.long_window", defaults.LongWindow)
	v.SetDefault("simulation.initial_ticks", defaults.InitialTicks)
	v.SetDefault("simulation.price_volatility", defaults.PriceVolatility)
	v.SetDefault("simulation.starting_price", defaults.StartingPrice)
	v.SetDefault("simulation.seed", defaults.Seed)
	v.SetDefault("simulation.start_time", defaults.StartTime)
	v.SetDefault("simulation.tick_interval", defaults.TickInterval)
	v.SetDefault("simulation.step_interval", defaults.StepInterval)
	v.SetDefault("simulation.max_steps", defaults.MaxSteps)
	v.SetDefault("simulation.signal_type", defaults.SignalType)
	v.SetDefault("simulation.price_file", defaults.PriceFile)

	v.SetDefault("metrics_writer.file_format", "csv")
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.health_endpoint", DefaultHealthEndpoint)
	v.SetDefault("server.recent_records", DefaultRecentRecords)
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.ssl.mode", "disable")
}
