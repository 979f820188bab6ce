package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"fxseries/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const DefaultFile = "config.yaml"

type RateAPI struct {
	BaseURL          string `mapstructure:"base_url" validate:"required,url"`
	DomesticCurrency string `mapstructure:"domestic_currency" validate:"required,len=3,alpha,uppercase"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds" validate:"gt=0"`
	LookbackDays     int    `mapstructure:"lookback_days" validate:"gt=0,lte=92"`
	FetchWorkers     int    `mapstructure:"fetch_workers" validate:"gte=1"`
}

func (c RateAPI) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Derived is a cross-rate column: Numerator ÷ Denominator.
type Derived struct {
	Name        string `mapstructure:"name" validate:"required"`
	Numerator   string `mapstructure:"numerator" validate:"required"`
	Denominator string `mapstructure:"denominator" validate:"required"`
}

func (d Derived) Column() domain.DerivedColumn {
	return domain.DerivedColumn{Name: d.Name, Numerator: d.Numerator, Denominator: d.Denominator}
}

const (
	BackendCSV      = "csv"
	BackendPostgres = "postgres"
)

type Storage struct {
	Backend string `mapstructure:"backend" validate:"oneof=csv postgres"`
	// Location is a file path for the csv backend and a dataset name for postgres.
	Location       string `mapstructure:"location" validate:"required"`
	ExportLocation string `mapstructure:"export_location" validate:"required"`
}

type Scheduler struct {
	TimeOfDay string `mapstructure:"time_of_day" validate:"required"`
	Timezone  string `mapstructure:"timezone" validate:"required"`
}

// Clock parses TimeOfDay ("HH:MM", 24h).
func (s Scheduler) Clock() (hour, minute uint, err error) {
	t, err := time.Parse("15:04", s.TimeOfDay)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid scheduler.time_of_day %q: %w", s.TimeOfDay, err)
	}
	return uint(t.Hour()), uint(t.Minute()), nil
}

func (s Scheduler) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler.timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

type Cache struct {
	MaxItems   int64 `mapstructure:"max_items" validate:"gte=0"`
	TTLSeconds int   `mapstructure:"ttl_seconds" validate:"gte=0"`
}

func (c Cache) Enabled() bool { return c.MaxItems > 0 }

func (c Cache) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }

type HTTPServer struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port" validate:"required,numeric"`
}

type DbServer struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"pass"`
	Name     string `mapstructure:"name"`
	MaxConns int32  `mapstructure:"max_conns" validate:"gte=0"`
}

func (config *DbServer) GetConnectionStr() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		config.User, config.Pass, config.Host, config.Port, config.Name,
	)
}

type Logging struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
	File   string `mapstructure:"file"`
}

type AppConfig struct {
	RateAPI    RateAPI    `mapstructure:"rate_api"`
	Pairs      []string   `mapstructure:"pairs" validate:"min=1"`
	Derived    []Derived  `mapstructure:"derived" validate:"dive"`
	Storage    Storage    `mapstructure:"storage"`
	Scheduler  Scheduler  `mapstructure:"scheduler"`
	Cache      Cache      `mapstructure:"cache"`
	HTTPServer HTTPServer `mapstructure:"http_server"`
	DbServer   DbServer   `mapstructure:"db_server"`
	Logging    Logging    `mapstructure:"logging"`
}

// ParsedPairs returns the configured pairs in configuration order.
func (c *AppConfig) ParsedPairs() ([]domain.Pair, error) {
	pairs := make([]domain.Pair, 0, len(c.Pairs))
	seen := make(map[domain.Pair]struct{}, len(c.Pairs))
	for _, raw := range c.Pairs {
		p, err := domain.ParsePair(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("%w: pair %s configured twice", domain.ErrValidation, p)
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func (c *AppConfig) DerivedColumns() []domain.DerivedColumn {
	out := make([]domain.DerivedColumn, len(c.Derived))
	for i, d := range c.Derived {
		out[i] = d.Column()
	}
	return out
}

// Validate runs the struct rules and the checks they cannot express.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	pairs, err := c.ParsedPairs()
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if p.Quote != c.RateAPI.DomesticCurrency {
			return fmt.Errorf("%w: pair %s is not quoted in %s", domain.ErrValidation, p, c.RateAPI.DomesticCurrency)
		}
	}
	if _, _, err = c.Scheduler.Clock(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if _, err = c.Scheduler.Location(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rate_api.base_url", "https://api.nbp.pl/api/exchangerates/rates/A")
	v.SetDefault("rate_api.domestic_currency", "PLN")
	v.SetDefault("rate_api.timeout_seconds", 10)
	v.SetDefault("rate_api.lookback_days", 90)
	v.SetDefault("rate_api.fetch_workers", 1)

	v.SetDefault("pairs", []string{"EUR/PLN", "USD/PLN", "CHF/PLN"})
	v.SetDefault("derived", []map[string]any{
		{"name": "EUR/USD", "numerator": "EUR/PLN", "denominator": "USD/PLN"},
		{"name": "CHF/USD", "numerator": "CHF/PLN", "denominator": "USD/PLN"},
	})

	v.SetDefault("storage.backend", BackendCSV)
	v.SetDefault("storage.location", "all_currency_data.csv")
	v.SetDefault("storage.export_location", "selected_currency_data.csv")

	v.SetDefault("scheduler.time_of_day", "12:00")
	v.SetDefault("scheduler.timezone", "Europe/Warsaw")

	v.SetDefault("cache.max_items", 0)
	v.SetDefault("cache.ttl_seconds", 600)

	v.SetDefault("http_server.enabled", true)
	v.SetDefault("http_server.port", "8080")

	v.SetDefault("db_server.max_conns", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
}

func bindEnv(v *viper.Viper) {
	// rate api env vars
	_ = v.BindEnv("rate_api.base_url", "RATE_API_BASE_URL")
	_ = v.BindEnv("rate_api.timeout_seconds", "RATE_API_TIMEOUT_SECONDS")
	_ = v.BindEnv("rate_api.lookback_days", "RATE_API_LOOKBACK_DAYS")
	_ = v.BindEnv("rate_api.fetch_workers", "RATE_API_FETCH_WORKERS")
	_ = v.BindEnv("pairs", "FX_PAIRS")

	// storage env vars
	_ = v.BindEnv("storage.backend", "STORAGE_BACKEND")
	_ = v.BindEnv("storage.location", "STORAGE_LOCATION")
	_ = v.BindEnv("storage.export_location", "STORAGE_EXPORT_LOCATION")

	// scheduler env vars
	_ = v.BindEnv("scheduler.time_of_day", "SCHEDULER_TIME_OF_DAY")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")

	// http server env vars
	_ = v.BindEnv("http_server.port", "HTTP_PORT")

	// db server env vars
	_ = v.BindEnv("db_server.host", "DB_HOST")
	_ = v.BindEnv("db_server.port", "DB_PORT")
	_ = v.BindEnv("db_server.user", "DB_USER")
	_ = v.BindEnv("db_server.pass", "DB_PASS")
	_ = v.BindEnv("db_server.name", "DB_NAME")
	_ = v.BindEnv("db_server.max_conns", "DB_MAX_CONNS")

	// logging env vars
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.file", "LOG_FILE")
}

// Init loads configuration from path (DefaultFile when empty), the optional .env file and
// the environment. A missing DefaultFile is not an error; a missing explicit path is.
func Init(path string) (*AppConfig, error) {
	var cfg AppConfig

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, statErr := os.Stat(path); statErr == nil || explicit {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
