package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/Spok95/pos-core/internal/domain/cash"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Storage struct {
		Driver string // postgres | memory
	} `mapstructure:"storage"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Business struct {
		OpeningTime string `mapstructure:"opening_time"`
		SalePrefix  string `mapstructure:"sale_prefix"`
	} `mapstructure:"business"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "Local")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("business.opening_time", cash.DefaultOpeningTime.String())
	v.SetDefault("business.sale_prefix", "POS")
	// registered so APP_* env vars reach keys absent from the file
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_chat_id", 0)
}

// Load reads the YAML file at path. A .env file next to the process is
// loaded first; APP_SECTION_KEY variables override file values.
func Load(path string) (Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	defaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if _, err := c.OpeningTime(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Telegram.Token != "" && c.Telegram.AdminChatID == 0 {
		return errors.New("telegram.admin_chat_id is required when telegram.token is set")
	}
	return nil
}

func (c Config) OpeningTime() (cash.OpeningTime, error) {
	return cash.ParseOpeningTime(c.Business.OpeningTime)
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("app.timezone: %w", err)
	}
	return loc, nil
}
