// Package config loads the service configuration from a yaml file,
// with environment expansion so feed URLs and paths can come from the
// environment or a .env file.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Feeds struct {
	VehiclePositionsURL string `yaml:"vehicle_positions_url" validate:"required,url"`
	TripUpdatesURL      string `yaml:"trip_updates_url" validate:"required,url"`
	AlertsURL           string `yaml:"alerts_url" validate:"omitempty,url"`
}

// Duration lets yaml carry `10s` style values.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "parsing duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Poll struct {
	Interval         Duration `yaml:"interval" validate:"gt=0"`
	AdvisoryInterval Duration `yaml:"advisory_interval" validate:"gt=0"`
	FetchTimeout     Duration `yaml:"fetch_timeout" validate:"gt=0"`
	FeedMaxSize      int64    `yaml:"feed_max_size" validate:"gt=0"`
}

type Static struct {
	StopsPath         string `yaml:"stops_path" validate:"required"`
	DisabledLinesPath string `yaml:"disabled_lines_path" validate:"required"`
}

type Server struct {
	ListenAddr string `yaml:"listen_addr" validate:"required"`
}

type Config struct {
	Feeds  Feeds  `yaml:"feeds"`
	Poll   Poll   `yaml:"poll"`
	Static Static `yaml:"static"`
	Server Server `yaml:"server"`
}

// Default returns a config with every tunable at its default. Feed
// URLs and file paths have no defaults and must come from the file.
func Default() Config {
	return Config{
		Poll: Poll{
			Interval:         Duration(10 * time.Second),
			AdvisoryInterval: Duration(60 * time.Second),
			FetchTimeout:     Duration(10 * time.Second),
			FeedMaxSize:      16 << 20,
		},
		Server: Server{
			ListenAddr: ":8080",
		},
	}
}

// Load reads, expands and validates the configuration at path. A .env
// file in the working directory is folded into the environment first,
// so `${MPK_VEHICLES_URL}` style references resolve.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading config")
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parsing config")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, errors.Wrap(err, "validating config")
	}
	return cfg, nil
}
