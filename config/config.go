// Package config defines the deployment's configuration surface.
// Loading is deliberately thin — one YAML decode and field validation,
// no env/flag layering — this package exists only so the CLI has
// something to decode --config into.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Queue struct {
		Type string `yaml:"type"` // sqs | memory | file | stdout | cache
		Name string `yaml:"name"`
	} `yaml:"input_queue"`

	Rawr struct {
		Type        string `yaml:"type"`
		Name        string `yaml:"name"`
		GroupByZoom uint32 `yaml:"group_by_zoom"`
	} `yaml:"rawr_queue"`

	OutputFormats []string `yaml:"output_formats"`

	Database struct {
		Dbnames               []string `yaml:"dbnames"`
		NSimultaneousQuerySets int     `yaml:"n_simultaneous_query_sets"`
	} `yaml:"database"`

	Store struct {
		Type              string `yaml:"type"` // directory | s3 | azure | hdfs
		Bucket            string `yaml:"bucket"`
		Path              string `yaml:"path"`
		ReducedRedundancy bool   `yaml:"reduced_redundancy"`
		NSimultaneousS3Storage int `yaml:"n_simultaneous_s3_storage"`
	} `yaml:"store"`

	Cache struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Db   int    `yaml:"db"`
		TOIKey string `yaml:"toi_set_key"`
	} `yaml:"cache"`

	Seed struct {
		ZoomStart  *uint32 `yaml:"zoom_start"`
		ZoomUntil  *uint32 `yaml:"zoom_until"`
		MetroExtractPath string `yaml:"metro_extract_path"`
		TopTilesPath     string `yaml:"top_tiles_path"`
		CustomBBoxPath   string `yaml:"custom_bbox_path"`
	} `yaml:"seed"`

	Intersect struct {
		ExpiredTilesLocation string `yaml:"expired_tiles_location"`
		ZoomFloor            uint32 `yaml:"zoom_floor"`
	} `yaml:"intersect"`

	QueueSizeLogging struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"queue_size_logging"`

	LogConfigPath string `yaml:"log_config_path"`
}

// Load decodes a YAML config file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: open %s", path)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "config: decode %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Database.Dbnames) == 0 {
		return errors.New("config: database.dbnames must be non-empty")
	}
	if len(c.OutputFormats) == 0 {
		return errors.New("config: output_formats must be non-empty")
	}
	switch c.Store.Type {
	case "directory", "s3", "azure", "hdfs":
	default:
		return errors.Errorf("config: unsupported store.type %q", c.Store.Type)
	}
	return nil
}
