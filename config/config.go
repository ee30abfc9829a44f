// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the root of config.yaml.
type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Models struct {
		Dir       string `yaml:"dir"`
		CacheSize int    `yaml:"cache_size"`
		Watch     bool   `yaml:"watch"`
	} `yaml:"models"`
	Data struct {
		Dir      string `yaml:"dir"`
		Encoding string `yaml:"encoding"`
	} `yaml:"data"`
	Datasets []Dataset `yaml:"datasets"`
}

// Dataset describes one selectable demo scenario.
type Dataset struct {
	Name          string   `yaml:"name"`
	Model         string   `yaml:"model"`
	SampleData    string   `yaml:"sample_data"`
	InputColumns  []string `yaml:"input_columns"`
	SpeciesLabels []string `yaml:"species_labels"`
}

// Default returns the built-in configuration with the three shipped datasets.
func Default() *Config {
	var config Config
	config.Http.Port = 8080
	config.Http.Timeout = 30 * time.Second
	config.Http.AllowedOrigins = []string{"*"}
	config.Log.Level = "info"
	config.Log.MaxSizeMB = 50
	config.Log.MaxBackups = 3
	config.Log.MaxAgeDays = 7
	config.Models.Dir = "models"
	config.Models.CacheSize = 8
	config.Models.Watch = true
	config.Data.Dir = "data"
	config.Data.Encoding = "utf-8"
	config.Datasets = DefaultDatasets()
	return &config
}

// DefaultDatasets returns the fish, fruit and pumpkin profiles.
func DefaultDatasets() []Dataset {
	return []Dataset{
		{
			Name:         "Fish Dataset",
			Model:        "svm_fish_model.json",
			SampleData:   "fish_data.csv",
			InputColumns: []string{"length", "weight", "w_l_ratio"},
			SpeciesLabels: []string{
				"Anabas testudineus", "Coilia dussumieri", "Otolithoides biauritus",
				"Otolithoides pama", "Pethia conchonius", "Polynemus paradiseus",
				"Puntius lateristriga", "Setipinna taty", "Sillaginopsis panijus",
			},
		},
		{
			Name:          "Fruit Dataset",
			Model:         "svm_fruit_model.libsvm",
			SampleData:    "fruit.xlsx",
			InputColumns:  []string{"diameter", "weight", "red", "green", "blue"},
			SpeciesLabels: []string{"grapefruit", "orange"},
		},
		{
			Name:       "Pumpkin Dataset",
			Model:      "svm_pumpkin_model.json",
			SampleData: "Pumpkin_Seeds_Dataset.xlsx",
			InputColumns: []string{
				"Area", "Perimeter", "Major_Axis_Length", "Minor_Axis_Length",
				"Convex_Area", "Equiv_Diameter", "Eccentricity", "Solidity",
				"Extent", "Roundness", "Aspect_Ration", "Compactness",
			},
			SpeciesLabels: []string{"Ürgüp Sivrisi", "Çerçevelik"},
		},
	}
}

// Load reads path on top of Default. A missing datasets section keeps the
// built-in datasets.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	config.Datasets = nil
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(config.Datasets) == 0 {
		config.Datasets = DefaultDatasets()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// Resolve finds the config file the same way for every command: the given
// path, then the same name one directory up. It returns "" when neither
// exists.
func Resolve(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	if filepath.IsAbs(path) {
		return ""
	}
	parent := filepath.Join("..", path)
	if _, err := os.Stat(parent); err == nil {
		return parent
	}
	return ""
}

// Validate rejects an out-of-range port, a negative cache size and
// incomplete or duplicate datasets.
func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Models.CacheSize < 0 {
		return errors.New("models.cache_size must not be negative")
	}
	if len(c.Datasets) == 0 {
		return errors.New("no datasets configured")
	}
	seen := make(map[string]bool, len(c.Datasets))
	for i, ds := range c.Datasets {
		if ds.Name == "" {
			return fmt.Errorf("datasets[%d]: name is required", i)
		}
		if seen[ds.Name] {
			return fmt.Errorf("datasets[%d]: duplicate name %q", i, ds.Name)
		}
		seen[ds.Name] = true
		if ds.Model == "" {
			return fmt.Errorf("dataset %q: model is required", ds.Name)
		}
		if len(ds.InputColumns) == 0 {
			return fmt.Errorf("dataset %q: input_columns is required", ds.Name)
		}
	}
	return nil
}

// ModelPath resolves a dataset's artifact against models.dir.
func (c *Config) ModelPath(ds Dataset) string {
	return resolve(c.Models.Dir, ds.Model)
}

// SampleDataPath resolves a dataset's sample file against data.dir.
func (c *Config) SampleDataPath(ds Dataset) string {
	if ds.SampleData == "" {
		return ""
	}
	return resolve(c.Data.Dir, ds.SampleData)
}

// Rebase makes relative directories relative to dir, used when the config
// file was found outside the working directory.
func (c *Config) Rebase(dir string) {
	if dir == "" || dir == "." {
		return
	}
	if c.Models.Dir != "" && !filepath.IsAbs(c.Models.Dir) {
		c.Models.Dir = filepath.Join(dir, c.Models.Dir)
	}
	if c.Data.Dir != "" && !filepath.IsAbs(c.Data.Dir) {
		c.Data.Dir = filepath.Join(dir, c.Data.Dir)
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(dir, c.Log.File)
	}
}

func resolve(dir, name string) string {
	if dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
