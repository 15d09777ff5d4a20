package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/reddit-digest/app/digest"
)

// File is the parsed sources configuration: which subreddits to aggregate,
// digest-wide settings, the optional reference data block and upload options.
type File struct {
	Settings  Settings            `yaml:"settings"`
	Sources   []digest.SourceSpec `yaml:"sources"`
	Reference ReferenceConfig     `yaml:"reference"`
	Upload    UploadConfig        `yaml:"upload"`
}

type Settings struct {
	CommentAgeThresholdDays int `yaml:"comment_age_threshold_days"` // 0 disables the filter
	MaxComments             int `yaml:"max_comments"`               // rendered per post
	Timeout                 int `yaml:"timeout"`                    // seconds, per HTTP request
}

type ReferenceConfig struct {
	Stocks      StocksConfig      `yaml:"stocks"`
	Commodities CommoditiesConfig `yaml:"commodities"`
	FX          FXConfig          `yaml:"fx"`
	Weather     WeatherConfig     `yaml:"weather"`
}

type StocksConfig struct {
	Enabled bool     `yaml:"enabled"`
	Symbols []string `yaml:"symbols"`
	APIKey  string   `yaml:"alpha_vantage_api_key"`
}

type CommoditiesConfig struct {
	Enabled bool     `yaml:"enabled"`
	Items   []string `yaml:"items"`
	Token   string   `yaml:"goldapi_token"`
}

type FXConfig struct {
	Enabled bool     `yaml:"enabled"`
	Pairs   []string `yaml:"pairs"` // e.g. "EUR/USD"
	APIKey  string   `yaml:"alpha_vantage_api_key"`
}

type WeatherConfig struct {
	Enabled bool    `yaml:"enabled"`
	APIKey  string  `yaml:"api_key"`
	Lat     float64 `yaml:"lat"`
	Lon     float64 `yaml:"lon"`
	Units   string  `yaml:"units"` // "metric" or "imperial"
}

type UploadConfig struct {
	Enabled         bool   `yaml:"enabled"`
	FolderName      string `yaml:"folder_name"`
	CredentialsFile string `yaml:"credentials_file"`
}

var validModes = map[string]bool{
	"new": true,
	"top": true,
	"hot": true,
}

// Load reads and validates the sources file, applying defaults for omitted
// fields.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	file, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return file, nil
}

// Parse decodes, defaults and validates a sources configuration.
func Parse(data []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&file)

	if err := validate(&file); err != nil {
		return nil, err
	}

	return &file, nil
}

func applyDefaults(file *File) {
	if file.Settings.MaxComments == 0 {
		file.Settings.MaxComments = 5
	}
	if file.Settings.Timeout == 0 {
		file.Settings.Timeout = 30
	}
	if file.Reference.Weather.Units == "" {
		file.Reference.Weather.Units = "metric"
	}
	for i := range file.Sources {
		if file.Sources[i].Mode == "" {
			file.Sources[i].Mode = "new"
		}
		if file.Sources[i].WindowHours == 0 {
			file.Sources[i].WindowHours = 24
		}
	}
}

func validate(file *File) error {
	if file.Settings.CommentAgeThresholdDays < 0 {
		return fmt.Errorf("comment_age_threshold_days must be non-negative")
	}
	if file.Settings.MaxComments < 0 {
		return fmt.Errorf("max_comments must be non-negative")
	}

	for i, source := range file.Sources {
		if source.Name == "" {
			return fmt.Errorf("source at index %d: name is required", i)
		}
		if !validModes[source.Mode] {
			return fmt.Errorf("source %q: invalid mode %q", source.Name, source.Mode)
		}
		if source.WindowHours <= 0 {
			return fmt.Errorf("source %q: hours must be positive", source.Name)
		}
		if source.TopN < 0 {
			return fmt.Errorf("source %q: top_n must be non-negative", source.Name)
		}
	}

	if file.Upload.Enabled && file.Upload.FolderName == "" {
		return fmt.Errorf("upload folder_name is required when upload is enabled")
	}

	return nil
}
