package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	RevisionsConfig struct {
		Mode    RevisionsMode      `yaml:"mode" validate:"gte=0"`
		Deleted DeletedContentMode `yaml:"deleted" validate:"gte=0"`
	}

	CommentsConfig struct {
		Render       bool                  `yaml:"render"`
		Unterminated UnterminatedRangeMode `yaml:"unterminated" validate:"gte=0"`
	}

	AnnotationsConfig struct {
		Render bool   `yaml:"render"`
		Class  string `yaml:"class" validate:"required"`
	}

	TabsConfig struct {
		// Interval of the implicit tab stop ladder, twips.
		DefaultInterval int `yaml:"default_interval" validate:"min=1"`
		// Width used when no stop exists beyond the cursor, twips.
		FallbackWidth int `yaml:"fallback_width" validate:"min=0"`
	}

	FontsConfig struct {
		DefaultFamily string `yaml:"default_family" validate:"required"`
		// Additional family -> average glyph width factor entries for the
		// text width oracle, on top of the built-in table. Width factor is
		// twips per half-point of font size per character.
		Metrics map[string]float64 `yaml:"metrics"`
	}

	ImagesConfig struct {
		Embed bool `yaml:"embed"`
	}

	DocumentConfig struct {
		Revisions   RevisionsConfig   `yaml:"revisions"`
		Comments    CommentsConfig    `yaml:"comments"`
		Annotations AnnotationsConfig `yaml:"annotations"`
		Tabs        TabsConfig        `yaml:"tabs"`
		Fonts       FontsConfig       `yaml:"fonts"`
		Images      ImagesConfig      `yaml:"images"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
