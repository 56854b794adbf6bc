package properties

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Pranavrh53/Geo-Watch/internal/area"
	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
	"github.com/paulmach/orb"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Region is a named area of interest given by its bounding box in degrees.
type Region struct {
	Name    string  `yaml:"name"`
	Country string  `yaml:"country,omitempty"`
	West    float64 `yaml:"west"`
	South   float64 `yaml:"south"`
	East    float64 `yaml:"east"`
	North   float64 `yaml:"north"`
}

func (r Region) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{r.West, r.South}, Max: orb.Point{r.East, r.North}}
}

func (r Region) Validate() error {
	if r.West >= r.East || r.South >= r.North {
		return landcover.NewConfigurationError("region %q has an empty bounding box", r.Name)
	}
	return nil
}

type ClassifierConfig struct {
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

type OutputConfig struct {
	TileImages     bool `yaml:"tile_images"`
	TileAnimations bool `yaml:"tile_animations"`
	CSV            bool `yaml:"csv"`
	GeoJSON        bool `yaml:"geojson"`
	Chart          bool `yaml:"chart"`
}

// Config is the analysis configuration handed to the engine and the
// accountant at construction time.
type Config struct {
	ClassTaxonomy           landcover.Taxonomy         `yaml:"class_taxonomy"`
	NoDataClass             landcover.ClassCode        `yaml:"no_data_class"`
	Rules                   []landcover.TransitionRule `yaml:"rules"`
	GroundSamplingDistanceM float64                    `yaml:"ground_sampling_distance_m"`
	Workers                 int                        `yaml:"workers"`
	TileSize                int                        `yaml:"tile_size"`
	DataDir                 string                     `yaml:"data_dir"`
	Regions                 map[string]Region          `yaml:"regions"`
	Classifier              ClassifierConfig           `yaml:"classifier"`
	Output                  OutputConfig               `yaml:"output"`
}

func DefaultConfig() *Config {
	return &Config{
		ClassTaxonomy:           landcover.DefaultTaxonomy(),
		NoDataClass:             landcover.Background,
		Rules:                   landcover.DefaultRules(),
		GroundSamplingDistanceM: area.DefaultGSD,
		Workers:                 4,
		TileSize:                512,
		DataDir:                 DataPath(),
		Regions: map[string]Region{
			"bangalore": {Name: "Bangalore", Country: "India", West: 77.3700, South: 12.7340, East: 77.8800, North: 13.1730},
			"delhi":     {Name: "Delhi", Country: "India", West: 76.8389, South: 28.4041, East: 77.3465, North: 28.8833},
			"mumbai":    {Name: "Mumbai", Country: "India", West: 72.7757, South: 18.8942, East: 72.9781, North: 19.2695},
			"hyderabad": {Name: "Hyderabad", Country: "India", West: 78.2543, South: 17.2403, East: 78.6530, North: 17.5640},
		},
		Classifier: ClassifierConfig{
			Address: "localhost:50051",
			Timeout: 15 * time.Minute,
		},
		Output: OutputConfig{
			CSV:     true,
			GeoJSON: true,
			Chart:   true,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// GEOWATCH_* environment / bound flags held by v.
func Load(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if v != nil {
		cfg.applyOverrides(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewViper returns a viper instance reading GEOWATCH_* variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("GEOWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// decode lays a YAML document over c. Keys present in the document win,
// explicit zeros included; a class_taxonomy replaces the default one while
// regions add to the defaults.
func (c *Config) decode(data []byte) error {
	taxonomy := c.ClassTaxonomy
	c.ClassTaxonomy = nil
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	if c.ClassTaxonomy == nil {
		c.ClassTaxonomy = taxonomy
	}

	regions := make(map[string]Region, len(c.Regions))
	for key, region := range c.Regions {
		regions[strings.ToLower(key)] = region
	}
	c.Regions = regions
	return nil
}

func (c *Config) applyOverrides(v *viper.Viper) {
	if v.IsSet("ground_sampling_distance_m") {
		c.GroundSamplingDistanceM = v.GetFloat64("ground_sampling_distance_m")
	}
	if v.IsSet("workers") {
		c.Workers = v.GetInt("workers")
	}
	if v.IsSet("tile_size") {
		c.TileSize = v.GetInt("tile_size")
	}
	if v.IsSet("data_dir") {
		c.DataDir = v.GetString("data_dir")
	}
	if v.IsSet("classifier.address") {
		c.Classifier.Address = v.GetString("classifier.address")
	}
	if v.IsSet("classifier.timeout") {
		c.Classifier.Timeout = v.GetDuration("classifier.timeout")
	}
	if v.IsSet("output.tile_images") {
		c.Output.TileImages = v.GetBool("output.tile_images")
	}
	if v.IsSet("output.tile_animations") {
		c.Output.TileAnimations = v.GetBool("output.tile_animations")
	}
}

// Validate reports configuration errors that must stop a run before any
// tile is touched.
func (c *Config) Validate() error {
	if err := c.ClassTaxonomy.Validate(c.NoDataClass); err != nil {
		return err
	}
	if len(c.Rules) == 0 {
		return landcover.NewConfigurationError("no transition rules configured")
	}
	for _, rule := range c.Rules {
		if err := rule.Validate(); err != nil {
			return err
		}
	}
	if _, err := area.NewAccountant(c.GroundSamplingDistanceM); err != nil {
		return err
	}
	if c.Workers <= 0 {
		return landcover.NewConfigurationError("workers must be positive, got %d", c.Workers)
	}
	if c.TileSize <= 0 {
		return landcover.NewConfigurationError("tile size must be positive, got %d", c.TileSize)
	}
	for key, region := range c.Regions {
		if err := region.Validate(); err != nil {
			return fmt.Errorf("region %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) Region(name string) (Region, error) {
	region, ok := c.Regions[strings.ToLower(name)]
	if !ok {
		return Region{}, fmt.Errorf("unknown region %q", name)
	}
	return region, nil
}

// YAML renders the configuration for `config show` and `config init`.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
