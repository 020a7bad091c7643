package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"scalp-terminal/internal/types"
)

type Config struct {
	Mode             string             `yaml:"mode"`
	DataSource       string             `yaml:"data_source"`
	Instruments      []types.Instrument `yaml:"instruments"`
	ActiveInstrument string             `yaml:"active_instrument"`
	MTMSeconds       int                `yaml:"mtm_interval_seconds"`
	ExportDir        string             `yaml:"export_dir"`
	Dashboard        struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"dashboard"`
	Journal struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"journal"`
}

func (c *Config) Validate() error {
	if c.Mode != "PAPER" && c.Mode != "REAL" {
		return fmt.Errorf("invalid mode '%s': must be 'PAPER' or 'REAL'", c.Mode)
	}
	if c.DataSource != "LIVE" && c.DataSource != "SIM" {
		return fmt.Errorf("invalid data_source '%s': must be 'LIVE' or 'SIM'", c.DataSource)
	}
	if c.Mode == "REAL" && c.DataSource != "LIVE" {
		return errors.New("mode 'REAL' requires data_source 'LIVE'")
	}
	if len(c.Instruments) == 0 {
		return errors.New("instruments cannot be empty")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for _, inst := range c.Instruments {
		if inst.Symbol == "" || inst.Exchange == "" {
			return fmt.Errorf("instrument '%s' needs both symbol and exchange", inst.ID())
		}
		if inst.LotSize < 1 {
			return fmt.Errorf("instrument '%s' lot_size must be at least 1, got %d", inst.ID(), inst.LotSize)
		}
		if seen[inst.ID()] {
			return fmt.Errorf("duplicate instrument '%s'", inst.ID())
		}
		seen[inst.ID()] = true
	}
	if _, ok := c.Lookup(c.ActiveInstrument); !ok {
		return fmt.Errorf("active_instrument '%s' is not in the instruments list", c.ActiveInstrument)
	}
	if c.MTMSeconds < 1 {
		return fmt.Errorf("mtm_interval_seconds must be at least 1, got %d", c.MTMSeconds)
	}
	if c.Journal.Driver != "sqlite" && c.Journal.Driver != "none" {
		return fmt.Errorf("invalid journal.driver '%s': must be 'sqlite' or 'none'", c.Journal.Driver)
	}
	return nil
}

// Lookup resolves an instrument by full ID ("NFO:NIFTY24AUGFUT") or bare
// symbol.
func (c *Config) Lookup(ref string) (types.Instrument, bool) {
	for _, inst := range c.Instruments {
		if inst.ID() == ref || inst.Symbol == ref {
			return inst, true
		}
	}
	return types.Instrument{}, false
}

func (c *Config) Active() types.Instrument {
	inst, _ := c.Lookup(c.ActiveInstrument)
	return inst
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if werr := WriteTemplate(path); werr != nil {
			return nil, fmt.Errorf("config file %s not found and template write failed: %w", path, werr)
		}
		return nil, fmt.Errorf("config file %s not found: wrote a starter template, edit it and rerun", path)
	}
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Mode == "" {
		c.Mode = "PAPER"
	}
	if c.DataSource == "" {
		c.DataSource = "SIM"
	}
	if c.MTMSeconds == 0 {
		c.MTMSeconds = 5
	}
	if c.ExportDir == "" {
		c.ExportDir = "trades"
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = "127.0.0.1:8080"
	}
	if c.Journal.Driver == "" {
		c.Journal.Driver = "none"
	}
	if c.Journal.Driver == "sqlite" && c.Journal.Path == "" {
		c.Journal.Path = "terminal.db"
	}
	if c.ActiveInstrument == "" && len(c.Instruments) > 0 {
		c.ActiveInstrument = c.Instruments[0].ID()
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

const template = `# scalp-terminal configuration.
#
# mode:        PAPER simulates fills at the touch of the book,
#              REAL routes market orders to Zerodha (needs KITE_API_KEY,
#              KITE_API_SECRET and KITE_ACCESS_TOKEN in the environment).
# data_source: LIVE quotes from Kite, SIM runs a local random-walk book
#              with no credentials.
mode: PAPER
data_source: SIM

instruments:
  - symbol: NIFTY24AUGFUT
    exchange: NFO
    lot_size: 25
    product: NRML
  - symbol: BANKNIFTY24AUGFUT
    exchange: NFO
    lot_size: 15
    product: NRML

active_instrument: NFO:NIFTY24AUGFUT
mtm_interval_seconds: 5
export_dir: trades

dashboard:
  enabled: true
  addr: 127.0.0.1:8080

# driver: sqlite appends every fill and trade to the given file, none disables
# the journal entirely.
journal:
  driver: none
  path: terminal.db
`

// WriteTemplate writes a commented starter config. It refuses to overwrite an
// existing file.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing %s", path)
	}
	return os.WriteFile(path, []byte(template), 0644)
}
