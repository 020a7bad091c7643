package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
instruments:
  - symbol: NIFTY24AUGFUT
    exchange: NFO
    lot_size: 25
    product: NRML
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Mode != "PAPER" {
		t.Errorf("Expected default mode PAPER, got %s", cfg.Mode)
	}
	if cfg.DataSource != "SIM" {
		t.Errorf("Expected default data_source SIM, got %s", cfg.DataSource)
	}
	if cfg.MTMSeconds != 5 {
		t.Errorf("Expected default mtm_interval_seconds 5, got %d", cfg.MTMSeconds)
	}
	if cfg.ExportDir != "trades" {
		t.Errorf("Expected default export_dir trades, got %s", cfg.ExportDir)
	}
	if cfg.Dashboard.Addr != "127.0.0.1:8080" {
		t.Errorf("Expected default dashboard addr 127.0.0.1:8080, got %s", cfg.Dashboard.Addr)
	}
	if cfg.Journal.Driver != "none" {
		t.Errorf("Expected default journal driver none, got %s", cfg.Journal.Driver)
	}
	if cfg.ActiveInstrument != "NFO:NIFTY24AUGFUT" {
		t.Errorf("Expected active instrument to default to first entry, got %s", cfg.ActiveInstrument)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			"bad mode",
			"mode: YOLO\ninstruments:\n  - {symbol: A, exchange: NFO, lot_size: 1}\n",
			"invalid mode",
		},
		{
			"real requires live",
			"mode: REAL\ndata_source: SIM\ninstruments:\n  - {symbol: A, exchange: NFO, lot_size: 1}\n",
			"requires data_source 'LIVE'",
		},
		{
			"no instruments",
			"mode: PAPER\n",
			"instruments cannot be empty",
		},
		{
			"bad lot size",
			"instruments:\n  - {symbol: A, exchange: NFO, lot_size: 0}\n",
			"lot_size must be at least 1",
		},
		{
			"duplicate instrument",
			"instruments:\n  - {symbol: A, exchange: NFO, lot_size: 1}\n  - {symbol: A, exchange: NFO, lot_size: 1}\n",
			"duplicate instrument",
		},
		{
			"unknown active instrument",
			"active_instrument: NFO:B\ninstruments:\n  - {symbol: A, exchange: NFO, lot_size: 1}\n",
			"not in the instruments list",
		},
		{
			"bad journal driver",
			"journal: {driver: postgres}\ninstruments:\n  - {symbol: A, exchange: NFO, lot_size: 1}\n",
			"invalid journal.driver",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Expected error containing %q, got %q", tc.want, err.Error())
			}
		})
	}
}

func TestLoadConfigWritesTemplateWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("Expected error for missing config, got nil")
	}
	if !strings.Contains(err.Error(), "starter template") {
		t.Errorf("Expected instructive error, got %q", err.Error())
	}

	// The written template must itself be a loadable config.
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected template to load cleanly, got %v", err)
	}
	if cfg.Mode != "PAPER" || cfg.DataSource != "SIM" {
		t.Errorf("Expected template defaults PAPER/SIM, got %s/%s", cfg.Mode, cfg.DataSource)
	}
	if len(cfg.Instruments) != 2 {
		t.Errorf("Expected 2 template instruments, got %d", len(cfg.Instruments))
	}
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "mode: PAPER\n")
	if err := WriteTemplate(path); err == nil {
		t.Fatal("Expected refusal to overwrite existing file, got nil")
	}
}

func TestLookup(t *testing.T) {
	path := writeConfig(t, `
instruments:
  - symbol: NIFTY24AUGFUT
    exchange: NFO
    lot_size: 25
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, ok := cfg.Lookup("NFO:NIFTY24AUGFUT"); !ok {
		t.Error("Expected lookup by full ID to succeed")
	}
	if _, ok := cfg.Lookup("NIFTY24AUGFUT"); !ok {
		t.Error("Expected lookup by bare symbol to succeed")
	}
	if _, ok := cfg.Lookup("BANKNIFTY24AUGFUT"); ok {
		t.Error("Expected lookup of unknown symbol to fail")
	}

	if got := cfg.Active().ID(); got != "NFO:NIFTY24AUGFUT" {
		t.Errorf("Expected active instrument NFO:NIFTY24AUGFUT, got %s", got)
	}
}
