package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("MINUTA_TEST_NAME", "cartorio")
	path := writeFile(t, "name: ${MINUTA_TEST_NAME}\nport: 9090\n")

	var cfg sample
	if err := Load(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "cartorio" || cfg.Port != 9090 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Validates(t *testing.T) {
	path := writeFile(t, "name: x\n")
	var cfg sample
	if err := Load(path, &cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeFile(t, "port: [\n")
	var cfg sample
	if err := Load(path, &cfg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOptional_MissingKeepsDefaults(t *testing.T) {
	cfg := sample{Name: "default", Port: 8080}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &cfg)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("found = true for a missing file")
	}
	if cfg.Name != "default" || cfg.Port != 8080 {
		t.Errorf("defaults changed: %+v", cfg)
	}
}

func TestLoadOptional_OverridesDefaults(t *testing.T) {
	cfg := sample{Name: "default", Port: 8080}
	found, err := LoadOptional(writeFile(t, "port: 7000\n"), &cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !found || cfg.Port != 7000 || cfg.Name != "default" {
		t.Errorf("found=%v cfg=%+v", found, cfg)
	}
}
