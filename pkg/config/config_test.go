package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/pflag"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("Parse(%v) error = %v", args, err)
	}
	return f
}

// inDir runs the test from an empty directory so no stray config file is read.
func inDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	inDir(t)

	cfg, err := Load(newFlags(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MaxChildNum != 2000 || cfg.MaxExpandTerms != 0 || cfg.OutputDir != "." || cfg.Port != 8080 {
		t.Errorf("Load() defaults = %+v", cfg)
	}
	if len(cfg.IncludeTaxIDs) != 0 || cfg.Serve || cfg.Watch {
		t.Errorf("Load() defaults = %+v", cfg)
	}
}

func TestLoad_Priority(t *testing.T) {
	dir := inDir(t)

	toml := "max-child-num = 100\nport = 9000\ninclude-tax-ids = [9606]\ndelimiter = \"tab\"\n"
	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GENE2GO_PORT", "9100")
	t.Setenv("GENE2GO_MAX_CHILD_NUM", "200")
	t.Setenv("GENE2GO_EXCLUDE_EVIDENCE_CODES", "IEA, ND")

	cfg, err := Load(newFlags(t, "--max-child-num", "300", "-vv"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MaxChildNum != 300 {
		t.Errorf("MaxChildNum = %d, want the flag value 300", cfg.MaxChildNum)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want the env value 9100", cfg.Port)
	}
	if cfg.Delimiter != "tab" {
		t.Errorf("Delimiter = %q, want the file value", cfg.Delimiter)
	}
	if !reflect.DeepEqual(cfg.IncludeTaxIDs, []string{"9606"}) {
		t.Errorf("IncludeTaxIDs = %v", cfg.IncludeTaxIDs)
	}
	if !reflect.DeepEqual(cfg.ExcludeEvidenceCodes, []string{"IEA", "ND"}) {
		t.Errorf("ExcludeEvidenceCodes = %v", cfg.ExcludeEvidenceCodes)
	}
	if cfg.VerboseCnt != 2 {
		t.Errorf("VerboseCnt = %d, want 2", cfg.VerboseCnt)
	}
}

func TestLoad_ExplicitConfigMustExist(t *testing.T) {
	inDir(t)

	if _, err := Load(newFlags(t, "--config", "missing.toml")); err == nil {
		t.Error("Load() with a missing explicit config file should fail")
	}
}

func TestLoad_ListFlags(t *testing.T) {
	inDir(t)

	cfg, err := Load(newFlags(t, "--include-tax-ids", "9606,10090", "--include-evidence-codes", "EXP"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	c, err := cfg.Criteria()
	if err != nil {
		t.Fatalf("Criteria() error = %v", err)
	}
	if !reflect.DeepEqual(c.IncludeTaxIDs, []int{9606, 10090}) {
		t.Errorf("IncludeTaxIDs = %v", c.IncludeTaxIDs)
	}
	if !reflect.DeepEqual(c.IncludeEvidence, []string{"EXP"}) {
		t.Errorf("IncludeEvidence = %v", c.IncludeEvidence)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	obo := touch(t, dir, "go.obo")
	g2g := touch(t, dir, "gene2go")

	valid := func() Config {
		return Config{OBO: obo, Gene2Go: g2g, OutputDir: dir, MaxChildNum: 10, Port: 8080}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing obo", func(c *Config) { c.OBO = "" }, "obo"},
		{"obo does not exist", func(c *Config) { c.OBO = filepath.Join(dir, "nope.obo") }, "obo"},
		{"missing gene2go", func(c *Config) { c.Gene2Go = "" }, "gene2go"},
		{"max-child-num zero", func(c *Config) { c.MaxChildNum = 0 }, "max-child-num"},
		{"negative cap", func(c *Config) { c.MaxExpandTerms = -1 }, "max-expand-terms"},
		{"unknown delimiter", func(c *Config) { c.Delimiter = "pipe" }, "delimiter"},
		{"non-numeric include tax id", func(c *Config) { c.IncludeTaxIDs = []string{"human"} }, "include-tax-ids"},
		{"non-numeric exclude tax id", func(c *Config) { c.ExcludeTaxIDs = []string{"9606", "x"} }, "exclude-tax-ids"},
		{"bad port when serving", func(c *Config) { c.Serve, c.Port = true, 0 }, "port"},
		{"bad port ignored without serve", func(c *Config) { c.Port = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantKey == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}

			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("Validate() error = %v, want *Error", err)
			}
			if cerr.Key != tt.wantKey {
				t.Errorf("Error.Key = %q, want %q", cerr.Key, tt.wantKey)
			}
		})
	}
}

func TestComma(t *testing.T) {
	cfg := Config{Gene2Go: "annotations.csv"}
	if r, err := cfg.Comma(); err != nil || r != ',' {
		t.Errorf("Comma() = %q, %v", r, err)
	}

	cfg.Delimiter = "tab"
	if r, err := cfg.Comma(); err != nil || r != '\t' {
		t.Errorf("Comma() = %q, %v", r, err)
	}
}
