package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/gene2go-expander/pkg/annotation"
)

// DefaultFile is read from the working directory when present.
const DefaultFile = "gene2go-expander.toml"

const envPrefix = "GENE2GO_"

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"include-evidence-codes": true,
	"exclude-evidence-codes": true,
	"include-tax-ids":        true,
	"exclude-tax-ids":        true,
}

// Config holds all configuration for the application
type Config struct {
	OBO            string `koanf:"obo"`
	Gene2Go        string `koanf:"gene2go"`
	OutputDir      string `koanf:"output-dir"`
	MaxChildNum    int    `koanf:"max-child-num"`
	MaxExpandTerms int    `koanf:"max-expand-terms"`

	IncludeEvidenceCodes []string `koanf:"include-evidence-codes"`
	ExcludeEvidenceCodes []string `koanf:"exclude-evidence-codes"`
	IncludeTaxIDs        []string `koanf:"include-tax-ids"`
	ExcludeTaxIDs        []string `koanf:"exclude-tax-ids"`

	Delimiter string `koanf:"delimiter"`
	SQLite    string `koanf:"sqlite"`

	Serve bool `koanf:"serve"`
	Port  int  `koanf:"port"`
	Watch bool `koanf:"watch"`

	Verbosity  string `koanf:"verbosity"`
	VerboseCnt int    `koanf:"verbose"`
	JSONLogs   bool   `koanf:"json-logs"`
}

// Error reports an invalid configuration value.
type Error struct {
	Key string
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Msg)
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"obo":                    "",
		"gene2go":                "",
		"output-dir":             ".",
		"max-child-num":          2000,
		"max-expand-terms":       0,
		"include-evidence-codes": []string{},
		"exclude-evidence-codes": []string{},
		"include-tax-ids":        []string{},
		"exclude-tax-ids":        []string{},
		"delimiter":              "",
		"sqlite":                 "",
		"serve":                  false,
		"port":                   8080,
		"watch":                  false,
		"verbosity":              "",
		"verbose":                0,
		"json-logs":              false,
	}
}

// RegisterFlags adds the command line flags understood by Load.
func RegisterFlags(f *pflag.FlagSet) {
	f.String("config", DefaultFile, "Path to a TOML config file")
	f.String("obo", "", "Ontology in OBO format (.obo or .obo.gz)")
	f.String("gene2go", "", "Gene to GO annotation table (gene2go, .csv or .gz)")
	f.StringP("output-dir", "o", ".", "Directory for the output tables")
	f.Int("max-child-num", 2000, "Skip terms whose closure has at least this many members")
	f.Int("max-expand-terms", 0, "Expand at most this many terms (0 = all)")
	f.StringSlice("include-evidence-codes", nil, "Keep only these evidence codes")
	f.StringSlice("exclude-evidence-codes", nil, "Drop these evidence codes")
	f.StringSlice("include-tax-ids", nil, "Keep only these taxonomy ids")
	f.StringSlice("exclude-tax-ids", nil, "Drop these taxonomy ids")
	f.String("delimiter", "", "Annotation table delimiter: tab or comma (default: by extension)")
	f.String("sqlite", "", "Also export the results to this SQLite database")
	f.Bool("serve", false, "Serve the results over HTTP")
	f.Int("port", 8080, "Port for the HTTP server (only used with --serve)")
	f.Bool("watch", false, "Re-run when an input file changes")
	f.String("verbosity", "", "Log level: error, warn, info, debug or trace")
	f.CountP("verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	f.Bool("json-logs", false, "Log as JSON")
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file. The default file is optional; one named explicitly is not.
	path, explicit := DefaultFile, false
	if f != nil {
		if fl := f.Lookup("config"); fl != nil {
			path, explicit = fl.Value.String(), fl.Changed
		}
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// 3. Environment Variables
	// Prefix: GENE2GO_ (e.g., GENE2GO_MAX_CHILD_NUM=500)
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// envValue maps GENE2GO_MAX_CHILD_NUM to max-child-num and splits list values.
func envValue(key, value string) (string, interface{}) {
	key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, envPrefix)), "_", "-")
	if listKeys[key] {
		return key, splitList(value)
	}
	return key, value
}

func splitList(s string) []string {
	out := []string{}
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate checks the configuration before any input is read.
func (c *Config) Validate() error {
	if c.OBO == "" {
		return &Error{Key: "obo", Msg: "an ontology file is required"}
	}
	if c.Gene2Go == "" {
		return &Error{Key: "gene2go", Msg: "an annotation table is required"}
	}
	for _, in := range []struct{ key, path string }{{"obo", c.OBO}, {"gene2go", c.Gene2Go}} {
		if _, err := os.Stat(in.path); err != nil {
			return &Error{Key: in.key, Msg: err.Error()}
		}
	}
	if c.MaxChildNum < 1 {
		return &Error{Key: "max-child-num", Msg: fmt.Sprintf("must be at least 1, got %d", c.MaxChildNum)}
	}
	if c.MaxExpandTerms < 0 {
		return &Error{Key: "max-expand-terms", Msg: fmt.Sprintf("must not be negative, got %d", c.MaxExpandTerms)}
	}
	if _, err := c.Comma(); err != nil {
		return err
	}
	if _, err := c.Criteria(); err != nil {
		return err
	}
	if c.Serve && (c.Port < 1 || c.Port > 65535) {
		return &Error{Key: "port", Msg: fmt.Sprintf("%d is not a valid port", c.Port)}
	}
	return nil
}

// Comma returns the annotation table delimiter.
func (c *Config) Comma() (rune, error) {
	r, err := annotation.DelimiterFor(c.Gene2Go, c.Delimiter)
	if err != nil {
		return 0, &Error{Key: "delimiter", Msg: err.Error()}
	}
	return r, nil
}

// Criteria returns the prefilter criteria, parsing the taxonomy ids.
func (c *Config) Criteria() (annotation.Criteria, error) {
	include, err := parseTaxIDs("include-tax-ids", c.IncludeTaxIDs)
	if err != nil {
		return annotation.Criteria{}, err
	}
	exclude, err := parseTaxIDs("exclude-tax-ids", c.ExcludeTaxIDs)
	if err != nil {
		return annotation.Criteria{}, err
	}

	return annotation.Criteria{
		IncludeEvidence: c.IncludeEvidenceCodes,
		ExcludeEvidence: c.ExcludeEvidenceCodes,
		IncludeTaxIDs:   include,
		ExcludeTaxIDs:   exclude,
	}, nil
}

func parseTaxIDs(key string, values []string) ([]int, error) {
	ids := make([]int, 0, len(values))
	for _, v := range values {
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, &Error{Key: key, Msg: fmt.Sprintf("%q is not a taxonomy id", v)}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
