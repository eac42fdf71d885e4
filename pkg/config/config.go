// Package config loads the project configuration from sfc-typer.hcl or
// sfc-typer.yaml.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/walteh/sfc-typer/pkg/builder"
	"github.com/walteh/sfc-typer/pkg/macro"
	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/workspace"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// FileNames are the names Find looks for, in order.
var FileNames = []string{"sfc-typer.hcl", "sfc-typer.yaml", "sfc-typer.yml"}

const DefaultInclude = "**/*.vue"

type Config struct {
	ReservedPrefix string   `hcl:"reserved_prefix,optional" yaml:"reserved_prefix,omitempty"`
	FallbackType   string   `hcl:"fallback_type,optional" yaml:"fallback_type,omitempty"`
	RuntimeModule  string   `hcl:"runtime_module,optional" yaml:"runtime_module,omitempty"`
	Kinds          []string `hcl:"kinds,optional" yaml:"kinds,omitempty"`
	Include        []string `hcl:"include,optional" yaml:"include,omitempty"`
	Exclude        []string `hcl:"exclude,optional" yaml:"exclude,omitempty"`
	// OutDir receives the written artifacts. Empty writes them next to their
	// documents.
	OutDir     string `hcl:"out_dir,optional" yaml:"out_dir,omitempty"`
	ColumnMode string `hcl:"column_mode,optional" yaml:"column_mode,omitempty"`
}

// Default is the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ReservedPrefix == "" {
		c.ReservedPrefix = macro.DefaultPrefix
	}
	if c.FallbackType == "" {
		c.FallbackType = macro.DefaultFallbackType
	}
	if c.RuntimeModule == "" {
		c.RuntimeModule = builder.DefaultRuntimeModule
	}
	if len(c.Kinds) == 0 {
		for _, k := range builder.Kinds {
			c.Kinds = append(c.Kinds, string(k))
		}
	}
	if len(c.Include) == 0 {
		c.Include = []string{DefaultInclude}
	}
	if c.ColumnMode == "" {
		c.ColumnMode = position.ColumnUTF16.String()
	}
}

// Load reads a configuration file. Files ending in .yaml or .yml are YAML,
// everything else is HCL. Defaults are applied and the result validated.
func Load(fsys afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	var cfg *Config
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		cfg, err = parseYAML(data)
	} else {
		cfg, err = parseHCL(data, path)
	}
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func parseYAML(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}

func parseHCL(data []byte, path string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, evalContext(), &cfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}
	return &cfg, nil
}

// evalContext lets HCL files name artifact kinds and column modes as
// `kind.render` or `column.utf16` instead of quoting them.
func evalContext() *hcl.EvalContext {
	kinds := map[string]cty.Value{}
	for _, k := range builder.Kinds {
		kinds[string(k)] = cty.StringVal(string(k))
	}
	columns := map[string]cty.Value{}
	for _, m := range []position.ColumnMode{position.ColumnUTF16, position.ColumnBytes, position.ColumnGraphemes} {
		columns[m.String()] = cty.StringVal(m.String())
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"kind":   cty.ObjectVal(kinds),
			"column": cty.ObjectVal(columns),
		},
	}
}

// Find loads the first configuration file in dir, or returns the defaults
// when there is none. The second result is the file that was loaded.
func Find(fsys afero.Fs, dir string) (*Config, string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := fsys.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, "", errors.Errorf("checking %s: %w", path, err)
		}
		cfg, err := Load(fsys, path)
		return cfg, path, err
	}
	return Default(), "", nil
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)

// Validate reports every problem in the configuration.
func (c *Config) Validate() error {
	var result *multierror.Error

	if !identifierRe.MatchString(c.ReservedPrefix) {
		result = multierror.Append(result, errors.Errorf("reserved_prefix %q is not an identifier", c.ReservedPrefix))
	}
	if strings.TrimSpace(c.FallbackType) == "" {
		result = multierror.Append(result, errors.New("fallback_type is empty"))
	}
	if strings.TrimSpace(c.RuntimeModule) == "" {
		result = multierror.Append(result, errors.New("runtime_module is empty"))
	}
	for _, k := range c.Kinds {
		if _, err := builder.ParseKind(k); err != nil {
			result = multierror.Append(result, errors.Errorf("kinds: %w", err))
		}
	}
	if _, err := position.ParseColumnMode(c.ColumnMode); err != nil {
		result = multierror.Append(result, errors.Errorf("column_mode: %w", err))
	}
	for _, p := range c.Include {
		if !doublestar.ValidatePattern(p) {
			result = multierror.Append(result, errors.Errorf("include: invalid pattern %q", p))
		}
	}
	for _, p := range c.Exclude {
		if !doublestar.ValidatePattern(p) {
			result = multierror.Append(result, errors.Errorf("exclude: invalid pattern %q", p))
		}
	}

	return result.ErrorOrNil()
}

// ArtifactKinds returns the configured kinds. Call it on a validated config.
func (c *Config) ArtifactKinds() []builder.Kind {
	out := make([]builder.Kind, 0, len(c.Kinds))
	for _, s := range c.Kinds {
		if k, err := builder.ParseKind(s); err == nil {
			out = append(out, k)
		}
	}
	return out
}

// Matches reports whether a slash-separated path relative to the project
// root is included and not excluded.
func (c *Config) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	included := false
	for _, p := range c.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, p := range c.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	return true
}

// WorkspaceOptions converts the configuration into registry options.
func (c *Config) WorkspaceOptions() workspace.Options {
	mode, _ := position.ParseColumnMode(c.ColumnMode)
	return workspace.Options{
		Macro: macro.Options{
			Prefix:       c.ReservedPrefix,
			FallbackType: c.FallbackType,
		},
		Builder: builder.Options{
			RuntimeModule: c.RuntimeModule,
		},
		ColumnMode: mode,
	}
}
