package analysis

import (
	"bytes"
	"embed"
	"fmt"
	"sort"

	"github.com/spf13/viper"

	"techrace/internal/compare"
	"techrace/internal/report"
)

//go:embed definitions/*.yaml
var builtins embed.FS

// Rename maps a source column to the name the comparison uses.
type Rename struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// Source is one entity's input table and how to normalise it.
type Source struct {
	report.Entity `mapstructure:",squash"`

	Path   string   `mapstructure:"path"`
	Rename []Rename `mapstructure:"rename"`
	Scale  float64  `mapstructure:"scale"`
}

// Definition is a declarative two-entity analysis.
type Definition struct {
	Name       string             `mapstructure:"name"`
	A          Source             `mapstructure:"a"`
	B          Source             `mapstructure:"b"`
	Comparison compare.Comparison `mapstructure:"comparison"`
	Chart      report.ChartLayout `mapstructure:"chart"`
	Summary    string             `mapstructure:"summary"`
	Workbook   string             `mapstructure:"workbook"`
}

// Builtins lists the embedded analysis names.
func Builtins() []string {
	entries, _ := builtins.ReadDir("definitions")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		n := e.Name()
		names = append(names, n[:len(n)-len(".yaml")])
	}
	sort.Strings(names)
	return names
}

// Builtin returns an embedded analysis definition by name.
func Builtin(name string) (*Definition, error) {
	data, err := builtins.ReadFile("definitions/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown analysis %q (available: %v)", name, Builtins())
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to read analysis %q: %w", name, err)
	}
	return decode(v)
}

// LoadFile reads an analysis definition from a YAML, JSON or TOML file.
func LoadFile(path string) (*Definition, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Definition, error) {
	var def Definition
	if err := v.Unmarshal(&def); err != nil {
		return nil, fmt.Errorf("failed to parse analysis definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("analysis name is required")
	}
	for _, s := range []struct {
		side compare.Side
		src  Source
	}{{compare.SideA, d.A}, {compare.SideB, d.B}} {
		if s.src.Path == "" {
			return fmt.Errorf("%s: entity %s has no path", d.Name, s.side)
		}
		if s.src.Label == "" {
			return fmt.Errorf("%s: entity %s has no label", d.Name, s.side)
		}
		if s.src.Scale < 0 {
			return fmt.Errorf("%s: entity %s has negative scale %v", d.Name, s.side, s.src.Scale)
		}
	}
	if err := d.Comparison.Validate(); err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}
	if err := d.Chart.Validate(d.Comparison); err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}
	if d.Summary == "" {
		return fmt.Errorf("%s: summary template is required", d.Name)
	}
	return nil
}

func (d *Definition) source(side compare.Side) Source {
	if side == compare.SideA {
		return d.A
	}
	return d.B
}

// Required lists the source columns the analysis reads from one side's file.
func (d *Definition) Required(side compare.Side) []string {
	src := d.source(side)
	from := make(map[string]string, len(src.Rename))
	for _, r := range src.Rename {
		from[r.To] = r.From
	}

	seen := make(map[string]bool)
	var required []string
	for _, c := range append(d.Comparison.Columns(side), d.Chart.LineColumns()...) {
		if original, ok := from[c]; ok {
			c = original
		}
		if !seen[c] {
			seen[c] = true
			required = append(required, c)
		}
	}
	return required
}
