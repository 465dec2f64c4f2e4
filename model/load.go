package model

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MaxDefinitionSize bounds definition files read by LoadFile.
const MaxDefinitionSize = 1 << 20

// Format is a definition file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unknown definition format for %q (want .yaml, .yml or .toml)", path)
}

// definitionValidate checks the shape of decoded definitions before any
// expression is parsed.
var definitionValidate *validator.Validate

func init() {
	definitionValidate = validator.New()
}

// Definition is the file form of a System.
//
//	name: gompertz-system
//	time: t
//	parameters: [kG]
//	states:
//	  - {name: W, rhs: "G*W"}
//	  - {name: G, rhs: "-kG*G"}
//	generators:
//	  - {name: X3, xi: "0", eta: ["W", "0"]}
type Definition struct {
	Name        string                `yaml:"name" toml:"name" json:"name" validate:"required"`
	Description string                `yaml:"description,omitempty" toml:"description" json:"description,omitempty"`
	Time        string                `yaml:"time,omitempty" toml:"time" json:"time,omitempty"`
	Parameters  []string              `yaml:"parameters,omitempty" toml:"parameters" json:"parameters,omitempty" validate:"dive,required"`
	States      []StateDefinition     `yaml:"states" toml:"states" json:"states" validate:"required,min=1,dive"`
	Generators  []GeneratorDefinition `yaml:"generators,omitempty" toml:"generators" json:"generators,omitempty" validate:"dive"`
}

// StateDefinition is one state variable and its right-hand side.
type StateDefinition struct {
	Name string `yaml:"name" toml:"name" json:"name" validate:"required"`
	RHS  string `yaml:"rhs" toml:"rhs" json:"rhs" validate:"required"`
}

// GeneratorDefinition is a candidate generator. Xi defaults to 0.
type GeneratorDefinition struct {
	Name string   `yaml:"name" toml:"name" json:"name" validate:"required"`
	Xi   string   `yaml:"xi,omitempty" toml:"xi" json:"xi,omitempty"`
	Eta  []string `yaml:"eta" toml:"eta" json:"eta" validate:"required,min=1,dive,required"`
}

// Validate checks required fields.
func (d *Definition) Validate() error {
	err := definitionValidate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &MalformedSystemError{System: d.Name, Reason: "invalid definition", Err: err}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.TrimPrefix(fe.Namespace(), "Definition."), fe.Tag()))
	}
	if len(d.States) == 0 {
		return &MalformedSystemError{System: d.Name, Reason: "no state variables"}
	}
	return &MalformedSystemError{System: d.Name, Reason: "invalid fields: " + strings.Join(fields, ", ")}
}

// System validates d and builds the system with its candidate generators.
func (d *Definition) System() (*System, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	states := make([]string, len(d.States))
	rhs := make([]string, len(d.States))
	for i, s := range d.States {
		states[i], rhs[i] = s.Name, s.RHS
	}
	sys, err := Parse(d.Name, d.Time, states, rhs, d.Parameters)
	if err != nil {
		return nil, err
	}
	for _, g := range d.Generators {
		if err := sys.AddCandidate(g.Name, g.Xi, g.Eta); err != nil {
			return nil, err
		}
	}
	return sys, nil
}

// Definition converts s back into its file form.
func (s *System) Definition() *Definition {
	d := &Definition{Name: s.Name, Time: s.Time, Parameters: append([]string(nil), s.Params...)}
	for _, st := range s.States {
		d.States = append(d.States, StateDefinition{Name: st.Name, RHS: st.RHS.String()})
	}
	for _, c := range s.Candidates {
		g := GeneratorDefinition{Name: c.Name, Xi: c.Xi.String()}
		for _, e := range c.Eta {
			g.Eta = append(g.Eta, e.String())
		}
		d.Generators = append(d.Generators, g)
	}
	return d
}

// Decode reads a definition in the given format.
func Decode(data []byte, format Format) (*Definition, error) {
	var d Definition
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode yaml definition: %w", err)
		}
	case FormatTOML:
		meta, err := toml.Decode(string(data), &d)
		if err != nil {
			return nil, fmt.Errorf("decode toml definition: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decode toml definition: unknown key %q", undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("unsupported definition format %q", format)
	}
	return &d, nil
}

// Encode writes d in the given format.
func Encode(d *Definition, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(d)
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(d); err != nil {
			return nil, fmt.Errorf("encode toml definition: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported definition format %q", format)
}

// LoadFile reads a YAML or TOML definition file and builds the system.
func LoadFile(path string) (*System, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if info.Size() > MaxDefinitionSize {
		return nil, fmt.Errorf("load model: %s is %d bytes, limit is %d", path, info.Size(), MaxDefinitionSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	d, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	sys, err := d.System()
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return sys, nil
}
