// Package catalog loads and serves the declarative device-type catalog: which
// commands each device type supports, their parameter schemas, and the
// minimum trust required to drive them. The catalog is pure data — loads are
// all-or-nothing and the installed table is immutable, replaced as a whole
// on reload.
package catalog

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMalformedSpec is wrapped by every catalog validation failure. A catalog
// that fails validation is never installed, not even partially: a
// half-loaded catalog would silently under-validate commands.
var ErrMalformedSpec = errors.New("malformed device spec")

// Kind is the declared type of a command parameter.
type Kind string

const (
	KindInteger Kind = "integer"
	KindFloat   Kind = "float"
	KindBoolean Kind = "boolean"
	KindEnum    Kind = "enum"
)

func validKind(k Kind) bool {
	switch k {
	case KindInteger, KindFloat, KindBoolean, KindEnum:
		return true
	}
	return false
}

// Numeric reports whether the kind supports ranges and clamping.
func (k Kind) Numeric() bool {
	return k == KindInteger || k == KindFloat
}

// ParamSpec declares one command parameter.
//
// For numeric kinds, Range is [min, max]; absent means unconstrained.
// Clamping is defined only for bounded numeric kinds. Strict opts a bounded
// numeric parameter out of clamping: out-of-range values reject instead
// (safety-critical setpoints). Enum kinds always reject on out-of-set
// values. Default is required and must itself validate.
type ParamSpec struct {
	Name          string    `yaml:"name"`
	Kind          Kind      `yaml:"kind"`
	Range         []float64 `yaml:"range,omitempty"`
	AllowedValues []string  `yaml:"allowed_values,omitempty"`
	Default       any       `yaml:"default"`
	Strict        bool      `yaml:"strict,omitempty"`
}

// Bounded reports whether the parameter carries a numeric range.
func (p *ParamSpec) Bounded() bool {
	return p.Kind.Numeric() && len(p.Range) == 2
}

// Min returns the lower range bound. Only meaningful when Bounded.
func (p *ParamSpec) Min() float64 { return p.Range[0] }

// Max returns the upper range bound. Only meaningful when Bounded.
func (p *ParamSpec) Max() float64 { return p.Range[1] }

// Allowed reports whether v is in the enum's allowed set.
func (p *ParamSpec) Allowed(v string) bool {
	for _, a := range p.AllowedValues {
		if a == v {
			return true
		}
	}
	return false
}

// CommandSpec declares one command a device type supports, the parameters it
// takes, and which state fields a successful execution writes.
type CommandSpec struct {
	Name          string      `yaml:"name"`
	TrustModifier int         `yaml:"trust_modifier,omitempty"`
	Params        []ParamSpec `yaml:"params,omitempty"`
	StateFields   []string    `yaml:"state_fields"`
}

// Param returns the named ParamSpec, or nil.
func (c *CommandSpec) Param(name string) *ParamSpec {
	for i := range c.Params {
		if c.Params[i].Name == name {
			return &c.Params[i]
		}
	}
	return nil
}

// DeviceSpec declares a device type. Immutable after load; the registry owns
// all instances for the process lifetime.
type DeviceSpec struct {
	TypeID      string        `yaml:"-"`
	DisplayName string        `yaml:"display_name"`
	MinTrust    int           `yaml:"min_trust"`
	Aliases     []string      `yaml:"aliases,omitempty"`
	Commands    []CommandSpec `yaml:"commands"`
}

// Command returns the named CommandSpec, or nil.
func (d *DeviceSpec) Command(name string) *CommandSpec {
	for i := range d.Commands {
		if d.Commands[i].Name == name {
			return &d.Commands[i]
		}
	}
	return nil
}

// Catalog is the parsed device-type table, keyed by type id.
type Catalog struct {
	Devices map[string]*DeviceSpec `yaml:"devices"`
}

// Parse unmarshals and validates a catalog. Any defect rejects the whole
// load.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSpec, err)
	}
	if len(cat.Devices) == 0 {
		return nil, fmt.Errorf("%w: catalog declares no devices", ErrMalformedSpec)
	}

	seenRefs := map[string]string{}
	for typeID, spec := range cat.Devices {
		if spec == nil {
			return nil, fmt.Errorf("%w: device %q: empty spec", ErrMalformedSpec, typeID)
		}
		spec.TypeID = typeID
		if err := validateDevice(spec); err != nil {
			return nil, err
		}
		for _, ref := range append([]string{typeID}, spec.Aliases...) {
			if prev, dup := seenRefs[ref]; dup && prev != typeID {
				return nil, fmt.Errorf("%w: reference %q declared by both %q and %q",
					ErrMalformedSpec, ref, prev, typeID)
			}
			seenRefs[ref] = typeID
		}
	}
	return &cat, nil
}

func validateDevice(spec *DeviceSpec) error {
	if spec.MinTrust < 0 || spec.MinTrust > 100 {
		return fmt.Errorf("%w: device %q: min_trust %d outside [0,100]",
			ErrMalformedSpec, spec.TypeID, spec.MinTrust)
	}
	if len(spec.Commands) == 0 {
		return fmt.Errorf("%w: device %q: no commands", ErrMalformedSpec, spec.TypeID)
	}

	seen := map[string]bool{}
	for i := range spec.Commands {
		cmd := &spec.Commands[i]
		if cmd.Name == "" {
			return fmt.Errorf("%w: device %q: command with empty name", ErrMalformedSpec, spec.TypeID)
		}
		if seen[cmd.Name] {
			return fmt.Errorf("%w: device %q: duplicate command %q", ErrMalformedSpec, spec.TypeID, cmd.Name)
		}
		seen[cmd.Name] = true
		if len(cmd.StateFields) == 0 {
			return fmt.Errorf("%w: device %q: command %q declares no state_fields",
				ErrMalformedSpec, spec.TypeID, cmd.Name)
		}
		if err := validateParams(spec.TypeID, cmd); err != nil {
			return err
		}
	}
	return nil
}

func validateParams(typeID string, cmd *CommandSpec) error {
	seen := map[string]bool{}
	for i := range cmd.Params {
		p := &cmd.Params[i]
		where := fmt.Sprintf("device %q command %q param %q", typeID, cmd.Name, p.Name)

		if p.Name == "" {
			return fmt.Errorf("%w: device %q command %q: param with empty name",
				ErrMalformedSpec, typeID, cmd.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: %s: duplicate", ErrMalformedSpec, where)
		}
		seen[p.Name] = true

		if !validKind(p.Kind) {
			return fmt.Errorf("%w: %s: unknown kind %q", ErrMalformedSpec, where, p.Kind)
		}
		if len(p.Range) != 0 {
			if !p.Kind.Numeric() {
				return fmt.Errorf("%w: %s: range on non-numeric kind %q", ErrMalformedSpec, where, p.Kind)
			}
			if len(p.Range) != 2 {
				return fmt.Errorf("%w: %s: range must be [min, max]", ErrMalformedSpec, where)
			}
			if p.Range[0] > p.Range[1] {
				return fmt.Errorf("%w: %s: range min %v > max %v",
					ErrMalformedSpec, where, p.Range[0], p.Range[1])
			}
		}
		if p.Kind == KindEnum && len(p.AllowedValues) == 0 {
			return fmt.Errorf("%w: %s: enum without allowed_values", ErrMalformedSpec, where)
		}
		if p.Strict && !p.Bounded() {
			return fmt.Errorf("%w: %s: strict requires a bounded numeric range", ErrMalformedSpec, where)
		}
		if p.Default == nil {
			return fmt.Errorf("%w: %s: default is required", ErrMalformedSpec, where)
		}
		if err := validateDefault(p); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedSpec, where, err)
		}
	}
	return nil
}

// validateDefault checks that the declared default would itself pass
// validation, so default substitution can never produce an invalid command.
func validateDefault(p *ParamSpec) error {
	switch p.Kind {
	case KindInteger, KindFloat:
		f, ok := numericValue(p.Default)
		if !ok {
			return fmt.Errorf("default %v is not numeric", p.Default)
		}
		if p.Bounded() && (f < p.Min() || f > p.Max()) {
			return fmt.Errorf("default %v outside range [%v, %v]", p.Default, p.Min(), p.Max())
		}
	case KindBoolean:
		if _, ok := p.Default.(bool); !ok {
			return fmt.Errorf("default %v is not a boolean", p.Default)
		}
	case KindEnum:
		s, ok := p.Default.(string)
		if !ok || !p.Allowed(s) {
			return fmt.Errorf("default %v not in allowed_values", p.Default)
		}
	}
	return nil
}

// numericValue extracts a float from the value kinds the YAML decoder
// produces for numbers.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
