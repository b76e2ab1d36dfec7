// Package command turns an untrusted parameter bag from a model intent into
// a typed, range-checked ValidatedCommand against a device's capability
// schema. Validation is purely functional and a fixed point: re-validating a
// validated command's parameters yields the identical result.
package command

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/JianJiangKCL/HooRii/internal/catalog"
	"github.com/JianJiangKCL/HooRii/internal/model"
)

// UnknownCommandError is returned when the requested command is not declared
// for the device type.
type UnknownCommandError struct {
	Device  string
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("device %q does not support command %q", e.Device, e.Command)
}

// InvalidParamError is returned when a supplied value cannot be coerced to
// the declared kind, is outside a strict range, or names an enum value
// outside the allowed set.
type InvalidParamError struct {
	Param  string
	Value  any
	Reason string
}

func (e *InvalidParamError) Error() string {
	return fmt.Sprintf("parameter %q: %s (got %v)", e.Param, e.Reason, e.Value)
}

// Result is a validated command plus the diagnostic side channel of
// undeclared parameters that were dropped.
type Result struct {
	Command model.ValidatedCommand
	Dropped []string
}

// Validate checks commandName and raw against the device's schema.
//
// Per declared parameter: a supplied value is coerced to the declared kind
// (coercion failure rejects); out-of-range bounded numerics clamp to the
// nearest bound unless the parameter is strict; out-of-set enums reject; an
// omitted value takes the declared default. Undeclared parameters are
// dropped and recorded in Result.Dropped.
//
// spec must come from the catalog registry; a nil spec is a contract
// violation inside the trusted boundary and panics.
func Validate(spec *catalog.DeviceSpec, deviceID, commandName string, raw map[string]any) (*Result, error) {
	if spec == nil {
		panic("command: Validate called with nil DeviceSpec")
	}

	cmd := spec.Command(commandName)
	if cmd == nil {
		return nil, &UnknownCommandError{Device: spec.TypeID, Command: commandName}
	}

	params := make(map[string]any, len(cmd.Params))
	for i := range cmd.Params {
		p := &cmd.Params[i]
		v, supplied := raw[p.Name]
		if !supplied {
			params[p.Name] = normalizeDefault(p)
			continue
		}
		coerced, err := coerce(p, v)
		if err != nil {
			return nil, err
		}
		params[p.Name] = coerced
	}

	var dropped []string
	for name := range raw {
		if cmd.Param(name) == nil {
			dropped = append(dropped, name)
		}
	}
	sort.Strings(dropped)

	return &Result{
		Command: model.ValidatedCommand{
			DeviceID:    deviceID,
			CommandName: commandName,
			Params:      params,
		},
		Dropped: dropped,
	}, nil
}

// coerce converts v to the parameter's declared kind and applies range or
// set constraints.
func coerce(p *catalog.ParamSpec, v any) (any, error) {
	switch p.Kind {
	case catalog.KindInteger:
		f, ok := numeric(v)
		if !ok {
			return nil, &InvalidParamError{Param: p.Name, Value: v, Reason: "expected an integer"}
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &InvalidParamError{Param: p.Name, Value: v, Reason: "not a finite number"}
		}
		return boundInt(p, f, v)

	case catalog.KindFloat:
		f, ok := numeric(v)
		if !ok {
			return nil, &InvalidParamError{Param: p.Name, Value: v, Reason: "expected a number"}
		}
		return boundFloat(p, f, v)

	case catalog.KindBoolean:
		b, ok := boolean(v)
		if !ok {
			return nil, &InvalidParamError{Param: p.Name, Value: v, Reason: "expected a boolean"}
		}
		return b, nil

	case catalog.KindEnum:
		s, ok := v.(string)
		if !ok {
			return nil, &InvalidParamError{Param: p.Name, Value: v, Reason: "expected a string"}
		}
		if !p.Allowed(s) {
			return nil, &InvalidParamError{
				Param:  p.Name,
				Value:  v,
				Reason: fmt.Sprintf("not one of [%s]", strings.Join(p.AllowedValues, ", ")),
			}
		}
		return s, nil
	}

	// Kinds are validated at catalog load; reaching here means the spec did
	// not come from the registry.
	panic(fmt.Sprintf("command: unknown param kind %q", p.Kind))
}

// boundInt range-checks in the float domain before converting. A float→int
// conversion of a magnitude beyond int64 wraps, which would clamp a huge
// positive input to the min bound instead of the nearest one.
func boundInt(p *catalog.ParamSpec, f float64, orig any) (any, error) {
	if !p.Bounded() {
		return int(math.Round(f)), nil
	}
	lo, hi := int(p.Min()), int(p.Max())
	if f >= p.Min() && f <= p.Max() {
		return int(math.Round(f)), nil
	}
	if p.Strict {
		return nil, &InvalidParamError{
			Param:  p.Name,
			Value:  orig,
			Reason: fmt.Sprintf("outside strict range [%d, %d]", lo, hi),
		}
	}
	// Clamp to the nearest bound: the user gets the closest valid effect
	// for analog values like brightness or position.
	if f < p.Min() {
		return lo, nil
	}
	return hi, nil
}

func boundFloat(p *catalog.ParamSpec, f float64, orig any) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &InvalidParamError{Param: p.Name, Value: orig, Reason: "not a finite number"}
	}
	if !p.Bounded() {
		return f, nil
	}
	if f >= p.Min() && f <= p.Max() {
		return f, nil
	}
	if p.Strict {
		return nil, &InvalidParamError{
			Param:  p.Name,
			Value:  orig,
			Reason: fmt.Sprintf("outside strict range [%v, %v]", p.Min(), p.Max()),
		}
	}
	if f < p.Min() {
		return p.Min(), nil
	}
	return p.Max(), nil
}

// normalizeDefault converts the YAML-decoded default into the same
// representation coercion produces, preserving the fixed-point property for
// defaulted parameters.
func normalizeDefault(p *catalog.ParamSpec) any {
	switch p.Kind {
	case catalog.KindInteger:
		switch n := p.Default.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(math.Round(n))
		}
	case catalog.KindFloat:
		switch n := p.Default.(type) {
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case float64:
			return n
		}
	}
	return p.Default
}

// numeric accepts JSON/YAML number representations and numeric strings.
// Model output frequently quotes numbers ("150") — rejecting those would
// fail turns the reference system handled.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func boolean(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "on", "yes", "1":
			return true, true
		case "false", "off", "no", "0":
			return false, true
		}
	case float64:
		if b == 0 {
			return false, true
		}
		if b == 1 {
			return true, true
		}
	case int:
		if b == 0 {
			return false, true
		}
		if b == 1 {
			return true, true
		}
	}
	return false, false
}
