// Package trust authorizes device actions against a user's trust score.
//
// The decision is evaluated before parameter validation, so a denied user
// never pays the validation cost and the denial reason does not leak whether
// the requested parameters would have been valid.
package trust

import (
	"fmt"

	"github.com/JianJiangKCL/HooRii/internal/catalog"
	"github.com/JianJiangKCL/HooRii/internal/model"
)

// RequiredFor computes the trust threshold for a command on a device:
// the device baseline plus the command's additive modifier, never below 0.
// An undeclared command uses the baseline alone — authorization runs before
// validation, so the command name is still unverified here.
func RequiredFor(spec *catalog.DeviceSpec, commandName string) int {
	required := spec.MinTrust
	if cmd := spec.Command(commandName); cmd != nil {
		required += cmd.TrustModifier
	}
	if required < 0 {
		required = 0
	}
	return required
}

// Decide produces a fresh TrustDecision for one command attempt. Same inputs
// always produce the same decision: no hidden state, no randomness. Decisions
// are never cached across turns — the trust score may change between them.
func Decide(actual int, spec *catalog.DeviceSpec, commandName string) model.TrustDecision {
	if spec == nil {
		panic("trust: Decide called with nil DeviceSpec")
	}

	required := RequiredFor(spec, commandName)
	d := model.TrustDecision{
		RequiredTrust: required,
		ActualTrust:   actual,
		Allowed:       actual >= required,
	}
	if d.Allowed {
		d.Reason = fmt.Sprintf("trust %d meets required %d for %s.%s",
			actual, required, spec.TypeID, commandName)
	} else {
		d.Reason = fmt.Sprintf("trust %d below required %d for %s.%s",
			actual, required, spec.TypeID, commandName)
	}
	return d
}
