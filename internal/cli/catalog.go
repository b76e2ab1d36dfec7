package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JianJiangKCL/HooRii/internal/catalog"
	"github.com/JianJiangKCL/HooRii/internal/trust"
)

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogShowCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Device catalog operations",
	Long:  "Commands for validating and inspecting the device-type catalog.",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a catalog YAML file",
	Long:  "Parses and validates the catalog file. Exits 0 if valid, 1 if not.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogValidate,
}

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the installed catalog",
	Long:  "Prints every device type with its trust thresholds, aliases, and commands.",
	RunE:  runCatalogShow,
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	registry, err := catalog.Load(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK: %d device types (%s)\n", len(registry.Types()), registry.Hash())
	return nil
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("catalog %s\n\n", a.registry.Hash())
	for _, typeID := range a.registry.Types() {
		spec, ok := a.registry.Lookup(typeID)
		if !ok {
			continue
		}
		fmt.Printf("%s (%s), min trust %d\n", typeID, spec.DisplayName, spec.MinTrust)
		if len(spec.Aliases) > 0 {
			fmt.Printf("  aliases: %s\n", strings.Join(spec.Aliases, ", "))
		}
		for i := range spec.Commands {
			c := &spec.Commands[i]
			fmt.Printf("  %-16s trust %d", c.Name, trust.RequiredFor(spec, c.Name))
			if len(c.Params) > 0 {
				parts := make([]string, len(c.Params))
				for j := range c.Params {
					parts[j] = describeParam(&c.Params[j])
				}
				fmt.Printf("  (%s)", strings.Join(parts, ", "))
			}
			fmt.Println()
		}
		fmt.Println()
	}
	return nil
}

func describeParam(p *catalog.ParamSpec) string {
	switch {
	case p.Kind == catalog.KindEnum:
		return fmt.Sprintf("%s: %s", p.Name, strings.Join(p.AllowedValues, "|"))
	case p.Bounded():
		s := fmt.Sprintf("%s: %s %g..%g", p.Name, p.Kind, p.Min(), p.Max())
		if p.Strict {
			s += " strict"
		}
		return s
	default:
		return fmt.Sprintf("%s: %s", p.Name, p.Kind)
	}
}
