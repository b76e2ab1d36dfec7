package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JianJiangKCL/HooRii/internal/catalog"
	"github.com/JianJiangKCL/HooRii/internal/config"
)

func init() {
	rootCmd.AddCommand(initCatalogCmd)
}

var initCatalogCmd = &cobra.Command{
	Use:   "init-catalog",
	Short: "Generate default catalog.yaml with comments",
	Long:  "Creates ~/.hoorii/catalog.yaml with the built-in device types.\nEdit this file to add devices, then point catalog_path at it in the config.",
	RunE:  runInitCatalog,
}

func runInitCatalog(cmd *cobra.Command, args []string) error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	path := filepath.Join(dir, "catalog.yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("catalog.yaml already exists at %s", path)
	}

	if err := os.WriteFile(path, []byte(catalog.DefaultCatalogYAML), 0644); err != nil {
		return fmt.Errorf("failed to write catalog.yaml: %w", err)
	}

	fmt.Printf("Created %s\n", path)
	return nil
}
