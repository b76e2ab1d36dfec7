package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"sync/atomic"
)

// Registry serves DeviceSpec lookups. The installed table is immutable and
// swapped as a whole on reload, so unlimited concurrent readers need no
// locking.
type Registry struct {
	table atomic.Pointer[specTable]
	path  string
}

type specTable struct {
	byRef map[string]*DeviceSpec
	types []string
	hash  string
}

func buildTable(cat *Catalog, hash string) *specTable {
	t := &specTable{
		byRef: make(map[string]*DeviceSpec),
		hash:  hash,
	}
	for typeID, spec := range cat.Devices {
		t.byRef[typeID] = spec
		for _, alias := range spec.Aliases {
			t.byRef[alias] = spec
		}
		t.types = append(t.types, typeID)
	}
	sort.Strings(t.types)
	return t
}

// Load reads, validates, and installs a catalog file. Fatal at startup on
// any defect — the registry refuses to come up partially populated.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, err
	}

	r := &Registry{path: path}
	r.table.Store(buildTable(cat, hashBytes(data)))
	return r, nil
}

// NewRegistry installs an already-parsed catalog. Used by tests and by
// callers embedding the default catalog.
func NewRegistry(cat *Catalog) *Registry {
	r := &Registry{}
	r.table.Store(buildTable(cat, ""))
	return r
}

// LoadDefault installs the embedded default catalog.
func LoadDefault() *Registry {
	cat, err := Parse([]byte(DefaultCatalogYAML))
	if err != nil {
		// The embedded catalog is part of the trusted build; a defect here
		// is a programming error, not bad input.
		panic(fmt.Sprintf("catalog: embedded default is malformed: %v", err))
	}
	r := &Registry{}
	r.table.Store(buildTable(cat, hashBytes([]byte(DefaultCatalogYAML))))
	return r
}

// Reload re-reads the catalog file and atomically swaps the table. On any
// failure the previous table stays installed untouched.
func (r *Registry) Reload() error {
	if r.path == "" {
		return fmt.Errorf("registry has no backing file")
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return err
	}
	r.table.Store(buildTable(cat, hashBytes(data)))
	return nil
}

// Lookup resolves a device type id or declared alias to its DeviceSpec.
func (r *Registry) Lookup(ref string) (*DeviceSpec, bool) {
	spec, ok := r.table.Load().byRef[ref]
	return spec, ok
}

// CommandsFor returns the command specs for a device reference, or nil if
// the reference does not resolve.
func (r *Registry) CommandsFor(ref string) []CommandSpec {
	spec, ok := r.Lookup(ref)
	if !ok {
		return nil
	}
	return spec.Commands
}

// Types returns the sorted device type ids of the installed catalog.
func (r *Registry) Types() []string {
	return r.table.Load().types
}

// Hash returns "sha256:<hex>" of the installed catalog's raw bytes, or ""
// for a registry built from a parsed catalog.
func (r *Registry) Hash() string {
	return r.table.Load().hash
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}
