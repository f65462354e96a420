// Package logic defines the capability every verification module exposes and
// the directory that maps deployed module addresses to their handles.
package logic

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"molecule/pkg/domain"
	dErrors "molecule/pkg/domain-errors"
)

// Module answers a yes/no question about an address. Implementations must be
// total and side-effect free: the same state and address give the same answer.
type Module interface {
	Verdict(addr common.Address) bool
}

// Func adapts a plain function to Module.
type Func func(addr common.Address) bool

func (f Func) Verdict(addr common.Address) bool {
	return f(addr)
}

// Directory holds deployed modules keyed by their address.
type Directory struct {
	mu      sync.RWMutex
	modules map[common.Address]Module
}

func NewDirectory() *Directory {
	return &Directory{modules: make(map[common.Address]Module)}
}

// Deploy registers m under ref. Refs are never reused.
func (d *Directory) Deploy(ref common.Address, m Module) error {
	if m == nil {
		return dErrors.New(dErrors.CodeValidation, "module is required")
	}
	if ref == (common.Address{}) {
		return dErrors.New(dErrors.CodeValidation, "module address is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.modules[ref]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "module already deployed at %s", ref.Hex())
	}
	d.modules[ref] = m
	return nil
}

// DeployNew registers m under a freshly derived address and returns it.
func (d *Directory) DeployNew(m Module) (common.Address, error) {
	ref := domain.NewModuleRef()
	if err := d.Deploy(ref, m); err != nil {
		return common.Address{}, err
	}
	return ref, nil
}

func (d *Directory) Lookup(ref common.Address) (Module, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.modules[ref]
	return m, ok
}

// Remove undeploys ref. Records still pointing at it fail resolution on reload.
func (d *Directory) Remove(ref common.Address) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.modules[ref]; !ok {
		return false
	}
	delete(d.modules, ref)
	return true
}

// Refs returns the deployed addresses in byte order.
func (d *Directory) Refs() []common.Address {
	d.mu.RLock()
	refs := make([]common.Address, 0, len(d.modules))
	for ref := range d.modules {
		refs = append(refs, ref)
	}
	d.mu.RUnlock()
	sort.Slice(refs, func(i, j int) bool { return refs[i].Cmp(refs[j]) < 0 })
	return refs
}
