// Package bootstrap loads a YAML seed describing lists, expression modules,
// policy records and a default selection, and applies it to a running
// registry. The same file drives the server at startup and moleculectl.
package bootstrap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"molecule/internal/policy/models"
	"molecule/pkg/domain"
	dErrors "molecule/pkg/domain-errors"
)

// Seed is the top-level seed document.
type Seed struct {
	Aggregation string           `yaml:"aggregation,omitempty"`
	Lists       []ListSeed       `yaml:"lists,omitempty"`
	Expressions []ExpressionSeed `yaml:"expressions,omitempty"`
	Policies    []PolicySeed     `yaml:"policies,omitempty"`
	Selection   []uint64         `yaml:"selection,omitempty"`
}

// ListSeed deploys an address list at Ref.
type ListSeed struct {
	Ref     string   `yaml:"ref"`
	Name    string   `yaml:"name"`
	Members []string `yaml:"members,omitempty"`
}

// ExpressionSeed deploys a CEL module at Ref.
type ExpressionSeed struct {
	Ref  string `yaml:"ref"`
	Expr string `yaml:"expr"`
}

type PolicySeed struct {
	ID           uint64 `yaml:"id"`
	Module       string `yaml:"module"`
	AllowList    bool   `yaml:"allow_list"`
	Name         string `yaml:"name,omitempty"`
	ReverseLogic bool   `yaml:"reverse_logic,omitempty"`
	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled,omitempty"`
}

// IsEnabled reports the effective status.
func (p PolicySeed) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Load reads and validates the seed at path.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load seed %q: %w", path, err)
	}
	seed, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse seed %q: %w", path, err)
	}
	return seed, nil
}

// Parse decodes a seed document, rejecting unknown keys, and validates it.
// An empty document yields an empty seed.
func Parse(r io.Reader) (*Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed Seed
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid seed document")
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate checks the seed is self-consistent: addresses parse, module refs
// are unique, policy ids are positive and unique, and the selection names
// declared policies. Policies may reference modules not declared here.
func (s *Seed) Validate() error {
	refs := make(map[common.Address]string)
	claim := func(raw, kind string) error {
		ref, err := domain.ParseAddress(raw)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, kind+" ref")
		}
		if ref == (common.Address{}) {
			return dErrors.Newf(dErrors.CodeValidation, "%s ref must not be the zero address", kind)
		}
		if prev, ok := refs[ref]; ok {
			return dErrors.Newf(dErrors.CodeValidation, "%s ref %s already used by a %s", kind, ref.Hex(), prev)
		}
		refs[ref] = kind
		return nil
	}

	for _, l := range s.Lists {
		if err := claim(l.Ref, "list"); err != nil {
			return err
		}
		if _, err := domain.ParseAddresses(l.Members); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "list "+l.Ref+" members")
		}
	}
	for _, e := range s.Expressions {
		if err := claim(e.Ref, "expression"); err != nil {
			return err
		}
		if strings.TrimSpace(e.Expr) == "" {
			return dErrors.Newf(dErrors.CodeValidation, "expression %s is empty", e.Ref)
		}
	}

	ids := make(map[domain.PolicyID]struct{}, len(s.Policies))
	for _, p := range s.Policies {
		req, err := p.request()
		if err != nil {
			return err
		}
		if _, dup := ids[req.ID]; dup {
			return dErrors.Newf(dErrors.CodeDuplicateID, "policy id %s declared twice", req.ID)
		}
		ids[req.ID] = struct{}{}
	}
	for _, raw := range s.Selection {
		if _, ok := ids[domain.PolicyID(raw)]; !ok {
			return models.NewLogicIDNotFound(domain.PolicyID(raw))
		}
	}
	return nil
}

// SelectionIDs returns the declared default selection.
func (s *Seed) SelectionIDs() []domain.PolicyID {
	out := make([]domain.PolicyID, 0, len(s.Selection))
	for _, raw := range s.Selection {
		out = append(out, domain.PolicyID(raw))
	}
	return out
}

func (p PolicySeed) request() (models.AddLogicRequest, error) {
	id, err := domain.NewPolicyID(p.ID)
	if err != nil {
		return models.AddLogicRequest{}, dErrors.Wrap(err, dErrors.CodeValidation, "policy id")
	}
	ref, err := domain.ParseAddress(p.Module)
	if err != nil {
		return models.AddLogicRequest{}, dErrors.Wrap(err, dErrors.CodeValidation, "policy "+id.String()+" module")
	}
	if len(p.Name) > models.MaxNameLen {
		return models.AddLogicRequest{}, dErrors.Newf(dErrors.CodeValidation, "policy %s name is too long", id)
	}
	return models.AddLogicRequest{
		ID:           id,
		ModuleRef:    ref,
		IsAllowList:  p.AllowList,
		Name:         p.Name,
		ReverseLogic: p.ReverseLogic,
		Disabled:     !p.IsEnabled(),
	}, nil
}
