package bootstrap

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"molecule/internal/listmodule"
	"molecule/internal/logic"
	"molecule/internal/logic/cel"
	"molecule/internal/policy/models"
	"molecule/pkg/domain"
	dErrors "molecule/pkg/domain-errors"
)

// ListService deploys and fills list modules.
type ListService interface {
	CreateAt(ctx context.Context, ref common.Address, name string) (*listmodule.List, error)
	Get(ref common.Address) (*listmodule.List, error)
	AddToList(ctx context.Context, ref common.Address, addrs []common.Address) error
}

type Deployer interface {
	Deploy(ref common.Address, m logic.Module) error
}

type Registry interface {
	Get(ctx context.Context, id domain.PolicyID) (*models.Record, error)
	AddLogicBatch(ctx context.Context, reqs []models.AddLogicRequest) ([]*models.Record, error)
}

// Summary counts what Apply changed.
type Summary struct {
	ListsCreated      int
	MembersAdded      int
	ExpressionsLoaded int
	PoliciesAdded     int
	PoliciesSkipped   int
}

// Apply deploys the seed's modules and registers its policies. Lists and
// policies that already exist (restored from a persistent store) are reused
// rather than rejected, so restarting with the same seed is safe. Seeded
// members are added to existing lists. Expression modules live only in memory
// and are always deployed.
func Apply(ctx context.Context, seed *Seed, lists ListService, deployer Deployer, registry Registry, logger *slog.Logger) (Summary, error) {
	var sum Summary

	for _, l := range seed.Lists {
		ref := common.HexToAddress(l.Ref)
		if _, err := lists.Get(ref); err != nil {
			if !dErrors.HasCode(err, dErrors.CodeNotFound) {
				return sum, err
			}
			if _, err := lists.CreateAt(ctx, ref, l.Name); err != nil {
				return sum, err
			}
			sum.ListsCreated++
		}
		members, err := domain.ParseAddresses(l.Members)
		if err != nil {
			return sum, err
		}
		if len(members) > 0 {
			if err := lists.AddToList(ctx, ref, members); err != nil {
				return sum, err
			}
			sum.MembersAdded += len(members)
		}
	}

	for _, e := range seed.Expressions {
		module, err := cel.New(e.Expr)
		if err != nil {
			return sum, dErrors.Wrap(err, dErrors.CodeValidation, "expression "+e.Ref)
		}
		if err := deployer.Deploy(common.HexToAddress(e.Ref), module); err != nil {
			return sum, err
		}
		sum.ExpressionsLoaded++
	}

	// Disabled seed policies are registered disabled in the same batch, so
	// they never take part in a check.
	var pending []models.AddLogicRequest
	for _, p := range seed.Policies {
		req, err := p.request()
		if err != nil {
			return sum, err
		}
		if _, err := registry.Get(ctx, req.ID); err == nil {
			sum.PoliciesSkipped++
			if logger != nil {
				logger.InfoContext(ctx, "seed policy already registered", "policy_id", req.ID.String())
			}
			continue
		} else if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return sum, err
		}
		pending = append(pending, req)
	}
	if _, err := registry.AddLogicBatch(ctx, pending); err != nil {
		return sum, err
	}
	sum.PoliciesAdded = len(pending)

	if logger != nil {
		logger.InfoContext(ctx, "seed applied",
			"lists_created", sum.ListsCreated,
			"members_added", sum.MembersAdded,
			"expressions_loaded", sum.ExpressionsLoaded,
			"policies_added", sum.PoliciesAdded,
			"policies_skipped", sum.PoliciesSkipped,
		)
	}
	return sum, nil
}
