// Package store persists list modules and their members.
package store

import (
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"molecule/internal/listmodule/models"
)

func parseMembers(raw []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(raw))
	for _, v := range raw {
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("corrupt list member %q", v)
		}
		out = append(out, common.HexToAddress(v))
	}
	slices.SortFunc(out, func(a, b common.Address) int { return a.Cmp(b) })
	return out, nil
}

func sortInfos(infos []models.ListInfo) {
	slices.SortFunc(infos, func(a, b models.ListInfo) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return a.Ref.Cmp(b.Ref)
	})
}
