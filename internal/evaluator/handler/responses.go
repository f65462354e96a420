package handler

import (
	"time"

	"molecule/internal/evaluator"
	"molecule/internal/selection"
	"molecule/pkg/domain"
)

type SessionResponse struct {
	ID        string   `json:"id"`
	PolicyIDs []uint64 `json:"policy_ids"`
}

type PolicyOutcomeResponse struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	Module       string `json:"module"`
	AllowList    bool   `json:"allow_list"`
	ReverseLogic bool   `json:"reverse_logic"`
	Verdict      bool   `json:"verdict"`
	Status       string `json:"status"`
}

type CheckResponse struct {
	Address     string                  `json:"address"`
	Passed      bool                    `json:"passed"`
	Aggregation string                  `json:"aggregation"`
	Policies    []PolicyOutcomeResponse `json:"policies"`
	EvaluatedAt time.Time               `json:"evaluated_at"`
}

func toSessionResponse(id domain.SessionID, sel selection.Selection) SessionResponse {
	ids := sel.IDs()
	out := SessionResponse{ID: id.String(), PolicyIDs: make([]uint64, 0, len(ids))}
	for _, pid := range ids {
		out.PolicyIDs = append(out.PolicyIDs, uint64(pid))
	}
	return out
}

func toCheckResponse(r *evaluator.Result) CheckResponse {
	out := CheckResponse{
		Address:     r.Address.Hex(),
		Passed:      r.Passed,
		Aggregation: r.Aggregation,
		Policies:    make([]PolicyOutcomeResponse, 0, len(r.Policies)),
		EvaluatedAt: r.EvaluatedAt,
	}
	for _, p := range r.Policies {
		out.Policies = append(out.Policies, PolicyOutcomeResponse{
			ID:           uint64(p.ID),
			Name:         p.Name,
			Module:       p.ModuleRef.Hex(),
			AllowList:    p.AllowList,
			ReverseLogic: p.ReverseLogic,
			Verdict:      p.Verdict,
			Status:       string(p.Status),
		})
	}
	return out
}
