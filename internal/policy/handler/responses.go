package handler

import (
	"time"

	"molecule/internal/policy/models"
)

type PolicyResponse struct {
	ID           uint64    `json:"id"`
	Module       string    `json:"module"`
	AllowList    bool      `json:"allow_list"`
	Name         string    `json:"name"`
	ReverseLogic bool      `json:"reverse_logic"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PolicyListResponse struct {
	Policies []PolicyResponse `json:"policies"`
}

func toPolicyResponse(r *models.Record) PolicyResponse {
	return PolicyResponse{
		ID:           uint64(r.ID),
		Module:       r.ModuleRef.Hex(),
		AllowList:    r.IsAllowList,
		Name:         r.Name,
		ReverseLogic: r.ReverseLogic,
		Enabled:      r.Enabled,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toPolicyListResponse(records []*models.Record) PolicyListResponse {
	out := PolicyListResponse{Policies: make([]PolicyResponse, 0, len(records))}
	for _, r := range records {
		out.Policies = append(out.Policies, toPolicyResponse(r))
	}
	return out
}
