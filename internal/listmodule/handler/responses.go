package handler

import (
	"time"

	"molecule/internal/listmodule/models"
)

type ListResponse struct {
	Ref       string    `json:"ref"`
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

type MembershipResponse struct {
	List    string `json:"list"`
	Address string `json:"address"`
	Member  bool   `json:"member"`
}

func toListResponse(info models.ListInfo, size int) ListResponse {
	return ListResponse{
		Ref:       info.Ref.Hex(),
		Name:      info.Name,
		Size:      size,
		CreatedAt: info.CreatedAt,
	}
}
