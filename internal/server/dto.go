package server

import (
	"stagegate/internal/domain"
)

type CreateWorkPackageRequest struct {
	Title   string `json:"title" example:"Replace VPN concentrator"`
	OwnerID string `json:"owner_id,omitempty"`
}

type WorkPackageResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	OwnerID   string `json:"owner_id,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func workPackageResponse(wp domain.WorkPackage) WorkPackageResponse {
	return WorkPackageResponse{
		ID:        wp.ID,
		Title:     wp.Title,
		OwnerID:   wp.OwnerID,
		Status:    string(wp.Status),
		CreatedAt: wp.CreatedAt,
		UpdatedAt: wp.UpdatedAt,
	}
}

// WorkPackageListItem embeds the deployed stage record so list consumers can
// see rollout state without a per-item detail fetch.
type WorkPackageListItem struct {
	WorkPackageResponse
	Deployment domain.Deployed `json:"deployment"`
}

func mapWorkPackages(items []domain.WorkPackage, deployed map[string]domain.Deployed) []WorkPackageListItem {
	out := make([]WorkPackageListItem, 0, len(items))
	for _, wp := range items {
		out = append(out, WorkPackageListItem{
			WorkPackageResponse: workPackageResponse(wp),
			Deployment:          deployed[wp.ID],
		})
	}
	return out
}

type WorkPackageListResponse struct {
	Items      []WorkPackageListItem `json:"items"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

// StageRecords bundles every stage record of one work package. Records exist
// from creation, so none of these are ever absent.
type StageRecords struct {
	Ideation       domain.Ideation       `json:"ideation"`
	Feasibility    domain.Feasibility    `json:"feasibility"`
	Scoping        domain.Scoping        `json:"scoping"`
	Scheduling     domain.Scheduling     `json:"scheduling"`
	DetailedDesign domain.DetailedDesign `json:"detailed_design"`
	Development    domain.Development    `json:"development"`
	Build          domain.Build          `json:"build"`
	Testing        domain.Testing        `json:"testing"`
	Deployed       domain.Deployed       `json:"deployed"`
}

type WorkPackageDetailResponse struct {
	WorkPackageResponse
	Stages StageRecords `json:"stages"`
}

type HistoryListResponse struct {
	Items []domain.HistoryEntry `json:"items"`
	Total int                   `json:"total"`
}

type RejectFeasibilityRequest struct {
	Reason string `json:"reason"`
}

type RequestUATRequest struct {
	UATTesterID string `json:"uat_tester_id"`
}

type RuleRequest struct {
	EventKey   string               `json:"event_key"`
	Stage      string               `json:"stage,omitempty"`
	Recipients domain.RecipientSpec `json:"recipients"`
	Active     *bool                `json:"active,omitempty"`
}

type UserRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type RoleRequest struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type CreateAPIKeyRequest struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name,omitempty"`
}

// CreateAPIKeyResponse carries the plaintext key exactly once.
type CreateAPIKeyResponse struct {
	domain.APIKey
	Key string `json:"key"`
}
