package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"stagegate/internal/domain"
	"stagegate/internal/engine"
	"stagegate/internal/repo"
)

type WorkPackagePath struct {
	ID string `path:"id"`
}

func registerWorkPackages(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-workpackage",
		Method:        http.MethodPost,
		Path:          "/workpackages",
		Summary:       "Create work package",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateWorkPackageRequest `json:"body"`
	}) (*struct {
		Body WorkPackageResponse `json:"body"`
	}, error) {
		wp, err := e.CreateWorkPackage(ctx, input.Body.Title, input.Body.OwnerID, actorFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkPackageResponse `json:"body"`
		}{Body: workPackageResponse(wp)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-workpackages",
		Method:      http.MethodGet,
		Path:        "/workpackages",
		Summary:     "List work packages",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Status          string `query:"status" enum:",ideation,feasibility,scoping,scheduling,detailed_design,development,testing,deployed,completed,cancelled"`
		OwnerID         string `query:"owner_id"`
		IncludeInactive bool   `query:"include_inactive"`
		Limit           int    `query:"limit" minimum:"0" maximum:"200"`
		Cursor          string `query:"cursor"`
	}) (*struct {
		Body WorkPackageListResponse `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		filters := repo.WorkPackageFilters{
			Status:          domain.Status(input.Status),
			OwnerID:         input.OwnerID,
			IncludeInactive: input.IncludeInactive,
			Limit:           limit + 1,
		}
		if input.Cursor != "" {
			createdAt, id, ok := strings.Cut(input.Cursor, ",")
			if !ok {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", nil)
			}
			filters.CursorCreatedAt = createdAt
			filters.CursorID = id
		}
		items, err := e.Repo.ListWorkPackages(ctx, filters)
		if err != nil {
			return nil, handleError(err)
		}
		resp := WorkPackageListResponse{}
		if len(items) > limit {
			items = items[:limit]
			last := items[len(items)-1]
			resp.NextCursor = last.CreatedAt + "," + last.ID
		}
		ids := make([]string, 0, len(items))
		for _, wp := range items {
			ids = append(ids, wp.ID)
		}
		deployed, err := e.Repo.DeployedRecordsFor(ctx, ids)
		if err != nil {
			return nil, handleError(err)
		}
		resp.Items = mapWorkPackages(items, deployed)
		return &struct {
			Body WorkPackageListResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-workpackage",
		Method:      http.MethodGet,
		Path:        "/workpackages/{id}",
		Summary:     "Get work package with stage records",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *WorkPackagePath) (*struct {
		Body WorkPackageDetailResponse `json:"body"`
	}, error) {
		wp, err := e.Repo.GetWorkPackage(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		stages, err := loadStageRecords(ctx, e, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkPackageDetailResponse `json:"body"`
		}{Body: WorkPackageDetailResponse{
			WorkPackageResponse: workPackageResponse(wp),
			Stages:              stages,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "advance-workpackage",
		Method:      http.MethodPost,
		Path:        "/workpackages/{id}/advance",
		Summary:     "Advance work package to the next stage",
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnauthorized,
		},
	}, func(ctx context.Context, input *WorkPackagePath) (*struct {
		Body WorkPackageResponse `json:"body"`
	}, error) {
		wp, err := e.AdvanceToNextStage(ctx, input.ID, actorFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkPackageResponse `json:"body"`
		}{Body: workPackageResponse(wp)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-workpackage",
		Method:      http.MethodPost,
		Path:        "/workpackages/{id}/cancel",
		Summary:     "Cancel work package",
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnauthorized,
		},
	}, func(ctx context.Context, input *WorkPackagePath) (*struct {
		Body WorkPackageResponse `json:"body"`
	}, error) {
		wp, err := e.CancelWorkPackage(ctx, input.ID, actorFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkPackageResponse `json:"body"`
		}{Body: workPackageResponse(wp)}, nil
	})
}

func loadStageRecords(ctx context.Context, e engine.Engine, id string) (StageRecords, error) {
	var s StageRecords
	var err error
	if s.Ideation, err = e.Repo.GetIdeation(ctx, nil, id); err != nil {
		return s, err
	}
	if s.Feasibility, err = e.Repo.GetFeasibility(ctx, nil, id); err != nil {
		return s, err
	}
	if s.Scoping, err = e.Repo.GetScoping(ctx, nil, id); err != nil {
		return s, err
	}
	if s.Scheduling, err = e.Repo.GetScheduling(ctx, nil, id); err != nil {
		return s, err
	}
	if s.DetailedDesign, err = e.Repo.GetDetailedDesign(ctx, nil, id); err != nil {
		return s, err
	}
	if s.Development, err = e.Repo.GetDevelopment(ctx, nil, id); err != nil {
		return s, err
	}
	if s.Build, err = e.Repo.GetBuild(ctx, nil, id); err != nil {
		return s, err
	}
	if s.Testing, err = e.Repo.GetTesting(ctx, nil, id); err != nil {
		return s, err
	}
	if s.Deployed, err = e.Repo.GetDeployed(ctx, nil, id); err != nil {
		return s, err
	}
	return s, nil
}

func registerHistory(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-workpackage-history",
		Method:      http.MethodGet,
		Path:        "/workpackages/{id}/history",
		Summary:     "List work package history, oldest first",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		WorkPackagePath
		Limit int `query:"limit" minimum:"0" maximum:"500"`
	}) (*struct {
		Body HistoryListResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetWorkPackage(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListHistory(ctx, input.ID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		total, err := e.Repo.CountHistory(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.HistoryEntry{}
		}
		return &struct {
			Body HistoryListResponse `json:"body"`
		}{Body: HistoryListResponse{Items: items, Total: total}}, nil
	})
}
