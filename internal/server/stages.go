package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"stagegate/internal/domain"
	"stagegate/internal/engine"
)

var stageActionErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusUnprocessableEntity,
}

func registerStageForms(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "update-ideation",
		Method:      http.MethodPatch,
		Path:        "/workpackages/{id}/ideation",
		Summary:     "Update ideation details",
		Errors:      stageActionErrors,
	}, func(ctx context.Context, input *struct {
		WorkPackagePath
		Body struct {
			Summary      *string `json:"summary,omitempty"`
			BusinessNeed *string `json:"business_need,omitempty"`
			RaisedBy     *string `json:"raised_by,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.Ideation `json:"body"`
	}, error) {
		rec, err := e.SaveIdeation(ctx, input.ID, actorFromContext(ctx), engine.IdeationForm{
			Summary:      input.Body.Summary,
			BusinessNeed: input.Body.BusinessNeed,
			RaisedBy:     input.Body.RaisedBy,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Ideation `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-feasibility",
		Method:      http.MethodPatch,
		Path:        "/workpackages/{id}/feasibility",
		Summary:     "Update feasibility assessment",
		Errors:      stageActionErrors,
	}, func(ctx context.Context, input *struct {
		WorkPackagePath
		Body struct {
			AssessedBy                *string `json:"assessed_by,omitempty"`
			DateAssessed              *string `json:"date_assessed,omitempty"`
			TechnicalCredence         *string `json:"technical_credence,omitempty"`
			CostBenefitCase           *string `json:"cost_benefit_case,omitempty"`
			DependenciesPrerequisites *string `json:"dependencies_prerequisites,omitempty"`
			AlternativeProposal       *string `json:"alternative_proposal,omitempty"`
			ExistingSolutionStatus    *string `json:"existing_solution_status,omitempty" enum:",yes,no,partial"`
			ExistingSolutionNotes     *string `json:"existing_solution_notes,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.Feasibility `json:"body"`
	}, error) {
		rec, err := e.SaveFeasibility(ctx, input.ID, actorFromContext(ctx), engine.FeasibilityForm{
			AssessedBy:                input.Body.AssessedBy,
			DateAssessed:              input.Body.DateAssessed,
			TechnicalCredence:         input.Body.TechnicalCredence,
			CostBenefitCase:           input.Body.CostBenefitCase,
			DependenciesPrerequisites: input.Body.DependenciesPrerequisites,
			AlternativeProposal:       input.Body.AlternativeProposal,
			ExistingSolutionStatus:    input.Body.ExistingSolutionStatus,
			ExistingSolutionNotes:     input.Body.ExistingSolutionNotes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Feasibility `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-scoping",
		Method:      http.MethodPatch,
		Path:        "/workpackages/{id}/scoping",
		Summary:     "Update scoping assessment",
		Errors:      stageActionErrors,
	}, func(ctx context.Context, input *struct {
		WorkPackagePath
		Body struct {
			AssessedBy     *string   `json:"assessed_by,omitempty"`
			EffortScale    *string   `json:"effort_scale,omitempty" enum:",small,medium,large,extra_large"`
			InScope        *string   `json:"in_scope,omitempty"`
			OutOfScope     *string   `json:"out_of_scope,omitempty"`
			Assumptions    *string   `json:"assumptions,omitempty"`
			RequiredSkills *[]string `json:"required_skills,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.Scoping `json:"body"`
	}, error) {
		rec, err := e.SaveScoping(ctx, input.ID, actorFromContext(ctx), engine.ScopingForm{
			AssessedBy:     input.Body.AssessedBy,
			EffortScale:    input.Body.EffortScale,
			InScope:        input.Body.InScope,
			OutOfScope:     input.Body.OutOfScope,
			Assumptions:    input.Body.Assumptions,
			RequiredSkills: input.Body.RequiredSkills,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Scoping `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-scheduling",
		Method:      http.MethodPatch,
		Path:        "/workpackages/{id}/scheduling",
		Summary:     "Update scheduling plan",
		Errors:      stageActionErrors,
	}, func(ctx context.Context, input *struct {
		WorkPackagePath
		Body struct {
			KeySkills       *string `json:"key_skills,omitempty"`
			Priority        *string `json:"priority,omitempty" enum:",low,medium,high,critical"`
			AssigneeID      *string `json:"assignee_id,omitempty"`
			StartDate       *string `json:"start_date,omitempty"`
			CompletionDate  *string `json:"completion_date,omitempty"`
			ChangeBoardDate *string `json:"change_board_date,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.Scheduling `json:"body"`
	}, error) {
		rec, err := e.SaveScheduling(ctx, input.ID, actorFromContext(ctx), engine.SchedulingForm{
			KeySkills:       input.Body.KeySkills,
			Priority:        input.Body.Priority,
			AssigneeID:      input.Body.AssigneeID,
			StartDate:       input.Body.StartDate,
			CompletionDate:  input.Body.CompletionDate,
			ChangeBoardDate: input.Body.ChangeBoardDate,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Scheduling `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-detailed-design",
		Method:      http.MethodPatch,
		Path:        "/workpackages/{id}/detailed-design",
		Summary:     "Update detailed design",
		Errors:      stageActionErrors,
	}, func(ctx context.Context, input *struct {
		WorkPackagePath
		Body struct {
			DesignedBy    *string `json:"designed_by,omitempty"`
			DesignSummary *string `json:"design_summary,omitempty"`
			DocumentURL   *string `json:"document_url,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.DetailedDesign `json:"body"`
	}, error) {
		rec, err := e.SaveDetailedDesign(ctx, input.ID, actorFromContext(ctx), engine.DetailedDesignForm{
			DesignedBy:    input.Body.DesignedBy,
			DesignSummary: input.Body.DesignSummary,
			DocumentURL:   input.Body.DocumentURL,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DetailedDesign `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-development",
		Method:      http.MethodPatch,
		Path:        "/workpackages/{id}/development",
		Summary:     "Update development details",
		Errors:      stageActionErrors,
	}, func(ctx context.Context, input *struct {
		WorkPackagePath
		Body struct {
			LeadDeveloper *string `json:"lead_developer,omitempty"`
			RepositoryURL *string `json:"repository_url,omitempty"`
			Notes         *string `json:"notes,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.Development `json:"body"`
	}, error) {
		rec, err := e.SaveDevelopment(ctx, input.ID, actorFromContext(ctx), engine.DevelopmentForm{
			LeadDeveloper: input.Body.LeadDeveloper,
			RepositoryURL: input.Body.RepositoryURL,
			Notes:         input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Development `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-build",
		Method:      http.MethodPatch,
		Path:        "/workpackages/{id}/build",
		Summary:     "Update build details",
		Errors:      stageActionErrors,
	}, func(ctx context.Context, input *struct {
		WorkPackagePath
		Body struct {
			Environment    *string `json:"environment,omitempty"`
			ReleaseVersion *string `json:"release_version,omitempty"`
			Notes          *string `json:"notes,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.Build `json:"body"`
	}, error) {
		rec, err := e.SaveBuild(ctx, input.ID, actorFromContext(ctx), engine.BuildForm{
			Environment:    input.Body.Environment,
			ReleaseVersion: input.Body.ReleaseVersion,
			Notes:          input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Build `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-testing",
		Method:      http.MethodPatch,
		Path:        "/workpackages/{id}/testing",
		Summary:     "Update testing sign-offs",
		Errors:      stageActionErrors,
	}, func(ctx context.Context, input *struct {
		WorkPackagePath
		Body struct {
			UATTesterID       *string         `json:"uat_tester_id,omitempty"`
			Testing           *domain.SignOff `json:"testing,omitempty" enum:"pending,approved,rejected"`
			UserAcceptance    *domain.SignOff `json:"user_acceptance,omitempty" enum:"pending,approved,rejected"`
			TestingLead       *domain.SignOff `json:"testing_lead,omitempty" enum:"pending,approved,rejected"`
			ServiceDelivery   *domain.SignOff `json:"service_delivery,omitempty" enum:"pending,approved,rejected"`
			ServiceResilience *domain.SignOff `json:"service_resilience,omitempty" enum:"pending,approved,rejected"`
		} `json:"body"`
	}) (*struct {
		Body domain.Testing `json:"body"`
	}, error) {
		rec, err := e.SaveTesting(ctx, input.ID, actorFromContext(ctx), engine.TestingForm{
			UATTesterID:       input.Body.UATTesterID,
			Testing:           input.Body.Testing,
			UserAcceptance:    input.Body.UserAcceptance,
			TestingLead:       input.Body.TestingLead,
			ServiceDelivery:   input.Body.ServiceDelivery,
			ServiceResilience: input.Body.ServiceResilience,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Testing `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-deployment",
		Method:      http.MethodPost,
		Path:        "/workpackages/{id}/deployment",
		Summary:     "Update deployment details",
		Errors:      stageActionErrors,
	}, func(ctx context.Context, input *struct {
		WorkPackagePath
		Body struct {
			DeploymentDate       *string         `json:"deployment_date,omitempty"`
			DeployedBy           *string         `json:"deployed_by,omitempty"`
			SupportDocumentation *string         `json:"support_documentation,omitempty"`
			RollbackPlan         *string         `json:"rollback_plan,omitempty"`
			ServiceResilience    *domain.SignOff `json:"service_resilience,omitempty" enum:"pending,approved,rejected"`
			ServiceOperations    *domain.SignOff `json:"service_operations,omitempty" enum:"pending,approved,rejected"`
			ServiceDelivery      *domain.SignOff `json:"service_delivery,omitempty" enum:"pending,approved,rejected"`
		} `json:"body"`
	}) (*struct {
		Body domain.Deployed `json:"body"`
	}, error) {
		rec, err := e.SaveDeployed(ctx, input.ID, actorFromContext(ctx), engine.DeployedForm{
			DeploymentDate:       input.Body.DeploymentDate,
			DeployedBy:           input.Body.DeployedBy,
			SupportDocumentation: input.Body.SupportDocumentation,
			RollbackPlan:         input.Body.RollbackPlan,
			ServiceResilience:    input.Body.ServiceResilience,
			ServiceOperations:    input.Body.ServiceOperations,
			ServiceDelivery:      input.Body.ServiceDelivery,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Deployed `json:"body"`
		}{Body: rec}, nil
	})
}

func registerStageActions(api huma.API, e engine.Engine) {
	type actionFunc func(ctx context.Context, id string, actorID *string) (domain.WorkPackage, error)

	register := func(opID, path, summary string, action actionFunc) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        path,
			Summary:     summary,
			Errors:      stageActionErrors,
		}, func(ctx context.Context, input *WorkPackagePath) (*struct {
			Body WorkPackageResponse `json:"body"`
		}, error) {
			wp, err := action(ctx, input.ID, actorFromContext(ctx))
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body WorkPackageResponse `json:"body"`
			}{Body: workPackageResponse(wp)}, nil
		})
	}

	register("approve-feasibility", "/workpackages/{id}/feasibility/approve",
		"Approve feasibility and advance to scoping", e.ApproveFeasibility)
	register("submit-scoping", "/workpackages/{id}/scoping/submit",
		"Submit scoping and advance to scheduling", e.SubmitScoping)
	register("submit-scheduling", "/workpackages/{id}/scheduling/submit",
		"Submit scheduling plan to DCGG", e.SubmitSchedulingToDCGG)
	register("schedule-scheduling", "/workpackages/{id}/scheduling/schedule",
		"Record change board schedule and advance to detailed design", e.ScheduleScheduling)
	register("request-service-acceptance", "/workpackages/{id}/testing/service-acceptance-request",
		"Request service acceptance after UAT", e.RequestServiceAcceptance)
	register("submit-testing", "/workpackages/{id}/testing/submit",
		"Submit testing and advance to deployed", e.SubmitTesting)
	register("accept-deployment-service", "/workpackages/{id}/deployment/service-accept",
		"Record service acceptance of deployment", e.AcceptDeploymentService)
	register("approve-deployment", "/workpackages/{id}/deployment/approve",
		"Approve deployment and complete the work package", e.ApproveDeployment)

	huma.Register(api, huma.Operation{
		OperationID: "reject-feasibility",
		Method:      http.MethodPost,
		Path:        "/workpackages/{id}/feasibility/reject",
		Summary:     "Reject feasibility with a reason",
		Errors:      stageActionErrors,
	}, func(ctx context.Context, input *struct {
		WorkPackagePath
		Body RejectFeasibilityRequest `json:"body"`
	}) (*struct {
		Body WorkPackageResponse `json:"body"`
	}, error) {
		wp, err := e.RejectFeasibility(ctx, input.ID, input.Body.Reason, actorFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkPackageResponse `json:"body"`
		}{Body: workPackageResponse(wp)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "request-uat",
		Method:      http.MethodPost,
		Path:        "/workpackages/{id}/testing/uat-request",
		Summary:     "Assign a tester and request UAT",
		Errors:      stageActionErrors,
	}, func(ctx context.Context, input *struct {
		WorkPackagePath
		Body RequestUATRequest `json:"body"`
	}) (*struct {
		Body WorkPackageResponse `json:"body"`
	}, error) {
		wp, err := e.RequestUAT(ctx, input.ID, input.Body.UATTesterID, actorFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkPackageResponse `json:"body"`
		}{Body: workPackageResponse(wp)}, nil
	})
}
