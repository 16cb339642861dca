package engine

import (
	"context"
	"database/sql"

	"stagegate/internal/domain"
	"stagegate/internal/event"
)

// Form saves. Each form carries pointer fields so callers can update a subset
// of a stage record; nil fields keep their stored value. Saves are allowed in
// any non-terminal lifecycle state so records can be prepared ahead of the
// stage and corrected afterwards.

func (e Engine) beginFormSave(ctx context.Context, id string) (*sql.Tx, domain.WorkPackage, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.WorkPackage{}, err
	}
	wp, err := e.Repo.GetWorkPackageTx(ctx, tx, id)
	if err != nil {
		tx.Rollback()
		return nil, domain.WorkPackage{}, err
	}
	if wp.Status == domain.StatusCancelled {
		tx.Rollback()
		return nil, domain.WorkPackage{}, conflictf("work package %s is cancelled", id)
	}
	return tx, wp, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setSignOff(dst *domain.SignOff, src *domain.SignOff) {
	if src != nil {
		*dst = *src
	}
}

func validSignOff(s domain.SignOff) bool {
	switch s {
	case domain.SignOffPending, domain.SignOffApproved, domain.SignOffRejected:
		return true
	}
	return false
}

func oneOf(v string, allowed ...string) bool {
	if v == "" {
		return true
	}
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

type IdeationForm struct {
	Summary      *string
	BusinessNeed *string
	RaisedBy     *string
}

func (e Engine) SaveIdeation(ctx context.Context, id string, actorID *string, form IdeationForm) (domain.Ideation, error) {
	tx, _, err := e.beginFormSave(ctx, id)
	if err != nil {
		return domain.Ideation{}, err
	}
	defer tx.Rollback()

	rec, err := e.Repo.GetIdeation(ctx, tx, id)
	if err != nil {
		return domain.Ideation{}, err
	}
	setString(&rec.Summary, form.Summary)
	setString(&rec.BusinessNeed, form.BusinessNeed)
	setString(&rec.RaisedBy, form.RaisedBy)
	if err := e.Repo.UpdateIdeation(ctx, tx, rec); err != nil {
		return domain.Ideation{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Updated ideation details"); err != nil {
		return domain.Ideation{}, err
	}
	return rec, tx.Commit()
}

type FeasibilityForm struct {
	AssessedBy                *string
	DateAssessed              *string
	TechnicalCredence         *string
	CostBenefitCase           *string
	DependenciesPrerequisites *string
	AlternativeProposal       *string
	ExistingSolutionStatus    *string
	ExistingSolutionNotes     *string
}

func (e Engine) SaveFeasibility(ctx context.Context, id string, actorID *string, form FeasibilityForm) (domain.Feasibility, error) {
	if form.ExistingSolutionStatus != nil &&
		!oneOf(*form.ExistingSolutionStatus, domain.ExistingSolutionYes, domain.ExistingSolutionNo, domain.ExistingSolutionPartial) {
		return domain.Feasibility{}, fieldError("existing_solution_status", "must be yes, no or partial")
	}
	tx, _, err := e.beginFormSave(ctx, id)
	if err != nil {
		return domain.Feasibility{}, err
	}
	defer tx.Rollback()

	rec, err := e.Repo.GetFeasibility(ctx, tx, id)
	if err != nil {
		return domain.Feasibility{}, err
	}
	setString(&rec.AssessedBy, form.AssessedBy)
	setString(&rec.DateAssessed, form.DateAssessed)
	setString(&rec.TechnicalCredence, form.TechnicalCredence)
	setString(&rec.CostBenefitCase, form.CostBenefitCase)
	setString(&rec.DependenciesPrerequisites, form.DependenciesPrerequisites)
	setString(&rec.AlternativeProposal, form.AlternativeProposal)
	setString(&rec.ExistingSolutionStatus, form.ExistingSolutionStatus)
	setString(&rec.ExistingSolutionNotes, form.ExistingSolutionNotes)
	if err := e.Repo.UpdateFeasibility(ctx, tx, rec); err != nil {
		return domain.Feasibility{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Updated feasibility details"); err != nil {
		return domain.Feasibility{}, err
	}
	return rec, tx.Commit()
}

type ScopingForm struct {
	AssessedBy     *string
	EffortScale    *string
	InScope        *string
	OutOfScope     *string
	Assumptions    *string
	RequiredSkills *[]string
}

func (e Engine) SaveScoping(ctx context.Context, id string, actorID *string, form ScopingForm) (domain.Scoping, error) {
	if form.EffortScale != nil &&
		!oneOf(*form.EffortScale, domain.EffortSmall, domain.EffortMedium, domain.EffortLarge, domain.EffortExtraLarge) {
		return domain.Scoping{}, fieldError("effort_scale", "must be small, medium, large or extra_large")
	}
	tx, _, err := e.beginFormSave(ctx, id)
	if err != nil {
		return domain.Scoping{}, err
	}
	defer tx.Rollback()

	rec, err := e.Repo.GetScoping(ctx, tx, id)
	if err != nil {
		return domain.Scoping{}, err
	}
	setString(&rec.AssessedBy, form.AssessedBy)
	setString(&rec.EffortScale, form.EffortScale)
	setString(&rec.InScope, form.InScope)
	setString(&rec.OutOfScope, form.OutOfScope)
	setString(&rec.Assumptions, form.Assumptions)
	if form.RequiredSkills != nil {
		rec.RequiredSkills = *form.RequiredSkills
	}
	if err := e.Repo.UpdateScoping(ctx, tx, rec); err != nil {
		return domain.Scoping{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Updated scoping details"); err != nil {
		return domain.Scoping{}, err
	}
	return rec, tx.Commit()
}

type SchedulingForm struct {
	KeySkills       *string
	Priority        *string
	AssigneeID      *string
	StartDate       *string
	CompletionDate  *string
	ChangeBoardDate *string
}

func (e Engine) SaveScheduling(ctx context.Context, id string, actorID *string, form SchedulingForm) (domain.Scheduling, error) {
	if form.Priority != nil &&
		!oneOf(*form.Priority, domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityCritical) {
		return domain.Scheduling{}, fieldError("priority", "must be low, medium, high or critical")
	}
	tx, _, err := e.beginFormSave(ctx, id)
	if err != nil {
		return domain.Scheduling{}, err
	}
	defer tx.Rollback()

	rec, err := e.Repo.GetScheduling(ctx, tx, id)
	if err != nil {
		return domain.Scheduling{}, err
	}
	setString(&rec.KeySkills, form.KeySkills)
	setString(&rec.Priority, form.Priority)
	setString(&rec.AssigneeID, form.AssigneeID)
	setString(&rec.StartDate, form.StartDate)
	setString(&rec.CompletionDate, form.CompletionDate)
	setString(&rec.ChangeBoardDate, form.ChangeBoardDate)
	if err := e.Repo.UpdateScheduling(ctx, tx, rec); err != nil {
		return domain.Scheduling{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Updated scheduling details"); err != nil {
		return domain.Scheduling{}, err
	}
	return rec, tx.Commit()
}

type DetailedDesignForm struct {
	DesignedBy    *string
	DesignSummary *string
	DocumentURL   *string
}

func (e Engine) SaveDetailedDesign(ctx context.Context, id string, actorID *string, form DetailedDesignForm) (domain.DetailedDesign, error) {
	tx, _, err := e.beginFormSave(ctx, id)
	if err != nil {
		return domain.DetailedDesign{}, err
	}
	defer tx.Rollback()

	rec, err := e.Repo.GetDetailedDesign(ctx, tx, id)
	if err != nil {
		return domain.DetailedDesign{}, err
	}
	setString(&rec.DesignedBy, form.DesignedBy)
	setString(&rec.DesignSummary, form.DesignSummary)
	setString(&rec.DocumentURL, form.DocumentURL)
	if err := e.Repo.UpdateDetailedDesign(ctx, tx, rec); err != nil {
		return domain.DetailedDesign{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Updated detailed design"); err != nil {
		return domain.DetailedDesign{}, err
	}
	return rec, tx.Commit()
}

type DevelopmentForm struct {
	LeadDeveloper *string
	RepositoryURL *string
	Notes         *string
}

func (e Engine) SaveDevelopment(ctx context.Context, id string, actorID *string, form DevelopmentForm) (domain.Development, error) {
	tx, _, err := e.beginFormSave(ctx, id)
	if err != nil {
		return domain.Development{}, err
	}
	defer tx.Rollback()

	rec, err := e.Repo.GetDevelopment(ctx, tx, id)
	if err != nil {
		return domain.Development{}, err
	}
	setString(&rec.LeadDeveloper, form.LeadDeveloper)
	setString(&rec.RepositoryURL, form.RepositoryURL)
	setString(&rec.Notes, form.Notes)
	if err := e.Repo.UpdateDevelopment(ctx, tx, rec); err != nil {
		return domain.Development{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Updated development details"); err != nil {
		return domain.Development{}, err
	}
	return rec, tx.Commit()
}

type BuildForm struct {
	Environment    *string
	ReleaseVersion *string
	Notes          *string
}

func (e Engine) SaveBuild(ctx context.Context, id string, actorID *string, form BuildForm) (domain.Build, error) {
	tx, _, err := e.beginFormSave(ctx, id)
	if err != nil {
		return domain.Build{}, err
	}
	defer tx.Rollback()

	rec, err := e.Repo.GetBuild(ctx, tx, id)
	if err != nil {
		return domain.Build{}, err
	}
	setString(&rec.Environment, form.Environment)
	setString(&rec.ReleaseVersion, form.ReleaseVersion)
	setString(&rec.Notes, form.Notes)
	if err := e.Repo.UpdateBuild(ctx, tx, rec); err != nil {
		return domain.Build{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Updated build details"); err != nil {
		return domain.Build{}, err
	}
	return rec, tx.Commit()
}

type TestingForm struct {
	UATTesterID       *string
	Testing           *domain.SignOff
	UserAcceptance    *domain.SignOff
	TestingLead       *domain.SignOff
	ServiceDelivery   *domain.SignOff
	ServiceResilience *domain.SignOff
}

// SaveTesting updates sign-offs on the testing record. A UserAcceptance value
// change to approved or rejected is the UAT outcome and emits the matching
// event after commit.
func (e Engine) SaveTesting(ctx context.Context, id string, actorID *string, form TestingForm) (domain.Testing, error) {
	for _, so := range []*domain.SignOff{form.Testing, form.UserAcceptance, form.TestingLead, form.ServiceDelivery, form.ServiceResilience} {
		if so != nil && !validSignOff(*so) {
			return domain.Testing{}, fieldError("sign_off", "must be pending, approved or rejected")
		}
	}
	tx, wp, err := e.beginFormSave(ctx, id)
	if err != nil {
		return domain.Testing{}, err
	}
	defer tx.Rollback()

	rec, err := e.Repo.GetTesting(ctx, tx, id)
	if err != nil {
		return domain.Testing{}, err
	}
	prevUAT := rec.UserAcceptance
	setString(&rec.UATTesterID, form.UATTesterID)
	setSignOff(&rec.Testing, form.Testing)
	setSignOff(&rec.UserAcceptance, form.UserAcceptance)
	setSignOff(&rec.TestingLead, form.TestingLead)
	setSignOff(&rec.ServiceDelivery, form.ServiceDelivery)
	setSignOff(&rec.ServiceResilience, form.ServiceResilience)
	if err := e.Repo.UpdateTesting(ctx, tx, rec); err != nil {
		return domain.Testing{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Updated testing details"); err != nil {
		return domain.Testing{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Testing{}, err
	}
	if rec.UserAcceptance != prevUAT {
		switch rec.UserAcceptance {
		case domain.SignOffApproved:
			e.publish(event.Event{Type: event.TypeUATAccepted, WorkPackage: wp, Stage: wp.Status, ActorID: actorID})
		case domain.SignOffRejected:
			e.publish(event.Event{Type: event.TypeUATRejected, WorkPackage: wp, Stage: wp.Status, ActorID: actorID})
		}
	}
	return rec, nil
}

type DeployedForm struct {
	DeploymentDate       *string
	DeployedBy           *string
	SupportDocumentation *string
	RollbackPlan         *string
	ServiceResilience    *domain.SignOff
	ServiceOperations    *domain.SignOff
	ServiceDelivery      *domain.SignOff
}

func (f DeployedForm) empty() bool {
	return f.DeploymentDate == nil && f.DeployedBy == nil && f.SupportDocumentation == nil &&
		f.RollbackPlan == nil && f.ServiceResilience == nil && f.ServiceOperations == nil &&
		f.ServiceDelivery == nil
}

// SaveDeployed updates the deployment record. Any save must leave a
// deployment date on the record; detail without a date is unanchored.
func (e Engine) SaveDeployed(ctx context.Context, id string, actorID *string, form DeployedForm) (domain.Deployed, error) {
	if form.empty() {
		return domain.Deployed{}, fieldError("deployment", "at least one field is required")
	}
	for _, so := range []*domain.SignOff{form.ServiceResilience, form.ServiceOperations, form.ServiceDelivery} {
		if so != nil && !validSignOff(*so) {
			return domain.Deployed{}, fieldError("sign_off", "must be pending, approved or rejected")
		}
	}
	tx, _, err := e.beginFormSave(ctx, id)
	if err != nil {
		return domain.Deployed{}, err
	}
	defer tx.Rollback()

	rec, err := e.Repo.GetDeployed(ctx, tx, id)
	if err != nil {
		return domain.Deployed{}, err
	}
	setString(&rec.DeploymentDate, form.DeploymentDate)
	setString(&rec.DeployedBy, form.DeployedBy)
	setString(&rec.SupportDocumentation, form.SupportDocumentation)
	setString(&rec.RollbackPlan, form.RollbackPlan)
	setSignOff(&rec.ServiceResilience, form.ServiceResilience)
	setSignOff(&rec.ServiceOperations, form.ServiceOperations)
	setSignOff(&rec.ServiceDelivery, form.ServiceDelivery)
	if rec.DeploymentDate == "" {
		return domain.Deployed{}, fieldError("deployment_date", "is required")
	}
	if err := e.Repo.UpdateDeployed(ctx, tx, rec); err != nil {
		return domain.Deployed{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Updated deployment details"); err != nil {
		return domain.Deployed{}, err
	}
	return rec, tx.Commit()
}
