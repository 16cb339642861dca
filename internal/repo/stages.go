package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"stagegate/internal/domain"
)

// InsertStageRecordsTx creates the nine empty stage rows owned by a new work
// package. All stage records exist from birth and are populated lazily.
func (r Repo) InsertStageRecordsTx(ctx context.Context, tx *sql.Tx, workPackageID string) error {
	stmts := []string{
		`INSERT INTO stage_ideation(workpackage_id) VALUES (?)`,
		`INSERT INTO stage_feasibility(workpackage_id) VALUES (?)`,
		`INSERT INTO stage_scoping(workpackage_id) VALUES (?)`,
		`INSERT INTO stage_scheduling(workpackage_id) VALUES (?)`,
		`INSERT INTO stage_detailed_design(workpackage_id) VALUES (?)`,
		`INSERT INTO stage_development(workpackage_id) VALUES (?)`,
		`INSERT INTO stage_build(workpackage_id) VALUES (?)`,
		`INSERT INTO stage_testing(workpackage_id) VALUES (?)`,
		`INSERT INTO stage_deployed(workpackage_id) VALUES (?)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, workPackageID); err != nil {
			return err
		}
	}
	return nil
}

// --- ideation ---

func (r Repo) GetIdeation(ctx context.Context, tx *sql.Tx, workPackageID string) (domain.Ideation, error) {
	var rec domain.Ideation
	err := r.conn(tx).QueryRowContext(ctx,
		`SELECT workpackage_id,summary,business_need,raised_by FROM stage_ideation WHERE workpackage_id=?`, workPackageID).
		Scan(&rec.WorkPackageID, &rec.Summary, &rec.BusinessNeed, &rec.RaisedBy)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	return rec, err
}

func (r Repo) UpdateIdeation(ctx context.Context, tx *sql.Tx, rec domain.Ideation) error {
	_, err := r.conn(tx).ExecContext(ctx,
		`UPDATE stage_ideation SET summary=?, business_need=?, raised_by=? WHERE workpackage_id=?`,
		rec.Summary, rec.BusinessNeed, rec.RaisedBy, rec.WorkPackageID)
	return err
}

// --- feasibility ---

func (r Repo) GetFeasibility(ctx context.Context, tx *sql.Tx, workPackageID string) (domain.Feasibility, error) {
	var rec domain.Feasibility
	var approval string
	var actionedBy, actionedAt sql.NullString
	err := r.conn(tx).QueryRowContext(ctx,
		`SELECT workpackage_id,assessed_by,date_assessed,technical_credence,cost_benefit_case,
		        dependencies_prerequisites,alternative_proposal,existing_solution_status,
		        existing_solution_notes,approval_status,reject_reason,actioned_by,actioned_at
		 FROM stage_feasibility WHERE workpackage_id=?`, workPackageID).
		Scan(&rec.WorkPackageID, &rec.AssessedBy, &rec.DateAssessed, &rec.TechnicalCredence,
			&rec.CostBenefitCase, &rec.DependenciesPrerequisites, &rec.AlternativeProposal,
			&rec.ExistingSolutionStatus, &rec.ExistingSolutionNotes, &approval, &rec.RejectReason,
			&actionedBy, &actionedAt)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	rec.ApprovalStatus = domain.SignOff(approval)
	rec.ActionedBy = scanStringPtr(actionedBy)
	rec.ActionedAt = scanStringPtr(actionedAt)
	return rec, err
}

func (r Repo) UpdateFeasibility(ctx context.Context, tx *sql.Tx, rec domain.Feasibility) error {
	_, err := r.conn(tx).ExecContext(ctx,
		`UPDATE stage_feasibility SET assessed_by=?, date_assessed=?, technical_credence=?,
		        cost_benefit_case=?, dependencies_prerequisites=?, alternative_proposal=?,
		        existing_solution_status=?, existing_solution_notes=?, approval_status=?,
		        reject_reason=?, actioned_by=?, actioned_at=?
		 WHERE workpackage_id=?`,
		rec.AssessedBy, rec.DateAssessed, rec.TechnicalCredence, rec.CostBenefitCase,
		rec.DependenciesPrerequisites, rec.AlternativeProposal, rec.ExistingSolutionStatus,
		rec.ExistingSolutionNotes, string(rec.ApprovalStatus), rec.RejectReason,
		nullableStringPtr(rec.ActionedBy), nullableStringPtr(rec.ActionedAt), rec.WorkPackageID)
	return err
}

// --- scoping ---

func (r Repo) GetScoping(ctx context.Context, tx *sql.Tx, workPackageID string) (domain.Scoping, error) {
	var rec domain.Scoping
	var skillsJSON string
	var submittedBy, submittedAt sql.NullString
	err := r.conn(tx).QueryRowContext(ctx,
		`SELECT workpackage_id,assessed_by,effort_scale,in_scope,out_of_scope,assumptions,
		        required_skills,submitted_by,submitted_at
		 FROM stage_scoping WHERE workpackage_id=?`, workPackageID).
		Scan(&rec.WorkPackageID, &rec.AssessedBy, &rec.EffortScale, &rec.InScope, &rec.OutOfScope,
			&rec.Assumptions, &skillsJSON, &submittedBy, &submittedAt)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	if skillsJSON != "" {
		if err := json.Unmarshal([]byte(skillsJSON), &rec.RequiredSkills); err != nil {
			return rec, err
		}
	}
	rec.SubmittedBy = scanStringPtr(submittedBy)
	rec.SubmittedAt = scanStringPtr(submittedAt)
	return rec, nil
}

func (r Repo) UpdateScoping(ctx context.Context, tx *sql.Tx, rec domain.Scoping) error {
	skills := rec.RequiredSkills
	if skills == nil {
		skills = []string{}
	}
	skillsJSON, err := json.Marshal(skills)
	if err != nil {
		return err
	}
	_, err = r.conn(tx).ExecContext(ctx,
		`UPDATE stage_scoping SET assessed_by=?, effort_scale=?, in_scope=?, out_of_scope=?,
		        assumptions=?, required_skills=?, submitted_by=?, submitted_at=?
		 WHERE workpackage_id=?`,
		rec.AssessedBy, rec.EffortScale, rec.InScope, rec.OutOfScope, rec.Assumptions,
		string(skillsJSON), nullableStringPtr(rec.SubmittedBy), nullableStringPtr(rec.SubmittedAt),
		rec.WorkPackageID)
	return err
}

// --- scheduling ---

func (r Repo) GetScheduling(ctx context.Context, tx *sql.Tx, workPackageID string) (domain.Scheduling, error) {
	var rec domain.Scheduling
	var submittedBy, submittedAt, scheduledBy, scheduledAt sql.NullString
	err := r.conn(tx).QueryRowContext(ctx,
		`SELECT workpackage_id,key_skills,priority,assignee_id,start_date,completion_date,
		        change_board_date,submitted_by,submitted_at,scheduled_by,scheduled_at
		 FROM stage_scheduling WHERE workpackage_id=?`, workPackageID).
		Scan(&rec.WorkPackageID, &rec.KeySkills, &rec.Priority, &rec.AssigneeID, &rec.StartDate,
			&rec.CompletionDate, &rec.ChangeBoardDate, &submittedBy, &submittedAt, &scheduledBy, &scheduledAt)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	rec.SubmittedBy = scanStringPtr(submittedBy)
	rec.SubmittedAt = scanStringPtr(submittedAt)
	rec.ScheduledBy = scanStringPtr(scheduledBy)
	rec.ScheduledAt = scanStringPtr(scheduledAt)
	return rec, err
}

func (r Repo) UpdateScheduling(ctx context.Context, tx *sql.Tx, rec domain.Scheduling) error {
	_, err := r.conn(tx).ExecContext(ctx,
		`UPDATE stage_scheduling SET key_skills=?, priority=?, assignee_id=?, start_date=?,
		        completion_date=?, change_board_date=?, submitted_by=?, submitted_at=?,
		        scheduled_by=?, scheduled_at=?
		 WHERE workpackage_id=?`,
		rec.KeySkills, rec.Priority, rec.AssigneeID, rec.StartDate, rec.CompletionDate,
		rec.ChangeBoardDate, nullableStringPtr(rec.SubmittedBy), nullableStringPtr(rec.SubmittedAt),
		nullableStringPtr(rec.ScheduledBy), nullableStringPtr(rec.ScheduledAt), rec.WorkPackageID)
	return err
}

// --- detailed design ---

func (r Repo) GetDetailedDesign(ctx context.Context, tx *sql.Tx, workPackageID string) (domain.DetailedDesign, error) {
	var rec domain.DetailedDesign
	err := r.conn(tx).QueryRowContext(ctx,
		`SELECT workpackage_id,designed_by,design_summary,document_url FROM stage_detailed_design WHERE workpackage_id=?`, workPackageID).
		Scan(&rec.WorkPackageID, &rec.DesignedBy, &rec.DesignSummary, &rec.DocumentURL)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	return rec, err
}

func (r Repo) UpdateDetailedDesign(ctx context.Context, tx *sql.Tx, rec domain.DetailedDesign) error {
	_, err := r.conn(tx).ExecContext(ctx,
		`UPDATE stage_detailed_design SET designed_by=?, design_summary=?, document_url=? WHERE workpackage_id=?`,
		rec.DesignedBy, rec.DesignSummary, rec.DocumentURL, rec.WorkPackageID)
	return err
}

// --- development ---

func (r Repo) GetDevelopment(ctx context.Context, tx *sql.Tx, workPackageID string) (domain.Development, error) {
	var rec domain.Development
	err := r.conn(tx).QueryRowContext(ctx,
		`SELECT workpackage_id,lead_developer,repository_url,notes FROM stage_development WHERE workpackage_id=?`, workPackageID).
		Scan(&rec.WorkPackageID, &rec.LeadDeveloper, &rec.RepositoryURL, &rec.Notes)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	return rec, err
}

func (r Repo) UpdateDevelopment(ctx context.Context, tx *sql.Tx, rec domain.Development) error {
	_, err := r.conn(tx).ExecContext(ctx,
		`UPDATE stage_development SET lead_developer=?, repository_url=?, notes=? WHERE workpackage_id=?`,
		rec.LeadDeveloper, rec.RepositoryURL, rec.Notes, rec.WorkPackageID)
	return err
}

// --- build ---

func (r Repo) GetBuild(ctx context.Context, tx *sql.Tx, workPackageID string) (domain.Build, error) {
	var rec domain.Build
	err := r.conn(tx).QueryRowContext(ctx,
		`SELECT workpackage_id,environment,release_version,notes FROM stage_build WHERE workpackage_id=?`, workPackageID).
		Scan(&rec.WorkPackageID, &rec.Environment, &rec.ReleaseVersion, &rec.Notes)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	return rec, err
}

func (r Repo) UpdateBuild(ctx context.Context, tx *sql.Tx, rec domain.Build) error {
	_, err := r.conn(tx).ExecContext(ctx,
		`UPDATE stage_build SET environment=?, release_version=?, notes=? WHERE workpackage_id=?`,
		rec.Environment, rec.ReleaseVersion, rec.Notes, rec.WorkPackageID)
	return err
}

// --- testing ---

func (r Repo) GetTesting(ctx context.Context, tx *sql.Tx, workPackageID string) (domain.Testing, error) {
	var rec domain.Testing
	var testing, userAcceptance, testingLead, serviceDelivery, serviceResilience string
	var uatBy, uatAt, saBy, saAt, subBy, subAt sql.NullString
	err := r.conn(tx).QueryRowContext(ctx,
		`SELECT workpackage_id,uat_tester_id,uat_requested_by,uat_requested_at,testing,
		        user_acceptance,testing_lead,service_delivery,service_resilience,
		        service_acceptance_requested_by,service_acceptance_requested_at,
		        submitted_by,submitted_at
		 FROM stage_testing WHERE workpackage_id=?`, workPackageID).
		Scan(&rec.WorkPackageID, &rec.UATTesterID, &uatBy, &uatAt, &testing, &userAcceptance,
			&testingLead, &serviceDelivery, &serviceResilience, &saBy, &saAt, &subBy, &subAt)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	rec.UATRequestedBy = scanStringPtr(uatBy)
	rec.UATRequestedAt = scanStringPtr(uatAt)
	rec.Testing = domain.SignOff(testing)
	rec.UserAcceptance = domain.SignOff(userAcceptance)
	rec.TestingLead = domain.SignOff(testingLead)
	rec.ServiceDelivery = domain.SignOff(serviceDelivery)
	rec.ServiceResilience = domain.SignOff(serviceResilience)
	rec.ServiceAcceptanceRequestedBy = scanStringPtr(saBy)
	rec.ServiceAcceptanceRequestedAt = scanStringPtr(saAt)
	rec.SubmittedBy = scanStringPtr(subBy)
	rec.SubmittedAt = scanStringPtr(subAt)
	return rec, err
}

func (r Repo) UpdateTesting(ctx context.Context, tx *sql.Tx, rec domain.Testing) error {
	_, err := r.conn(tx).ExecContext(ctx,
		`UPDATE stage_testing SET uat_tester_id=?, uat_requested_by=?, uat_requested_at=?,
		        testing=?, user_acceptance=?, testing_lead=?, service_delivery=?,
		        service_resilience=?, service_acceptance_requested_by=?,
		        service_acceptance_requested_at=?, submitted_by=?, submitted_at=?
		 WHERE workpackage_id=?`,
		rec.UATTesterID, nullableStringPtr(rec.UATRequestedBy), nullableStringPtr(rec.UATRequestedAt),
		string(rec.Testing), string(rec.UserAcceptance), string(rec.TestingLead),
		string(rec.ServiceDelivery), string(rec.ServiceResilience),
		nullableStringPtr(rec.ServiceAcceptanceRequestedBy), nullableStringPtr(rec.ServiceAcceptanceRequestedAt),
		nullableStringPtr(rec.SubmittedBy), nullableStringPtr(rec.SubmittedAt), rec.WorkPackageID)
	return err
}

// --- deployed ---

func (r Repo) GetDeployed(ctx context.Context, tx *sql.Tx, workPackageID string) (domain.Deployed, error) {
	var rec domain.Deployed
	var resilience, operations, delivery string
	var accBy, accAt, appBy, appAt sql.NullString
	err := r.conn(tx).QueryRowContext(ctx,
		`SELECT workpackage_id,deployment_date,deployed_by,support_documentation,rollback_plan,
		        service_resilience,service_operations,service_delivery,
		        service_accepted_by,service_accepted_at,deployment_approved_by,deployment_approved_at
		 FROM stage_deployed WHERE workpackage_id=?`, workPackageID).
		Scan(&rec.WorkPackageID, &rec.DeploymentDate, &rec.DeployedBy, &rec.SupportDocumentation,
			&rec.RollbackPlan, &resilience, &operations, &delivery, &accBy, &accAt, &appBy, &appAt)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	rec.ServiceResilience = domain.SignOff(resilience)
	rec.ServiceOperations = domain.SignOff(operations)
	rec.ServiceDelivery = domain.SignOff(delivery)
	rec.ServiceAcceptedBy = scanStringPtr(accBy)
	rec.ServiceAcceptedAt = scanStringPtr(accAt)
	rec.DeploymentApprovedBy = scanStringPtr(appBy)
	rec.DeploymentApprovedAt = scanStringPtr(appAt)
	return rec, err
}

// DeployedRecordsFor returns the deployed stage records of several work
// packages in one query, keyed by work package id.
func (r Repo) DeployedRecordsFor(ctx context.Context, ids []string) (map[string]domain.Deployed, error) {
	out := make(map[string]domain.Deployed, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT workpackage_id,deployment_date,deployed_by,support_documentation,rollback_plan,
		        service_resilience,service_operations,service_delivery,
		        service_accepted_by,service_accepted_at,deployment_approved_by,deployment_approved_at
		 FROM stage_deployed WHERE workpackage_id IN (?`+strings.Repeat(",?", len(ids)-1)+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var rec domain.Deployed
		var resilience, operations, delivery string
		var accBy, accAt, appBy, appAt sql.NullString
		if err := rows.Scan(&rec.WorkPackageID, &rec.DeploymentDate, &rec.DeployedBy, &rec.SupportDocumentation,
			&rec.RollbackPlan, &resilience, &operations, &delivery, &accBy, &accAt, &appBy, &appAt); err != nil {
			return nil, err
		}
		rec.ServiceResilience = domain.SignOff(resilience)
		rec.ServiceOperations = domain.SignOff(operations)
		rec.ServiceDelivery = domain.SignOff(delivery)
		rec.ServiceAcceptedBy = scanStringPtr(accBy)
		rec.ServiceAcceptedAt = scanStringPtr(accAt)
		rec.DeploymentApprovedBy = scanStringPtr(appBy)
		rec.DeploymentApprovedAt = scanStringPtr(appAt)
		out[rec.WorkPackageID] = rec
	}
	return out, rows.Err()
}

func (r Repo) UpdateDeployed(ctx context.Context, tx *sql.Tx, rec domain.Deployed) error {
	_, err := r.conn(tx).ExecContext(ctx,
		`UPDATE stage_deployed SET deployment_date=?, deployed_by=?, support_documentation=?,
		        rollback_plan=?, service_resilience=?, service_operations=?, service_delivery=?,
		        service_accepted_by=?, service_accepted_at=?, deployment_approved_by=?, deployment_approved_at=?
		 WHERE workpackage_id=?`,
		rec.DeploymentDate, rec.DeployedBy, rec.SupportDocumentation, rec.RollbackPlan,
		string(rec.ServiceResilience), string(rec.ServiceOperations), string(rec.ServiceDelivery),
		nullableStringPtr(rec.ServiceAcceptedBy), nullableStringPtr(rec.ServiceAcceptedAt),
		nullableStringPtr(rec.DeploymentApprovedBy), nullableStringPtr(rec.DeploymentApprovedAt),
		rec.WorkPackageID)
	return err
}
