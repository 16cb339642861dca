package domain

// Stage records. One row of each type exists per work package from creation;
// fields are filled in by form saves and workflow actions. Every readiness
// predicate below is a pure function of the record's stored fields and never
// consults WorkPackage.Status, since callers probe readiness before a
// transition happens.

// Ideation captures the initial proposal.
type Ideation struct {
	WorkPackageID string `json:"workpackage_id"`
	Summary       string `json:"summary,omitempty"`
	BusinessNeed  string `json:"business_need,omitempty"`
	RaisedBy      string `json:"raised_by,omitempty"`
}

// Existing-solution reuse flags on the feasibility record.
const (
	ExistingSolutionYes     = "yes"
	ExistingSolutionNo      = "no"
	ExistingSolutionPartial = "partial"
)

// Feasibility holds the assessment of whether the work is worth doing, plus
// its approval sub-state.
type Feasibility struct {
	WorkPackageID             string  `json:"workpackage_id"`
	AssessedBy                string  `json:"assessed_by,omitempty"`
	DateAssessed              string  `json:"date_assessed,omitempty"`
	TechnicalCredence         string  `json:"technical_credence,omitempty"`
	CostBenefitCase           string  `json:"cost_benefit_case,omitempty"`
	DependenciesPrerequisites string  `json:"dependencies_prerequisites,omitempty"`
	AlternativeProposal       string  `json:"alternative_proposal,omitempty"`
	ExistingSolutionStatus    string  `json:"existing_solution_status,omitempty" enum:",yes,no,partial"`
	ExistingSolutionNotes     string  `json:"existing_solution_notes,omitempty"`
	ApprovalStatus            SignOff `json:"approval_status" enum:"pending,approved,rejected"`
	RejectReason              string  `json:"reject_reason,omitempty"`
	ActionedBy                *string `json:"actioned_by,omitempty"`
	ActionedAt                *string `json:"actioned_at,omitempty" format:"date-time"`
}

// MissingForApproval lists the required fields that are still empty.
func (f Feasibility) MissingForApproval() []string {
	var missing []string
	for _, fld := range []struct{ name, value string }{
		{"assessed_by", f.AssessedBy},
		{"date_assessed", f.DateAssessed},
		{"technical_credence", f.TechnicalCredence},
		{"cost_benefit_case", f.CostBenefitCase},
		{"dependencies_prerequisites", f.DependenciesPrerequisites},
		{"alternative_proposal", f.AlternativeProposal},
	} {
		if fld.value == "" {
			missing = append(missing, fld.name)
		}
	}
	return missing
}

// IsReadyForApproval reports whether all required assessment fields are set.
func (f Feasibility) IsReadyForApproval() bool {
	return len(f.MissingForApproval()) == 0
}

// BlockedByExistingSolution reports whether an existing solution has been
// flagged as reusable without any notes explaining why it is not being used.
func (f Feasibility) BlockedByExistingSolution() bool {
	return f.ExistingSolutionStatus == ExistingSolutionYes && f.ExistingSolutionNotes == ""
}

// Effort scale for scoping.
const (
	EffortSmall      = "small"
	EffortMedium     = "medium"
	EffortLarge      = "large"
	EffortExtraLarge = "extra_large"
)

// Scoping records the agreed scope and required skills before scheduling.
type Scoping struct {
	WorkPackageID  string   `json:"workpackage_id"`
	AssessedBy     string   `json:"assessed_by,omitempty"`
	EffortScale    string   `json:"effort_scale,omitempty" enum:",small,medium,large,extra_large"`
	InScope        string   `json:"in_scope,omitempty"`
	OutOfScope     string   `json:"out_of_scope,omitempty"`
	Assumptions    string   `json:"assumptions,omitempty"`
	RequiredSkills []string `json:"required_skills,omitempty"`
	SubmittedBy    *string  `json:"submitted_by,omitempty"`
	SubmittedAt    *string  `json:"submitted_at,omitempty" format:"date-time"`
}

// MissingForSubmit lists the required fields that are still empty.
func (s Scoping) MissingForSubmit() []string {
	var missing []string
	for _, fld := range []struct{ name, value string }{
		{"assessed_by", s.AssessedBy},
		{"effort_scale", s.EffortScale},
		{"in_scope", s.InScope},
		{"out_of_scope", s.OutOfScope},
		{"assumptions", s.Assumptions},
	} {
		if fld.value == "" {
			missing = append(missing, fld.name)
		}
	}
	if len(s.RequiredSkills) == 0 {
		missing = append(missing, "required_skills")
	}
	return missing
}

func (s Scoping) IsReadyForSubmit() bool { return len(s.MissingForSubmit()) == 0 }

// Scheduling priorities.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Scheduling carries the delivery plan submitted to the design and change
// governance group (DCGG) and the subsequent change-board scheduling stamp.
type Scheduling struct {
	WorkPackageID   string  `json:"workpackage_id"`
	KeySkills       string  `json:"key_skills,omitempty"`
	Priority        string  `json:"priority,omitempty" enum:",low,medium,high,critical"`
	AssigneeID      string  `json:"assignee_id,omitempty"`
	StartDate       string  `json:"start_date,omitempty"`
	CompletionDate  string  `json:"completion_date,omitempty"`
	ChangeBoardDate string  `json:"change_board_date,omitempty"`
	SubmittedBy     *string `json:"submitted_by,omitempty"`
	SubmittedAt     *string `json:"submitted_at,omitempty" format:"date-time"`
	ScheduledBy     *string `json:"scheduled_by,omitempty"`
	ScheduledAt     *string `json:"scheduled_at,omitempty" format:"date-time"`
}

// MissingForSubmit lists the fields a DCGG submission still needs.
func (s Scheduling) MissingForSubmit() []string {
	var missing []string
	for _, fld := range []struct{ name, value string }{
		{"key_skills", s.KeySkills},
		{"priority", s.Priority},
		{"assignee_id", s.AssigneeID},
		{"start_date", s.StartDate},
		{"completion_date", s.CompletionDate},
		{"change_board_date", s.ChangeBoardDate},
	} {
		if fld.value == "" {
			missing = append(missing, fld.name)
		}
	}
	return missing
}

func (s Scheduling) IsReadyForSubmit() bool { return len(s.MissingForSubmit()) == 0 }

// IsReadyForSchedule reports whether the change board can stamp a schedule:
// a prior DCGG submission plus a change-board date.
func (s Scheduling) IsReadyForSchedule() bool {
	return s.SubmittedAt != nil && s.ChangeBoardDate != ""
}

// DetailedDesign records the agreed solution design.
type DetailedDesign struct {
	WorkPackageID string `json:"workpackage_id"`
	DesignedBy    string `json:"designed_by,omitempty"`
	DesignSummary string `json:"design_summary,omitempty"`
	DocumentURL   string `json:"document_url,omitempty"`
}

// Development records who is building the work and where.
type Development struct {
	WorkPackageID string `json:"workpackage_id"`
	LeadDeveloper string `json:"lead_developer,omitempty"`
	RepositoryURL string `json:"repository_url,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// Build records release packaging details.
type Build struct {
	WorkPackageID  string `json:"workpackage_id"`
	Environment    string `json:"environment,omitempty"`
	ReleaseVersion string `json:"release_version,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// Testing holds UAT assignment and the five sign-offs gating deployment.
type Testing struct {
	WorkPackageID                 string  `json:"workpackage_id"`
	UATTesterID                   string  `json:"uat_tester_id,omitempty"`
	UATRequestedBy                *string `json:"uat_requested_by,omitempty"`
	UATRequestedAt                *string `json:"uat_requested_at,omitempty" format:"date-time"`
	Testing                       SignOff `json:"testing" enum:"pending,approved,rejected"`
	UserAcceptance                SignOff `json:"user_acceptance" enum:"pending,approved,rejected"`
	TestingLead                   SignOff `json:"testing_lead" enum:"pending,approved,rejected"`
	ServiceDelivery               SignOff `json:"service_delivery" enum:"pending,approved,rejected"`
	ServiceResilience             SignOff `json:"service_resilience" enum:"pending,approved,rejected"`
	ServiceAcceptanceRequestedBy  *string `json:"service_acceptance_requested_by,omitempty"`
	ServiceAcceptanceRequestedAt  *string `json:"service_acceptance_requested_at,omitempty" format:"date-time"`
	SubmittedBy                   *string `json:"submitted_by,omitempty"`
	SubmittedAt                   *string `json:"submitted_at,omitempty" format:"date-time"`
}

// signOffs pairs each sign-off field with its wire name, in a fixed order.
func (t Testing) signOffs() []struct {
	name  string
	value SignOff
} {
	return []struct {
		name  string
		value SignOff
	}{
		{"testing", t.Testing},
		{"user_acceptance", t.UserAcceptance},
		{"testing_lead", t.TestingLead},
		{"service_delivery", t.ServiceDelivery},
		{"service_resilience", t.ServiceResilience},
	}
}

// MissingForSubmit lists sign-offs that are not yet approved.
func (t Testing) MissingForSubmit() []string {
	var missing []string
	for _, so := range t.signOffs() {
		if !so.value.Approved() {
			missing = append(missing, so.name)
		}
	}
	return missing
}

// IsReadyForSubmit reports whether all five sign-offs are approved.
func (t Testing) IsReadyForSubmit() bool { return len(t.MissingForSubmit()) == 0 }

// IsReadyForServiceAcceptance reports whether UAT has been accepted.
func (t Testing) IsReadyForServiceAcceptance() bool { return t.UserAcceptance.Approved() }

// HasUATRequest reports whether UAT has been requested.
func (t Testing) HasUATRequest() bool { return t.UATRequestedAt != nil }

// Deployed holds deployment readiness details and the three service-handover
// approvals gating completion.
type Deployed struct {
	WorkPackageID        string  `json:"workpackage_id"`
	DeploymentDate       string  `json:"deployment_date,omitempty"`
	DeployedBy           string  `json:"deployed_by,omitempty"`
	SupportDocumentation string  `json:"support_documentation,omitempty"`
	RollbackPlan         string  `json:"rollback_plan,omitempty"`
	ServiceResilience    SignOff `json:"service_resilience" enum:"pending,approved,rejected"`
	ServiceOperations    SignOff `json:"service_operations" enum:"pending,approved,rejected"`
	ServiceDelivery      SignOff `json:"service_delivery" enum:"pending,approved,rejected"`
	ServiceAcceptedBy    *string `json:"service_accepted_by,omitempty"`
	ServiceAcceptedAt    *string `json:"service_accepted_at,omitempty" format:"date-time"`
	DeploymentApprovedBy *string `json:"deployment_approved_by,omitempty"`
	DeploymentApprovedAt *string `json:"deployment_approved_at,omitempty" format:"date-time"`
}

// MissingForServiceAcceptance lists incomplete deployment-readiness fields.
func (d Deployed) MissingForServiceAcceptance() []string {
	var missing []string
	for _, fld := range []struct{ name, value string }{
		{"deployment_date", d.DeploymentDate},
		{"deployed_by", d.DeployedBy},
		{"support_documentation", d.SupportDocumentation},
		{"rollback_plan", d.RollbackPlan},
	} {
		if fld.value == "" {
			missing = append(missing, fld.name)
		}
	}
	return missing
}

func (d Deployed) IsReadyForServiceAcceptance() bool {
	return len(d.MissingForServiceAcceptance()) == 0
}

// MissingForApproval lists readiness fields and handover sign-offs still
// blocking deployment approval.
func (d Deployed) MissingForApproval() []string {
	missing := d.MissingForServiceAcceptance()
	for _, so := range []struct {
		name  string
		value SignOff
	}{
		{"service_resilience", d.ServiceResilience},
		{"service_operations", d.ServiceOperations},
		{"service_delivery", d.ServiceDelivery},
	} {
		if !so.value.Approved() {
			missing = append(missing, so.name)
		}
	}
	return missing
}

func (d Deployed) IsReadyForApproval() bool { return len(d.MissingForApproval()) == 0 }

// Timestamp null-checks; each pair is logically complementary.
func (d Deployed) HasServiceAcceptance() bool    { return d.ServiceAcceptedAt != nil }
func (d Deployed) NeedsServiceAcceptance() bool  { return d.ServiceAcceptedAt == nil }
func (d Deployed) HasDeploymentApproval() bool   { return d.DeploymentApprovedAt != nil }
func (d Deployed) NeedsDeploymentApproval() bool { return d.DeploymentApprovedAt == nil }
