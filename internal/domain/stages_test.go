package domain

import (
	"reflect"
	"testing"
)

func TestStatusNext(t *testing.T) {
	cases := []struct {
		from Status
		want Status
	}{
		{StatusIdeation, StatusFeasibility},
		{StatusFeasibility, StatusScoping},
		{StatusScoping, StatusScheduling},
		{StatusScheduling, StatusDetailedDesign},
		{StatusDetailedDesign, StatusDevelopment},
		{StatusDevelopment, StatusTesting},
		{StatusTesting, StatusDeployed},
		{StatusDeployed, StatusCompleted},
		{StatusCompleted, ""},
		{StatusCancelled, ""},
		{Status("bogus"), ""},
	}
	for _, tc := range cases {
		if got := tc.from.Next(); got != tc.want {
			t.Errorf("Next(%s) = %q, want %q", tc.from, got, tc.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if !StatusCompleted.Terminal() || !StatusCancelled.Terminal() {
		t.Error("completed and cancelled must be terminal")
	}
	if StatusIdeation.Terminal() || StatusDeployed.Terminal() {
		t.Error("non-final stages must not be terminal")
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range StageOrder {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%s) = false", s)
		}
	}
	if !ValidStatus(StatusCancelled) {
		t.Error("cancelled must be valid")
	}
	if ValidStatus(Status("unknown")) {
		t.Error("unknown status must be invalid")
	}
}

func TestFeasibilityMissingForApproval(t *testing.T) {
	var f Feasibility
	want := []string{
		"assessed_by", "date_assessed", "technical_credence",
		"cost_benefit_case", "dependencies_prerequisites", "alternative_proposal",
	}
	if got := f.MissingForApproval(); !reflect.DeepEqual(got, want) {
		t.Errorf("MissingForApproval() = %v, want %v", got, want)
	}

	f = Feasibility{
		AssessedBy:                "alice",
		DateAssessed:              "2026-01-10",
		TechnicalCredence:         "sound",
		CostBenefitCase:           "positive",
		DependenciesPrerequisites: "none",
		AlternativeProposal:       "none considered",
	}
	if !f.IsReadyForApproval() {
		t.Errorf("IsReadyForApproval() = false, missing %v", f.MissingForApproval())
	}
}

func TestFeasibilityBlockedByExistingSolution(t *testing.T) {
	f := Feasibility{ExistingSolutionStatus: ExistingSolutionYes}
	if !f.BlockedByExistingSolution() {
		t.Error("yes without notes must block")
	}
	f.ExistingSolutionNotes = "vendor product lacks audit trail"
	if f.BlockedByExistingSolution() {
		t.Error("yes with notes must not block")
	}
	for _, status := range []string{ExistingSolutionNo, ExistingSolutionPartial, ""} {
		f := Feasibility{ExistingSolutionStatus: status}
		if f.BlockedByExistingSolution() {
			t.Errorf("status %q must not block", status)
		}
	}
}

func TestScopingMissingForSubmit(t *testing.T) {
	s := Scoping{
		AssessedBy:  "bob",
		EffortScale: EffortMedium,
		InScope:     "portal revamp",
		OutOfScope:  "mobile app",
		Assumptions: "existing auth stays",
	}
	if got := s.MissingForSubmit(); !reflect.DeepEqual(got, []string{"required_skills"}) {
		t.Errorf("MissingForSubmit() = %v, want [required_skills]", got)
	}
	s.RequiredSkills = []string{"go", "sql"}
	if !s.IsReadyForSubmit() {
		t.Error("fully filled scoping must be ready")
	}
}

func TestSchedulingReadiness(t *testing.T) {
	s := Scheduling{
		KeySkills:       "go",
		Priority:        PriorityHigh,
		AssigneeID:      "carol",
		StartDate:       "2026-02-01",
		CompletionDate:  "2026-03-01",
		ChangeBoardDate: "2026-01-20",
	}
	if !s.IsReadyForSubmit() {
		t.Errorf("IsReadyForSubmit() = false, missing %v", s.MissingForSubmit())
	}
	if s.IsReadyForSchedule() {
		t.Error("schedule must require a prior submission")
	}
	at := "2026-01-15T09:00:00Z"
	s.SubmittedAt = &at
	if !s.IsReadyForSchedule() {
		t.Error("submitted plan with board date must be schedulable")
	}
	s.ChangeBoardDate = ""
	if s.IsReadyForSchedule() {
		t.Error("schedule must require a change board date")
	}
}

func TestTestingSignOffs(t *testing.T) {
	tr := Testing{
		Testing:           SignOffApproved,
		UserAcceptance:    SignOffApproved,
		TestingLead:       SignOffApproved,
		ServiceDelivery:   SignOffApproved,
		ServiceResilience: SignOffPending,
	}
	if got := tr.MissingForSubmit(); !reflect.DeepEqual(got, []string{"service_resilience"}) {
		t.Errorf("MissingForSubmit() = %v, want [service_resilience]", got)
	}
	tr.ServiceResilience = SignOffApproved
	if !tr.IsReadyForSubmit() {
		t.Error("all approved sign-offs must be ready for submit")
	}

	tr.UserAcceptance = SignOffRejected
	if tr.IsReadyForServiceAcceptance() {
		t.Error("rejected UAT must block service acceptance")
	}
	tr.UserAcceptance = SignOffApproved
	if !tr.IsReadyForServiceAcceptance() {
		t.Error("approved UAT must allow service acceptance")
	}

	if tr.HasUATRequest() {
		t.Error("no request timestamp, HasUATRequest must be false")
	}
	at := "2026-03-01T10:00:00Z"
	tr.UATRequestedAt = &at
	if !tr.HasUATRequest() {
		t.Error("request timestamp set, HasUATRequest must be true")
	}
}

func TestDeployedReadiness(t *testing.T) {
	d := Deployed{
		DeploymentDate:       "2026-04-01",
		DeployedBy:           "dave",
		SupportDocumentation: "https://wiki/run-book",
		RollbackPlan:         "restore previous release",
	}
	if !d.IsReadyForServiceAcceptance() {
		t.Errorf("readiness fields set, missing %v", d.MissingForServiceAcceptance())
	}
	want := []string{"service_resilience", "service_operations", "service_delivery"}
	if got := d.MissingForApproval(); !reflect.DeepEqual(got, want) {
		t.Errorf("MissingForApproval() = %v, want %v", got, want)
	}
	d.ServiceResilience = SignOffApproved
	d.ServiceOperations = SignOffApproved
	d.ServiceDelivery = SignOffApproved
	if !d.IsReadyForApproval() {
		t.Error("all sign-offs approved, must be ready for approval")
	}

	if d.HasServiceAcceptance() || !d.NeedsServiceAcceptance() {
		t.Error("no acceptance timestamp yet")
	}
	at := "2026-04-02T08:00:00Z"
	d.ServiceAcceptedAt = &at
	if !d.HasServiceAcceptance() || d.NeedsServiceAcceptance() {
		t.Error("acceptance timestamp set")
	}
}

func TestNotificationRuleMatches(t *testing.T) {
	rule := NotificationRule{EventKey: "workpackage.stage_changed", Active: true}
	if !rule.Matches("workpackage.stage_changed", StatusTesting) {
		t.Error("rule without stage must match any stage")
	}
	if rule.Matches("workpackage.created", StatusTesting) {
		t.Error("event key mismatch must not match")
	}
	rule.Stage = StatusDeployed
	if rule.Matches("workpackage.stage_changed", StatusTesting) {
		t.Error("stage discriminator mismatch must not match")
	}
	if !rule.Matches("workpackage.stage_changed", StatusDeployed) {
		t.Error("stage discriminator match must match")
	}
	rule.Active = false
	if rule.Matches("workpackage.stage_changed", StatusDeployed) {
		t.Error("inactive rule must never match")
	}
}
