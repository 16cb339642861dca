package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"stagegate/internal/config"
	"stagegate/internal/db"
	"stagegate/internal/domain"
	"stagegate/internal/engine"
	"stagegate/internal/event"
	"stagegate/internal/migrate"
	"stagegate/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Events *[]event.Event
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("stagegate")
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	events := &[]event.Event{}
	eng.Publish = func(ev event.Event) { *events = append(*events, ev) }
	return testEnv{Engine: eng, Ctx: context.Background(), Events: events}
}

func strp(s string) *string { return &s }

func repoFilters(includeInactive bool) repo.WorkPackageFilters {
	return repo.WorkPackageFilters{IncludeInactive: includeInactive, Limit: 10}
}

func signp(s domain.SignOff) *domain.SignOff { return &s }

func createWP(t *testing.T, env testEnv) domain.WorkPackage {
	t.Helper()
	wp, err := env.Engine.CreateWorkPackage(env.Ctx, "Replace legacy portal", "owner-1", strp("tester"))
	if err != nil {
		t.Fatalf("create work package: %v", err)
	}
	return wp
}

func fillFeasibility(t *testing.T, env testEnv, id string) {
	t.Helper()
	_, err := env.Engine.SaveFeasibility(env.Ctx, id, strp("tester"), engine.FeasibilityForm{
		AssessedBy:                strp("alice"),
		DateAssessed:              strp("2026-01-05"),
		TechnicalCredence:         strp("sound"),
		CostBenefitCase:           strp("positive"),
		DependenciesPrerequisites: strp("none"),
		AlternativeProposal:       strp("none considered"),
		ExistingSolutionStatus:    strp(domain.ExistingSolutionNo),
	})
	if err != nil {
		t.Fatalf("fill feasibility: %v", err)
	}
}

func fillScoping(t *testing.T, env testEnv, id string) {
	t.Helper()
	skills := []string{"go", "sql"}
	_, err := env.Engine.SaveScoping(env.Ctx, id, strp("tester"), engine.ScopingForm{
		AssessedBy:     strp("bob"),
		EffortScale:    strp(domain.EffortMedium),
		InScope:        strp("portal"),
		OutOfScope:     strp("mobile"),
		Assumptions:    strp("auth unchanged"),
		RequiredSkills: &skills,
	})
	if err != nil {
		t.Fatalf("fill scoping: %v", err)
	}
}

func fillScheduling(t *testing.T, env testEnv, id string) {
	t.Helper()
	_, err := env.Engine.SaveScheduling(env.Ctx, id, strp("tester"), engine.SchedulingForm{
		KeySkills:       strp("go"),
		Priority:        strp(domain.PriorityHigh),
		AssigneeID:      strp("carol"),
		StartDate:       strp("2026-02-01"),
		CompletionDate:  strp("2026-03-01"),
		ChangeBoardDate: strp("2026-01-20"),
	})
	if err != nil {
		t.Fatalf("fill scheduling: %v", err)
	}
}

func approveAllTesting(t *testing.T, env testEnv, id string) {
	t.Helper()
	_, err := env.Engine.SaveTesting(env.Ctx, id, strp("tester"), engine.TestingForm{
		Testing:           signp(domain.SignOffApproved),
		UserAcceptance:    signp(domain.SignOffApproved),
		TestingLead:       signp(domain.SignOffApproved),
		ServiceDelivery:   signp(domain.SignOffApproved),
		ServiceResilience: signp(domain.SignOffApproved),
	})
	if err != nil {
		t.Fatalf("fill testing: %v", err)
	}
}

func fillDeployment(t *testing.T, env testEnv, id string) {
	t.Helper()
	_, err := env.Engine.SaveDeployed(env.Ctx, id, strp("tester"), engine.DeployedForm{
		DeploymentDate:       strp("2026-04-01"),
		DeployedBy:           strp("dave"),
		SupportDocumentation: strp("https://wiki/run-book"),
		RollbackPlan:         strp("restore previous release"),
		ServiceResilience:    signp(domain.SignOffApproved),
		ServiceOperations:    signp(domain.SignOffApproved),
		ServiceDelivery:      signp(domain.SignOffApproved),
	})
	if err != nil {
		t.Fatalf("fill deployment: %v", err)
	}
}

func TestCreateWorkPackage(t *testing.T) {
	env := newTestEnv(t)
	wp := createWP(t, env)
	if wp.Status != domain.StatusIdeation {
		t.Fatalf("status = %s, want ideation", wp.Status)
	}
	entries, err := env.Engine.Repo.ListHistory(env.Ctx, wp.ID, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries) != 1 || entries[0].Description != "Created work package" {
		t.Fatalf("history = %+v, want single creation entry", entries)
	}
	if len(*env.Events) != 1 || (*env.Events)[0].Type != event.TypeWorkPackageCreated {
		t.Fatalf("events = %+v, want workpackage.created", *env.Events)
	}

	if _, err := env.Engine.CreateWorkPackage(env.Ctx, "", "owner-1", nil); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestApproveFeasibilityGates(t *testing.T) {
	env := newTestEnv(t)
	wp := createWP(t, env)
	if _, err := env.Engine.AdvanceToNextStage(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatalf("advance to feasibility: %v", err)
	}

	// empty assessment is refused with the full missing-field list
	_, err := env.Engine.ApproveFeasibility(env.Ctx, wp.ID, strp("tester"))
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(ve.Fields) != 6 {
		t.Fatalf("missing fields = %v, want all six assessment fields", ve.Fields)
	}

	// reusable existing solution without notes blocks approval
	fillFeasibility(t, env, wp.ID)
	if _, err := env.Engine.SaveFeasibility(env.Ctx, wp.ID, strp("tester"), engine.FeasibilityForm{
		ExistingSolutionStatus: strp(domain.ExistingSolutionYes),
	}); err != nil {
		t.Fatalf("save existing solution flag: %v", err)
	}
	_, err = env.Engine.ApproveFeasibility(env.Ctx, wp.ID, strp("tester"))
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := ve.Fields["existing_solution_notes"]; !ok {
		t.Fatalf("fields = %v, want existing_solution_notes", ve.Fields)
	}

	// with notes, approval advances to scoping
	if _, err := env.Engine.SaveFeasibility(env.Ctx, wp.ID, strp("tester"), engine.FeasibilityForm{
		ExistingSolutionNotes: strp("vendor tool lacks audit trail"),
	}); err != nil {
		t.Fatalf("save notes: %v", err)
	}
	*env.Events = nil
	wp2, err := env.Engine.ApproveFeasibility(env.Ctx, wp.ID, strp("tester"))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if wp2.Status != domain.StatusScoping {
		t.Fatalf("status = %s, want scoping", wp2.Status)
	}
	evs := *env.Events
	if len(evs) != 2 || evs[0].Type != event.TypeFeasibilityApproved || evs[1].Type != event.TypeStageChanged {
		t.Fatalf("events = %+v, want approval then stage change", evs)
	}
	// the approval event is discriminated by the stage it was taken in
	if evs[0].Stage != domain.StatusFeasibility || evs[1].Stage != domain.StatusScoping {
		t.Fatalf("event stages = %s, %s, want feasibility then scoping", evs[0].Stage, evs[1].Stage)
	}

	rec, err := env.Engine.Repo.GetFeasibility(env.Ctx, nil, wp.ID)
	if err != nil {
		t.Fatalf("get feasibility: %v", err)
	}
	if rec.ApprovalStatus != domain.SignOffApproved || rec.ActionedAt == nil {
		t.Fatalf("approval stamp missing: %+v", rec)
	}
}

func TestRejectFeasibility(t *testing.T) {
	env := newTestEnv(t)
	wp := createWP(t, env)
	if _, err := env.Engine.AdvanceToNextStage(env.Ctx, wp.ID, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.RejectFeasibility(env.Ctx, wp.ID, "", strp("tester")); err == nil {
		t.Fatal("expected error for empty reason")
	}
	wp2, err := env.Engine.RejectFeasibility(env.Ctx, wp.ID, "no budget", strp("tester"))
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if wp2.Status != domain.StatusFeasibility {
		t.Fatalf("status = %s, rejection must not change stage", wp2.Status)
	}
	rec, err := env.Engine.Repo.GetFeasibility(env.Ctx, nil, wp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ApprovalStatus != domain.SignOffRejected || rec.RejectReason != "no budget" {
		t.Fatalf("rejection not recorded: %+v", rec)
	}

	// a revised assessment can still be approved afterwards
	fillFeasibility(t, env, wp.ID)
	if _, err := env.Engine.ApproveFeasibility(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatalf("approve after reject: %v", err)
	}
}

func TestScheduleRequiresSubmission(t *testing.T) {
	env := newTestEnv(t)
	wp := createWP(t, env)
	for wpStatus := wp.Status; wpStatus != domain.StatusScheduling; wpStatus = wpStatus.Next() {
		if _, err := env.Engine.AdvanceToNextStage(env.Ctx, wp.ID, nil); err != nil {
			t.Fatal(err)
		}
	}
	fillScheduling(t, env, wp.ID)

	_, err := env.Engine.ScheduleScheduling(env.Ctx, wp.ID, strp("tester"))
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict before DCGG submission, got %v", err)
	}

	if _, err := env.Engine.SubmitSchedulingToDCGG(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatalf("submit to DCGG: %v", err)
	}
	wp2, err := env.Engine.Repo.GetWorkPackage(env.Ctx, wp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if wp2.Status != domain.StatusScheduling {
		t.Fatalf("status = %s, DCGG submission must not advance", wp2.Status)
	}
	wp3, err := env.Engine.ScheduleScheduling(env.Ctx, wp.ID, strp("tester"))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if wp3.Status != domain.StatusDetailedDesign {
		t.Fatalf("status = %s, want detailed_design", wp3.Status)
	}
}

func TestRequestUAT(t *testing.T) {
	env := newTestEnv(t)
	wp := createWP(t, env)
	for i := 0; i < 6; i++ {
		if _, err := env.Engine.AdvanceToNextStage(env.Ctx, wp.ID, nil); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := env.Engine.RequestUAT(env.Ctx, wp.ID, "", strp("tester")); err == nil {
		t.Fatal("expected error for empty tester")
	}
	if _, err := env.Engine.RequestUAT(env.Ctx, wp.ID, "erin", strp("tester")); err != nil {
		t.Fatalf("request UAT: %v", err)
	}
	_, err := env.Engine.RequestUAT(env.Ctx, wp.ID, "frank", strp("tester"))
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict on second UAT request, got %v", err)
	}

	// service acceptance needs an approved UAT first
	_, err = env.Engine.RequestServiceAcceptance(env.Ctx, wp.ID, strp("tester"))
	var veErr engine.ValidationError
	if !errors.As(err, &veErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := env.Engine.SaveTesting(env.Ctx, wp.ID, strp("erin"), engine.TestingForm{
		UserAcceptance: signp(domain.SignOffApproved),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.RequestServiceAcceptance(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatalf("request service acceptance: %v", err)
	}
}

func TestUATOutcomeEvents(t *testing.T) {
	env := newTestEnv(t)
	wp := createWP(t, env)
	for i := 0; i < 6; i++ {
		if _, err := env.Engine.AdvanceToNextStage(env.Ctx, wp.ID, nil); err != nil {
			t.Fatal(err)
		}
	}
	*env.Events = nil
	if _, err := env.Engine.SaveTesting(env.Ctx, wp.ID, strp("erin"), engine.TestingForm{
		UserAcceptance: signp(domain.SignOffRejected),
	}); err != nil {
		t.Fatal(err)
	}
	evs := *env.Events
	if len(evs) != 1 || evs[0].Type != event.TypeUATRejected {
		t.Fatalf("events = %+v, want testing.uat_rejected", evs)
	}

	*env.Events = nil
	if _, err := env.Engine.SaveTesting(env.Ctx, wp.ID, strp("erin"), engine.TestingForm{
		UserAcceptance: signp(domain.SignOffApproved),
	}); err != nil {
		t.Fatal(err)
	}
	evs = *env.Events
	if len(evs) != 1 || evs[0].Type != event.TypeUATAccepted {
		t.Fatalf("events = %+v, want testing.uat_accepted", evs)
	}

	// saving without touching user acceptance emits nothing
	*env.Events = nil
	if _, err := env.Engine.SaveTesting(env.Ctx, wp.ID, strp("erin"), engine.TestingForm{
		Testing: signp(domain.SignOffApproved),
	}); err != nil {
		t.Fatal(err)
	}
	if len(*env.Events) != 0 {
		t.Fatalf("events = %+v, want none", *env.Events)
	}
}

func TestSubmitTestingWritesTwoHistoryRows(t *testing.T) {
	env := newTestEnv(t)
	wp := createWP(t, env)
	for i := 0; i < 6; i++ {
		if _, err := env.Engine.AdvanceToNextStage(env.Ctx, wp.ID, nil); err != nil {
			t.Fatal(err)
		}
	}
	approveAllTesting(t, env, wp.ID)
	before, err := env.Engine.Repo.CountHistory(env.Ctx, wp.ID)
	if err != nil {
		t.Fatal(err)
	}
	wp2, err := env.Engine.SubmitTesting(env.Ctx, wp.ID, strp("tester"))
	if err != nil {
		t.Fatalf("submit testing: %v", err)
	}
	if wp2.Status != domain.StatusDeployed {
		t.Fatalf("status = %s, want deployed", wp2.Status)
	}
	entries, err := env.Engine.Repo.ListHistory(env.Ctx, wp.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != before+2 {
		t.Fatalf("history rows = %d, want %d", len(entries), before+2)
	}
	last := entries[len(entries)-1]
	prev := entries[len(entries)-2]
	if prev.Description != "Submitted testing" || last.Description != "Advanced to deployed" {
		t.Fatalf("history tail = %q, %q", prev.Description, last.Description)
	}
}

func TestSubmitTestingRejectsPartialSignOffs(t *testing.T) {
	env := newTestEnv(t)
	wp := createWP(t, env)
	for i := 0; i < 6; i++ {
		if _, err := env.Engine.AdvanceToNextStage(env.Ctx, wp.ID, nil); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := env.Engine.SaveTesting(env.Ctx, wp.ID, strp("tester"), engine.TestingForm{
		Testing:         signp(domain.SignOffApproved),
		UserAcceptance:  signp(domain.SignOffApproved),
		TestingLead:     signp(domain.SignOffApproved),
		ServiceDelivery: signp(domain.SignOffApproved),
	}); err != nil {
		t.Fatal(err)
	}
	before, err := env.Engine.Repo.CountHistory(env.Ctx, wp.ID)
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.Engine.SubmitTesting(env.Ctx, wp.ID, strp("tester"))
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(ve.Fields) != 1 {
		t.Fatalf("fields = %v, want only the outstanding sign-off", ve.Fields)
	}
	if _, ok := ve.Fields["service_resilience"]; !ok {
		t.Fatalf("fields = %v, want service_resilience", ve.Fields)
	}

	// the refused submission leaves no trace
	wp2, err := env.Engine.Repo.GetWorkPackage(env.Ctx, wp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if wp2.Status != domain.StatusTesting {
		t.Fatalf("status = %s, want testing", wp2.Status)
	}
	after, err := env.Engine.Repo.CountHistory(env.Ctx, wp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after != before {
		t.Fatalf("history rows = %d, want %d", after, before)
	}
}

func TestDeploymentApprovalGates(t *testing.T) {
	env := newTestEnv(t)
	wp := createWP(t, env)
	for i := 0; i < 7; i++ {
		if _, err := env.Engine.AdvanceToNextStage(env.Ctx, wp.ID, nil); err != nil {
			t.Fatal(err)
		}
	}

	// approval requires service acceptance first
	_, err := env.Engine.ApproveDeployment(env.Ctx, wp.ID, strp("tester"))
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict before service acceptance, got %v", err)
	}

	// acceptance requires the readiness fields
	_, err = env.Engine.AcceptDeploymentService(env.Ctx, wp.ID, strp("tester"))
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}

	fillDeployment(t, env, wp.ID)
	if _, err := env.Engine.AcceptDeploymentService(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatalf("service accept: %v", err)
	}
	_, err = env.Engine.AcceptDeploymentService(env.Ctx, wp.ID, strp("tester"))
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict on double acceptance, got %v", err)
	}

	wp2, err := env.Engine.ApproveDeployment(env.Ctx, wp.ID, strp("tester"))
	if err != nil {
		t.Fatalf("approve deployment: %v", err)
	}
	if wp2.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed", wp2.Status)
	}

	// completed packages cannot advance or cancel
	if _, err := env.Engine.AdvanceToNextStage(env.Ctx, wp.ID, nil); err == nil {
		t.Fatal("expected conflict advancing a completed package")
	}
	if _, err := env.Engine.CancelWorkPackage(env.Ctx, wp.ID, nil); err == nil {
		t.Fatal("expected conflict cancelling a completed package")
	}
}

func TestFullGatedLifecycle(t *testing.T) {
	env := newTestEnv(t)
	wp := createWP(t, env)

	if _, err := env.Engine.AdvanceToNextStage(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatal(err)
	}
	fillFeasibility(t, env, wp.ID)
	if _, err := env.Engine.ApproveFeasibility(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatal(err)
	}
	fillScoping(t, env, wp.ID)
	if _, err := env.Engine.SubmitScoping(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatal(err)
	}
	fillScheduling(t, env, wp.ID)
	if _, err := env.Engine.SubmitSchedulingToDCGG(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.ScheduleScheduling(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatal(err)
	}
	// detailed design and development have no gate
	if _, err := env.Engine.AdvanceToNextStage(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AdvanceToNextStage(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.RequestUAT(env.Ctx, wp.ID, "erin", strp("tester")); err != nil {
		t.Fatal(err)
	}
	approveAllTesting(t, env, wp.ID)
	if _, err := env.Engine.RequestServiceAcceptance(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SubmitTesting(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatal(err)
	}
	fillDeployment(t, env, wp.ID)
	if _, err := env.Engine.AcceptDeploymentService(env.Ctx, wp.ID, strp("tester")); err != nil {
		t.Fatal(err)
	}
	final, err := env.Engine.ApproveDeployment(env.Ctx, wp.ID, strp("tester"))
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed", final.Status)
	}
}

func TestCancelIsAbsorbing(t *testing.T) {
	env := newTestEnv(t)
	wp := createWP(t, env)
	wp2, err := env.Engine.CancelWorkPackage(env.Ctx, wp.ID, strp("tester"))
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if wp2.Status != domain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", wp2.Status)
	}
	if _, err := env.Engine.CancelWorkPackage(env.Ctx, wp.ID, nil); err == nil {
		t.Fatal("expected conflict on double cancel")
	}
	if _, err := env.Engine.AdvanceToNextStage(env.Ctx, wp.ID, nil); err == nil {
		t.Fatal("expected conflict advancing a cancelled package")
	}
	if _, err := env.Engine.SaveIdeation(env.Ctx, wp.ID, nil, engine.IdeationForm{
		Summary: strp("late edit"),
	}); err == nil {
		t.Fatal("expected conflict editing a cancelled package")
	}
}

func TestSaveDeployedRequiresDate(t *testing.T) {
	env := newTestEnv(t)
	wp := createWP(t, env)

	_, err := env.Engine.SaveDeployed(env.Ctx, wp.ID, nil, engine.DeployedForm{})
	if err == nil {
		t.Fatal("expected error for empty form")
	}
	_, err = env.Engine.SaveDeployed(env.Ctx, wp.ID, nil, engine.DeployedForm{
		DeployedBy: strp("dave"),
	})
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error without deployment date, got %v", err)
	}
	rec, err := env.Engine.SaveDeployed(env.Ctx, wp.ID, nil, engine.DeployedForm{
		DeploymentDate: strp("2026-04-01"),
		DeployedBy:     strp("dave"),
	})
	if err != nil {
		t.Fatalf("save deployment: %v", err)
	}
	if rec.DeploymentDate != "2026-04-01" || rec.DeployedBy != "dave" {
		t.Fatalf("record = %+v", rec)
	}
	// later partial saves keep the stored date
	rec, err = env.Engine.SaveDeployed(env.Ctx, wp.ID, nil, engine.DeployedForm{
		RollbackPlan: strp("restore previous release"),
	})
	if err != nil {
		t.Fatalf("partial save: %v", err)
	}
	if rec.DeploymentDate != "2026-04-01" {
		t.Fatalf("deployment date lost on partial save: %+v", rec)
	}
}

func TestListWorkPackagesExcludesCancelled(t *testing.T) {
	env := newTestEnv(t)
	a := createWP(t, env)
	b, err := env.Engine.CreateWorkPackage(env.Ctx, "Second package", "owner-2", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CancelWorkPackage(env.Ctx, b.ID, nil); err != nil {
		t.Fatal(err)
	}

	items, err := env.Engine.Repo.ListWorkPackages(env.Ctx, repoFilters(false))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != a.ID {
		t.Fatalf("items = %+v, want only the active package", items)
	}
	items, err = env.Engine.Repo.ListWorkPackages(env.Ctx, repoFilters(true))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v, want both packages", items)
	}
}
