// Package engine implements the gated lifecycle actions. Every action runs as
// a single transaction: re-read state, validate, mutate, append history,
// commit. Domain events are published only after the commit is durable, so a
// failed mail dispatch can never roll back a transition.
package engine

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"stagegate/internal/config"
	"stagegate/internal/domain"
	"stagegate/internal/event"
	"stagegate/internal/history"
	"stagegate/internal/repo"
)

type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	History history.Writer
	Publish event.Publisher
	Config  *config.Config
	Now     func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:      db,
		Repo:    repo.Repo{DB: db},
		History: history.Writer{Now: time.Now},
		Config:  cfg,
		Now:     time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) publish(events ...event.Event) {
	if e.Publish == nil {
		return
	}
	for _, ev := range events {
		e.Publish(ev)
	}
}

// historyWriter keeps the history clock aligned with the engine clock so
// tests with a frozen Now see consistent timestamps.
func (e Engine) historyWriter() history.Writer {
	w := e.History
	if w.Now == nil {
		w.Now = e.now
	}
	return w
}

func requireStage(wp domain.WorkPackage, want domain.Status) error {
	if wp.Status != want {
		return conflictf("work package %s is in %s, action requires %s", wp.ID, wp.Status, want)
	}
	return nil
}

// CreateWorkPackage creates a work package in Ideation together with its nine
// empty stage records.
func (e Engine) CreateWorkPackage(ctx context.Context, title, ownerID string, actorID *string) (domain.WorkPackage, error) {
	if title == "" {
		return domain.WorkPackage{}, fieldError("title", "is required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	defer tx.Rollback()

	now := e.timestamp()
	wp := domain.WorkPackage{
		ID:        uuid.NewString(),
		Title:     title,
		OwnerID:   ownerID,
		Status:    domain.StatusIdeation,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Repo.InsertWorkPackageTx(ctx, tx, wp); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := e.Repo.InsertStageRecordsTx(ctx, tx, wp.ID); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, wp.ID, actorID, "Created work package"); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkPackage{}, err
	}
	e.publish(event.Event{
		Type:        event.TypeWorkPackageCreated,
		WorkPackage: wp,
		Stage:       wp.Status,
		ActorID:     actorID,
	})
	return wp, nil
}

// advance moves the package to the next stage inside an open transaction and
// returns the stage-changed event to publish after commit.
func (e Engine) advance(ctx context.Context, tx *sql.Tx, wp *domain.WorkPackage, actorID *string) (event.Event, error) {
	from := wp.Status
	next := from.Next()
	if next == "" {
		return event.Event{}, conflictf("work package %s has no next stage from %s", wp.ID, from)
	}
	now := e.timestamp()
	if err := e.Repo.UpdateWorkPackageStatusTx(ctx, tx, wp.ID, next, now); err != nil {
		return event.Event{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, wp.ID, actorID, "Advanced to "+string(next)); err != nil {
		return event.Event{}, err
	}
	wp.Status = next
	wp.UpdatedAt = now
	return event.Event{
		Type:        event.TypeStageChanged,
		WorkPackage: *wp,
		Stage:       next,
		ActorID:     actorID,
		Payload:     map[string]any{"from": string(from), "to": string(next)},
	}, nil
}

// AdvanceToNextStage moves a work package one stage forward without gate
// checks. Gated stages have their own actions; this is the manual override.
func (e Engine) AdvanceToNextStage(ctx context.Context, id string, actorID *string) (domain.WorkPackage, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	defer tx.Rollback()

	wp, err := e.Repo.GetWorkPackageTx(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if wp.Status.Terminal() {
		return domain.WorkPackage{}, conflictf("work package %s is %s", wp.ID, wp.Status)
	}
	ev, err := e.advance(ctx, tx, &wp, actorID)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkPackage{}, err
	}
	e.publish(ev)
	return wp, nil
}

// CancelWorkPackage moves a work package to the absorbing Cancelled state.
// Completed and already-cancelled packages are refused.
func (e Engine) CancelWorkPackage(ctx context.Context, id string, actorID *string) (domain.WorkPackage, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	defer tx.Rollback()

	wp, err := e.Repo.GetWorkPackageTx(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if wp.Status.Terminal() {
		return domain.WorkPackage{}, conflictf("work package %s is %s and cannot be cancelled", wp.ID, wp.Status)
	}
	now := e.timestamp()
	if err := e.Repo.UpdateWorkPackageStatusTx(ctx, tx, wp.ID, domain.StatusCancelled, now); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, wp.ID, actorID, "Cancelled work package"); err != nil {
		return domain.WorkPackage{}, err
	}
	from := wp.Status
	wp.Status = domain.StatusCancelled
	wp.UpdatedAt = now
	if err := tx.Commit(); err != nil {
		return domain.WorkPackage{}, err
	}
	e.publish(event.Event{
		Type:        event.TypeWorkPackageCancelled,
		WorkPackage: wp,
		Stage:       domain.StatusCancelled,
		ActorID:     actorID,
		Payload:     map[string]any{"from": string(from)},
	})
	return wp, nil
}

// ApproveFeasibility approves the feasibility assessment and advances the
// package to Scoping. All required assessment fields must be filled, and a
// reusable existing solution must carry notes explaining why it is not used.
func (e Engine) ApproveFeasibility(ctx context.Context, id string, actorID *string) (domain.WorkPackage, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	defer tx.Rollback()

	wp, err := e.Repo.GetWorkPackageTx(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := requireStage(wp, domain.StatusFeasibility); err != nil {
		return domain.WorkPackage{}, err
	}
	rec, err := e.Repo.GetFeasibility(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if missing := rec.MissingForApproval(); len(missing) > 0 {
		return domain.WorkPackage{}, missingFieldsError(missing, "is required for approval")
	}
	if rec.BlockedByExistingSolution() {
		return domain.WorkPackage{}, fieldError("existing_solution_notes",
			"an existing solution is available; explain why it is not being used")
	}
	now := e.timestamp()
	rec.ApprovalStatus = domain.SignOffApproved
	rec.RejectReason = ""
	rec.ActionedBy = actorID
	rec.ActionedAt = &now
	if err := e.Repo.UpdateFeasibility(ctx, tx, rec); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Approved feasibility"); err != nil {
		return domain.WorkPackage{}, err
	}
	stage := wp.Status
	stageEv, err := e.advance(ctx, tx, &wp, actorID)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkPackage{}, err
	}
	e.publish(event.Event{
		Type:        event.TypeFeasibilityApproved,
		WorkPackage: wp,
		Stage:       stage,
		ActorID:     actorID,
	}, stageEv)
	return wp, nil
}

// RejectFeasibility records a rejection with a mandatory reason. The package
// stays in Feasibility so the assessment can be revised and resubmitted.
func (e Engine) RejectFeasibility(ctx context.Context, id, reason string, actorID *string) (domain.WorkPackage, error) {
	if reason == "" {
		return domain.WorkPackage{}, fieldError("reason", "is required for rejection")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	defer tx.Rollback()

	wp, err := e.Repo.GetWorkPackageTx(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := requireStage(wp, domain.StatusFeasibility); err != nil {
		return domain.WorkPackage{}, err
	}
	rec, err := e.Repo.GetFeasibility(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	now := e.timestamp()
	rec.ApprovalStatus = domain.SignOffRejected
	rec.RejectReason = reason
	rec.ActionedBy = actorID
	rec.ActionedAt = &now
	if err := e.Repo.UpdateFeasibility(ctx, tx, rec); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Rejected feasibility: "+reason); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkPackage{}, err
	}
	e.publish(event.Event{
		Type:        event.TypeFeasibilityRejected,
		WorkPackage: wp,
		Stage:       wp.Status,
		ActorID:     actorID,
		Payload:     map[string]any{"reason": reason},
	})
	return wp, nil
}

// SubmitScoping submits the completed scoping assessment and advances the
// package to Scheduling.
func (e Engine) SubmitScoping(ctx context.Context, id string, actorID *string) (domain.WorkPackage, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	defer tx.Rollback()

	wp, err := e.Repo.GetWorkPackageTx(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := requireStage(wp, domain.StatusScoping); err != nil {
		return domain.WorkPackage{}, err
	}
	rec, err := e.Repo.GetScoping(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if missing := rec.MissingForSubmit(); len(missing) > 0 {
		return domain.WorkPackage{}, missingFieldsError(missing, "is required for submission")
	}
	now := e.timestamp()
	rec.SubmittedBy = actorID
	rec.SubmittedAt = &now
	if err := e.Repo.UpdateScoping(ctx, tx, rec); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Submitted scoping"); err != nil {
		return domain.WorkPackage{}, err
	}
	stage := wp.Status
	stageEv, err := e.advance(ctx, tx, &wp, actorID)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkPackage{}, err
	}
	e.publish(event.Event{
		Type:        event.TypeScopingSubmitted,
		WorkPackage: wp,
		Stage:       stage,
		ActorID:     actorID,
	}, stageEv)
	return wp, nil
}

// SubmitSchedulingToDCGG submits the delivery plan to the design and change
// governance group. The package stays in Scheduling until the change board
// stamps a schedule.
func (e Engine) SubmitSchedulingToDCGG(ctx context.Context, id string, actorID *string) (domain.WorkPackage, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	defer tx.Rollback()

	wp, err := e.Repo.GetWorkPackageTx(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := requireStage(wp, domain.StatusScheduling); err != nil {
		return domain.WorkPackage{}, err
	}
	rec, err := e.Repo.GetScheduling(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if missing := rec.MissingForSubmit(); len(missing) > 0 {
		return domain.WorkPackage{}, missingFieldsError(missing, "is required for DCGG submission")
	}
	now := e.timestamp()
	rec.SubmittedBy = actorID
	rec.SubmittedAt = &now
	if err := e.Repo.UpdateScheduling(ctx, tx, rec); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Submitted scheduling to DCGG"); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkPackage{}, err
	}
	e.publish(event.Event{
		Type:        event.TypeSchedulingSubmittedToDCGG,
		WorkPackage: wp,
		Stage:       wp.Status,
		ActorID:     actorID,
	})
	return wp, nil
}

// ScheduleScheduling records the change board's scheduling decision and
// advances the package to DetailedDesign. Requires a prior DCGG submission.
func (e Engine) ScheduleScheduling(ctx context.Context, id string, actorID *string) (domain.WorkPackage, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	defer tx.Rollback()

	wp, err := e.Repo.GetWorkPackageTx(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := requireStage(wp, domain.StatusScheduling); err != nil {
		return domain.WorkPackage{}, err
	}
	rec, err := e.Repo.GetScheduling(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if rec.SubmittedAt == nil {
		return domain.WorkPackage{}, conflictf("work package %s has not been submitted to DCGG", id)
	}
	if !rec.IsReadyForSchedule() {
		return domain.WorkPackage{}, fieldError("change_board_date", "is required for scheduling")
	}
	now := e.timestamp()
	rec.ScheduledBy = actorID
	rec.ScheduledAt = &now
	if err := e.Repo.UpdateScheduling(ctx, tx, rec); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Scheduled by change board"); err != nil {
		return domain.WorkPackage{}, err
	}
	stage := wp.Status
	stageEv, err := e.advance(ctx, tx, &wp, actorID)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkPackage{}, err
	}
	e.publish(event.Event{
		Type:        event.TypeSchedulingScheduled,
		WorkPackage: wp,
		Stage:       stage,
		ActorID:     actorID,
	}, stageEv)
	return wp, nil
}

// RequestUAT assigns a tester and records the UAT request. A second request
// is refused while the first is outstanding.
func (e Engine) RequestUAT(ctx context.Context, id, testerID string, actorID *string) (domain.WorkPackage, error) {
	if testerID == "" {
		return domain.WorkPackage{}, fieldError("uat_tester_id", "is required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	defer tx.Rollback()

	wp, err := e.Repo.GetWorkPackageTx(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := requireStage(wp, domain.StatusTesting); err != nil {
		return domain.WorkPackage{}, err
	}
	rec, err := e.Repo.GetTesting(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if rec.HasUATRequest() {
		return domain.WorkPackage{}, conflictf("UAT already requested for work package %s", id)
	}
	now := e.timestamp()
	rec.UATTesterID = testerID
	rec.UATRequestedBy = actorID
	rec.UATRequestedAt = &now
	if err := e.Repo.UpdateTesting(ctx, tx, rec); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Requested UAT from "+testerID); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkPackage{}, err
	}
	e.publish(event.Event{
		Type:        event.TypeUATRequested,
		WorkPackage: wp,
		Stage:       wp.Status,
		ActorID:     actorID,
		Payload:     map[string]any{"uat_tester_id": testerID},
	})
	return wp, nil
}

// RequestServiceAcceptance asks service teams to review a package whose UAT
// has been accepted.
func (e Engine) RequestServiceAcceptance(ctx context.Context, id string, actorID *string) (domain.WorkPackage, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	defer tx.Rollback()

	wp, err := e.Repo.GetWorkPackageTx(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := requireStage(wp, domain.StatusTesting); err != nil {
		return domain.WorkPackage{}, err
	}
	rec, err := e.Repo.GetTesting(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if !rec.IsReadyForServiceAcceptance() {
		return domain.WorkPackage{}, fieldError("user_acceptance", "must be approved before requesting service acceptance")
	}
	now := e.timestamp()
	rec.ServiceAcceptanceRequestedBy = actorID
	rec.ServiceAcceptanceRequestedAt = &now
	if err := e.Repo.UpdateTesting(ctx, tx, rec); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Requested service acceptance"); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkPackage{}, err
	}
	e.publish(event.Event{
		Type:        event.TypeServiceAcceptanceRequested,
		WorkPackage: wp,
		Stage:       wp.Status,
		ActorID:     actorID,
	})
	return wp, nil
}

// SubmitTesting closes the testing stage once all five sign-offs are approved
// and advances the package to Deployed.
func (e Engine) SubmitTesting(ctx context.Context, id string, actorID *string) (domain.WorkPackage, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	defer tx.Rollback()

	wp, err := e.Repo.GetWorkPackageTx(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := requireStage(wp, domain.StatusTesting); err != nil {
		return domain.WorkPackage{}, err
	}
	rec, err := e.Repo.GetTesting(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if missing := rec.MissingForSubmit(); len(missing) > 0 {
		return domain.WorkPackage{}, missingFieldsError(missing, "must be approved before submission")
	}
	now := e.timestamp()
	rec.SubmittedBy = actorID
	rec.SubmittedAt = &now
	if err := e.Repo.UpdateTesting(ctx, tx, rec); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Submitted testing"); err != nil {
		return domain.WorkPackage{}, err
	}
	stage := wp.Status
	stageEv, err := e.advance(ctx, tx, &wp, actorID)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkPackage{}, err
	}
	e.publish(event.Event{
		Type:        event.TypeTestingSubmitted,
		WorkPackage: wp,
		Stage:       stage,
		ActorID:     actorID,
	}, stageEv)
	return wp, nil
}

// AcceptDeploymentService records service acceptance of the deployment. The
// readiness fields (date, deployer, support documentation, rollback plan)
// must all be filled first.
func (e Engine) AcceptDeploymentService(ctx context.Context, id string, actorID *string) (domain.WorkPackage, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	defer tx.Rollback()

	wp, err := e.Repo.GetWorkPackageTx(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := requireStage(wp, domain.StatusDeployed); err != nil {
		return domain.WorkPackage{}, err
	}
	rec, err := e.Repo.GetDeployed(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if rec.HasServiceAcceptance() {
		return domain.WorkPackage{}, conflictf("deployment of work package %s is already service accepted", id)
	}
	if missing := rec.MissingForServiceAcceptance(); len(missing) > 0 {
		return domain.WorkPackage{}, missingFieldsError(missing, "is required for service acceptance")
	}
	now := e.timestamp()
	rec.ServiceAcceptedBy = actorID
	rec.ServiceAcceptedAt = &now
	if err := e.Repo.UpdateDeployed(ctx, tx, rec); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Service accepted deployment"); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkPackage{}, err
	}
	e.publish(event.Event{
		Type:        event.TypeDeploymentServiceAccepted,
		WorkPackage: wp,
		Stage:       wp.Status,
		ActorID:     actorID,
	})
	return wp, nil
}

// ApproveDeployment grants final approval and advances the package to
// Completed. Requires prior service acceptance and all three handover
// sign-offs.
func (e Engine) ApproveDeployment(ctx context.Context, id string, actorID *string) (domain.WorkPackage, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	defer tx.Rollback()

	wp, err := e.Repo.GetWorkPackageTx(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := requireStage(wp, domain.StatusDeployed); err != nil {
		return domain.WorkPackage{}, err
	}
	rec, err := e.Repo.GetDeployed(ctx, tx, id)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if rec.NeedsServiceAcceptance() {
		return domain.WorkPackage{}, conflictf("deployment of work package %s has not been service accepted", id)
	}
	if missing := rec.MissingForApproval(); len(missing) > 0 {
		return domain.WorkPackage{}, missingFieldsError(missing, "is required for deployment approval")
	}
	now := e.timestamp()
	rec.DeploymentApprovedBy = actorID
	rec.DeploymentApprovedAt = &now
	if err := e.Repo.UpdateDeployed(ctx, tx, rec); err != nil {
		return domain.WorkPackage{}, err
	}
	if err := e.historyWriter().Append(ctx, tx, id, actorID, "Approved deployment"); err != nil {
		return domain.WorkPackage{}, err
	}
	stage := wp.Status
	stageEv, err := e.advance(ctx, tx, &wp, actorID)
	if err != nil {
		return domain.WorkPackage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkPackage{}, err
	}
	e.publish(event.Event{
		Type:        event.TypeDeploymentApproved,
		WorkPackage: wp,
		Stage:       stage,
		ActorID:     actorID,
	}, stageEv)
	return wp, nil
}
