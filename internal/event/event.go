// Package event defines the closed set of domain events emitted by the
// lifecycle engine after a gated action commits, and the publisher hook the
// dispatcher plugs into. Events are in-memory values; they are not persisted
// and exist only for the duration of dispatch.
package event

import "stagegate/internal/domain"

// Type is a domain event key. Notification rules match on these values.
type Type string

const (
	TypeWorkPackageCreated         Type = "workpackage.created"
	TypeStageChanged               Type = "workpackage.stage_changed"
	TypeWorkPackageCancelled       Type = "workpackage.cancelled"
	TypeFeasibilityApproved        Type = "feasibility.approved"
	TypeFeasibilityRejected        Type = "feasibility.rejected"
	TypeScopingSubmitted           Type = "scoping.submitted"
	TypeSchedulingSubmittedToDCGG  Type = "scheduling.submitted_to_dcgg"
	TypeSchedulingScheduled        Type = "scheduling.scheduled"
	TypeUATRequested               Type = "testing.uat_requested"
	TypeUATAccepted                Type = "testing.uat_accepted"
	TypeUATRejected                Type = "testing.uat_rejected"
	TypeServiceAcceptanceRequested Type = "testing.service_acceptance_requested"
	TypeTestingSubmitted           Type = "testing.submitted"
	TypeDeploymentServiceAccepted  Type = "deployment.service_accepted"
	TypeDeploymentApproved         Type = "deployment.approved"
)

// Event carries the work package and any action-specific payload to
// subscribers. Stage is the rule discriminator: for action-specific events it
// is the stage the action was taken in, for stage_changed and cancellation
// events it is the stage entered. WorkPackage always reflects post-action
// state, so on auto-advancing actions its status differs from Stage.
type Event struct {
	Type        Type
	WorkPackage domain.WorkPackage
	Stage       domain.Status
	ActorID     *string
	Payload     map[string]any
}

// Publisher receives each event exactly once per successful gated action,
// after the transactional state change is durable. A nil publisher is valid
// and drops events.
type Publisher func(Event)
