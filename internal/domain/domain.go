package domain

// Status is the lifecycle stage a work package currently occupies.
type Status string

const (
	StatusIdeation       Status = "ideation"
	StatusFeasibility    Status = "feasibility"
	StatusScoping        Status = "scoping"
	StatusScheduling     Status = "scheduling"
	StatusDetailedDesign Status = "detailed_design"
	StatusDevelopment    Status = "development"
	StatusTesting        Status = "testing"
	StatusDeployed       Status = "deployed"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// StageOrder is the fixed forward ordering of lifecycle stages. Cancelled is
// an absorbing state outside the ordering.
var StageOrder = []Status{
	StatusIdeation,
	StatusFeasibility,
	StatusScoping,
	StatusScheduling,
	StatusDetailedDesign,
	StatusDevelopment,
	StatusTesting,
	StatusDeployed,
	StatusCompleted,
}

// Next returns the successor stage, or "" when there is none (Completed and
// Cancelled have no successor; unknown statuses fall through to "").
func (s Status) Next() Status {
	for i, st := range StageOrder {
		if st == s && i+1 < len(StageOrder) {
			return StageOrder[i+1]
		}
	}
	return ""
}

// Terminal reports whether no further forward transition exists.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Rank returns the position of s in the stage ordering, or -1 for Cancelled
// and unknown values.
func (s Status) Rank() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// ValidStatus reports whether s is one of the defined lifecycle values.
func ValidStatus(s Status) bool {
	return s == StatusCancelled || s.Rank() >= 0
}

// SignOff is a tri-value approval field on a stage record. It is set only by
// an explicit approval or rejection action, never implicitly.
type SignOff string

const (
	SignOffPending  SignOff = "pending"
	SignOffApproved SignOff = "approved"
	SignOffRejected SignOff = "rejected"
)

func (s SignOff) Approved() bool { return s == SignOffApproved }

// WorkPackage is a tracked piece of IT work moving through the lifecycle.
// Each work package owns exactly one record of every stage type, created
// together at creation time and populated lazily by form saves.
type WorkPackage struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	OwnerID   string `json:"owner_id"`
	Status    Status `json:"status" enum:"ideation,feasibility,scoping,scheduling,detailed_design,development,testing,deployed,completed,cancelled"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

// HistoryEntry is an immutable audit row: who did what to a work package and
// when. A nil actor means a system-initiated action.
type HistoryEntry struct {
	ID            string  `json:"id"`
	WorkPackageID string  `json:"workpackage_id"`
	ActorID       *string `json:"actor_id,omitempty"`
	Description   string  `json:"description"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

// User is a notification recipient and potential actor.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Role groups users for recipient resolution (e.g. service-leads).
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RecipientSpec names who a notification rule addresses. Ids may go stale;
// resolution skips missing ones rather than failing the dispatch.
type RecipientSpec struct {
	Roles []string `json:"roles,omitempty"`
	Users []string `json:"users,omitempty"`
}

// NotificationRule maps an event key (plus an optional stage discriminator)
// to a recipient specification. Rules are authored by admins and consumed
// read-only by the dispatcher.
type NotificationRule struct {
	ID         string        `json:"id"`
	EventKey   string        `json:"event_key"`
	Stage      Status        `json:"stage,omitempty"`
	Recipients RecipientSpec `json:"recipients"`
	Active     bool          `json:"active"`
	CreatedAt  string        `json:"created_at" format:"date-time"`
}

// Matches reports whether the rule applies to an event of the given key and
// stage. A rule without a stage discriminator matches any stage.
func (r NotificationRule) Matches(eventKey string, stage Status) bool {
	if !r.Active || r.EventKey != eventKey {
		return false
	}
	if r.Stage == "" {
		return true
	}
	return r.Stage == stage
}

// APIKey is a hashed credential for non-interactive clients. The plaintext
// key is shown once at creation and only its hash is stored.
type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Outbound mail states.
const (
	MailQueued = "queued"
	MailSent   = "sent"
)

// OutboundMail is one queued message per matched rule, addressed to the full
// resolved recipient set.
type OutboundMail struct {
	ID         string   `json:"id"`
	RuleID     string   `json:"rule_id"`
	TemplateID string   `json:"template_id"`
	To         []string `json:"to"`
	Subject    string   `json:"subject"`
	Payload    string   `json:"payload_json,omitempty"`
	Status     string   `json:"status" enum:"queued,sent"`
	Attempts   int      `json:"attempts"`
	CreatedAt  string   `json:"created_at" format:"date-time"`
	SentAt     *string  `json:"sent_at,omitempty" format:"date-time"`
}
