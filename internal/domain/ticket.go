package domain

import "time"

// TicketStatus enumerates lifecycle states for work orders.
type TicketStatus string

const (
	TicketStatusNew             TicketStatus = "new"
	TicketStatusNeedsInfo       TicketStatus = "needs_info"
	TicketStatusScheduled       TicketStatus = "scheduled"
	TicketStatusDispatched      TicketStatus = "dispatched"
	TicketStatusOnSite          TicketStatus = "on_site"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusWaitingApproval TicketStatus = "waiting_approval"
	TicketStatusCompleted       TicketStatus = "completed"
	TicketStatusInvoiced        TicketStatus = "invoiced"
	TicketStatusCancelled       TicketStatus = "cancelled"
)

// TicketSeverity enumerates response urgency.
type TicketSeverity string

const (
	SeverityStandard  TicketSeverity = "standard"
	SeverityUrgent    TicketSeverity = "urgent"
	SeverityEmergency TicketSeverity = "emergency"
)

// IssueType enumerates the plumbing problem categories a reporter can pick.
type IssueType string

const (
	IssueActiveLeak    IssueType = "active_leak"
	IssueSewerBackup   IssueType = "sewer_backup"
	IssueGasSmell      IssueType = "gas_smell"
	IssueWaterHeater   IssueType = "water_heater"
	IssueDrainClog     IssueType = "drain_clog"
	IssueFixtureRepair IssueType = "fixture_repair"
	IssueLowPressure   IssueType = "low_pressure"
	IssueToiletRepair  IssueType = "toilet_repair"
	IssueOther         IssueType = "other"
)

// TimeWindow is a coarse scheduling slot within a day.
type TimeWindow string

const (
	WindowMorning   TimeWindow = "morning"
	WindowAfternoon TimeWindow = "afternoon"
	WindowEvening   TimeWindow = "evening"
)

// SchedulePreference is the reporter's stated availability: either "as soon
// as possible" or a preferred date plus window. When ASAP is true, Date and
// Window are ignored.
type SchedulePreference struct {
	ASAP   bool
	Date   *time.Time
	Window *TimeWindow
}

// Ticket is the aggregate for plumbing work orders. It is owned by the
// workflow service and mutated only through validated transitions; once it
// reaches a terminal status it never changes again.
type Ticket struct {
	ID                 string
	Number             int64
	BuildingID         string
	SpaceID            string
	CreatedByID        string
	IssueType          IssueType
	Severity           TicketSeverity
	Status             TicketStatus
	Description        string
	AccessInstructions string
	TechnicianID       *string
	ScheduledDate      *time.Time
	ScheduledWindow    *TimeWindow
	QuoteAmountCents   *int64
	InvoiceNumber      *string
	DeclineReason      *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CompletedAt        *time.Time
}
