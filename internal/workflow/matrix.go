package workflow

import "github.com/proroto/workorder-service/internal/domain"

// transitionKey identifies one row of the rule table.
type transitionKey struct {
	from domain.TicketStatus
	role domain.Role
}

// ruleTable is the single authoritative source for legal status moves.
// Absence of a key means no transitions are permitted for that role from
// that status. PM admin and PM user rows are kept identical; residents have
// no mutation rights at all.
var ruleTable = map[transitionKey][]domain.TicketStatus{
	{domain.TicketStatusNew, domain.RoleContractorAdmin}: {
		domain.TicketStatusNeedsInfo, domain.TicketStatusScheduled, domain.TicketStatusCancelled,
	},
	{domain.TicketStatusNew, domain.RolePMAdmin}: {domain.TicketStatusCancelled},
	{domain.TicketStatusNew, domain.RolePMUser}:  {domain.TicketStatusCancelled},

	{domain.TicketStatusNeedsInfo, domain.RoleContractorAdmin}: {
		domain.TicketStatusNew, domain.TicketStatusScheduled, domain.TicketStatusCancelled,
	},
	{domain.TicketStatusNeedsInfo, domain.RolePMAdmin}: {domain.TicketStatusNew, domain.TicketStatusCancelled},
	{domain.TicketStatusNeedsInfo, domain.RolePMUser}:  {domain.TicketStatusNew, domain.TicketStatusCancelled},

	{domain.TicketStatusScheduled, domain.RoleContractorAdmin}: {
		domain.TicketStatusDispatched, domain.TicketStatusNeedsInfo, domain.TicketStatusCancelled,
	},

	{domain.TicketStatusDispatched, domain.RoleContractorAdmin}: {
		domain.TicketStatusOnSite, domain.TicketStatusScheduled, domain.TicketStatusCancelled,
	},

	{domain.TicketStatusOnSite, domain.RoleContractorAdmin}: {
		domain.TicketStatusInProgress, domain.TicketStatusCancelled,
	},

	{domain.TicketStatusInProgress, domain.RoleContractorAdmin}: {
		domain.TicketStatusWaitingApproval, domain.TicketStatusCompleted, domain.TicketStatusCancelled,
	},

	{domain.TicketStatusWaitingApproval, domain.RoleContractorAdmin}: {
		domain.TicketStatusScheduled, domain.TicketStatusInProgress, domain.TicketStatusCancelled,
	},
	{domain.TicketStatusWaitingApproval, domain.RolePMAdmin}: {
		domain.TicketStatusScheduled, domain.TicketStatusCancelled,
	},
	{domain.TicketStatusWaitingApproval, domain.RolePMUser}: {
		domain.TicketStatusScheduled, domain.TicketStatusCancelled,
	},

	{domain.TicketStatusCompleted, domain.RoleContractorAdmin}: {domain.TicketStatusInvoiced},
}

// AllStatuses lists every lifecycle state, in workflow order.
var AllStatuses = []domain.TicketStatus{
	domain.TicketStatusNew,
	domain.TicketStatusNeedsInfo,
	domain.TicketStatusScheduled,
	domain.TicketStatusDispatched,
	domain.TicketStatusOnSite,
	domain.TicketStatusInProgress,
	domain.TicketStatusWaitingApproval,
	domain.TicketStatusCompleted,
	domain.TicketStatusInvoiced,
	domain.TicketStatusCancelled,
}

// MatrixRoles lists the roles that appear in the rule table.
var MatrixRoles = []domain.Role{
	domain.RoleContractorAdmin,
	domain.RolePMAdmin,
	domain.RolePMUser,
	domain.RoleResident,
}

// AllowedTargets returns the statuses the given role may move a ticket to
// from the given status. The returned slice is a copy; empty when no rule
// exists.
func AllowedTargets(current domain.TicketStatus, role domain.Role) []domain.TicketStatus {
	targets := ruleTable[transitionKey{from: current, role: role}]
	out := make([]domain.TicketStatus, len(targets))
	copy(out, targets)
	return out
}

// IsAllowed reports whether the role may move a ticket from current to
// target.
func IsAllowed(current, target domain.TicketStatus, role domain.Role) bool {
	for _, candidate := range ruleTable[transitionKey{from: current, role: role}] {
		if candidate == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no role has any outgoing rule from the status.
func IsTerminal(status domain.TicketStatus) bool {
	for key := range ruleTable {
		if key.from == status {
			return false
		}
	}
	return true
}

// RequiresDeclineReason reports whether the transition is a PM-initiated
// quote decline, which must carry a non-empty reason.
func RequiresDeclineReason(current, target domain.TicketStatus, role domain.Role) bool {
	return current == domain.TicketStatusWaitingApproval &&
		target == domain.TicketStatusCancelled &&
		role.IsPM()
}

// LegalPairs returns the union over all roles of legal (from, to) pairs.
// The persistence layer seeds its transition guard from this set so the
// rule table stays authored in exactly one place.
func LegalPairs() [][2]domain.TicketStatus {
	seen := make(map[[2]domain.TicketStatus]struct{})
	var pairs [][2]domain.TicketStatus
	for key, targets := range ruleTable {
		for _, target := range targets {
			pair := [2]domain.TicketStatus{key.from, target}
			if _, ok := seen[pair]; ok {
				continue
			}
			seen[pair] = struct{}{}
			pairs = append(pairs, pair)
		}
	}
	return pairs
}
