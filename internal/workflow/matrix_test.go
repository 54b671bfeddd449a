package workflow

import (
	"testing"

	"github.com/proroto/workorder-service/internal/domain"
)

func TestAllowedTargetsCanonicalTable(t *testing.T) {
	cases := []struct {
		name    string
		from    domain.TicketStatus
		role    domain.Role
		targets []domain.TicketStatus
	}{
		{
			name: "contractor from new",
			from: domain.TicketStatusNew,
			role: domain.RoleContractorAdmin,
			targets: []domain.TicketStatus{
				domain.TicketStatusNeedsInfo, domain.TicketStatusScheduled, domain.TicketStatusCancelled,
			},
		},
		{
			name:    "pm admin from new",
			from:    domain.TicketStatusNew,
			role:    domain.RolePMAdmin,
			targets: []domain.TicketStatus{domain.TicketStatusCancelled},
		},
		{
			name: "contractor from needs_info",
			from: domain.TicketStatusNeedsInfo,
			role: domain.RoleContractorAdmin,
			targets: []domain.TicketStatus{
				domain.TicketStatusNew, domain.TicketStatusScheduled, domain.TicketStatusCancelled,
			},
		},
		{
			name:    "pm user from needs_info",
			from:    domain.TicketStatusNeedsInfo,
			role:    domain.RolePMUser,
			targets: []domain.TicketStatus{domain.TicketStatusNew, domain.TicketStatusCancelled},
		},
		{
			name: "contractor from scheduled",
			from: domain.TicketStatusScheduled,
			role: domain.RoleContractorAdmin,
			targets: []domain.TicketStatus{
				domain.TicketStatusDispatched, domain.TicketStatusNeedsInfo, domain.TicketStatusCancelled,
			},
		},
		{
			name:    "pm has no rights from scheduled",
			from:    domain.TicketStatusScheduled,
			role:    domain.RolePMAdmin,
			targets: nil,
		},
		{
			name: "contractor from dispatched",
			from: domain.TicketStatusDispatched,
			role: domain.RoleContractorAdmin,
			targets: []domain.TicketStatus{
				domain.TicketStatusOnSite, domain.TicketStatusScheduled, domain.TicketStatusCancelled,
			},
		},
		{
			name: "contractor from on_site",
			from: domain.TicketStatusOnSite,
			role: domain.RoleContractorAdmin,
			targets: []domain.TicketStatus{
				domain.TicketStatusInProgress, domain.TicketStatusCancelled,
			},
		},
		{
			name: "contractor from in_progress",
			from: domain.TicketStatusInProgress,
			role: domain.RoleContractorAdmin,
			targets: []domain.TicketStatus{
				domain.TicketStatusWaitingApproval, domain.TicketStatusCompleted, domain.TicketStatusCancelled,
			},
		},
		{
			name: "contractor from waiting_approval",
			from: domain.TicketStatusWaitingApproval,
			role: domain.RoleContractorAdmin,
			targets: []domain.TicketStatus{
				domain.TicketStatusScheduled, domain.TicketStatusInProgress, domain.TicketStatusCancelled,
			},
		},
		{
			name: "pm admin from waiting_approval",
			from: domain.TicketStatusWaitingApproval,
			role: domain.RolePMAdmin,
			targets: []domain.TicketStatus{
				domain.TicketStatusScheduled, domain.TicketStatusCancelled,
			},
		},
		{
			name:    "contractor from completed",
			from:    domain.TicketStatusCompleted,
			role:    domain.RoleContractorAdmin,
			targets: []domain.TicketStatus{domain.TicketStatusInvoiced},
		},
		{
			name:    "invoiced is terminal for contractor",
			from:    domain.TicketStatusInvoiced,
			role:    domain.RoleContractorAdmin,
			targets: nil,
		},
		{
			name:    "cancelled is terminal for pm",
			from:    domain.TicketStatusCancelled,
			role:    domain.RolePMAdmin,
			targets: nil,
		},
		{
			name:    "resident has no rights anywhere",
			from:    domain.TicketStatusNew,
			role:    domain.RoleResident,
			targets: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AllowedTargets(tc.from, tc.role)
			if len(got) != len(tc.targets) {
				t.Fatalf("AllowedTargets(%s, %s) = %v, want %v", tc.from, tc.role, got, tc.targets)
			}
			for i, target := range tc.targets {
				if got[i] != target {
					t.Errorf("AllowedTargets(%s, %s)[%d] = %s, want %s", tc.from, tc.role, i, got[i], target)
				}
			}
		})
	}
}

func TestIsAllowedDeniesEverythingOutsideTable(t *testing.T) {
	for _, from := range AllStatuses {
		for _, role := range MatrixRoles {
			allowed := make(map[domain.TicketStatus]bool)
			for _, target := range AllowedTargets(from, role) {
				allowed[target] = true
			}
			for _, target := range AllStatuses {
				got := IsAllowed(from, target, role)
				if got != allowed[target] {
					t.Errorf("IsAllowed(%s, %s, %s) = %v, want %v", from, target, role, got, allowed[target])
				}
			}
		}
	}
}

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		status domain.TicketStatus
		want   bool
	}{
		{domain.TicketStatusInvoiced, true},
		{domain.TicketStatusCancelled, true},
		{domain.TicketStatusNew, false},
		{domain.TicketStatusWaitingApproval, false},
		{domain.TicketStatusCompleted, false},
	}
	for _, tc := range cases {
		if got := IsTerminal(tc.status); got != tc.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

// Every status reachable from new must be reachable without passing through
// a terminal status, and terminal statuses must have no outgoing edges at
// all.
func TestNoPathLeavesTerminalStatus(t *testing.T) {
	reachable := map[domain.TicketStatus]bool{domain.TicketStatusNew: true}
	queue := []domain.TicketStatus{domain.TicketStatusNew}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, role := range MatrixRoles {
			for _, target := range AllowedTargets(current, role) {
				if IsTerminal(current) {
					t.Fatalf("terminal status %s has outgoing transition to %s", current, target)
				}
				if !reachable[target] {
					reachable[target] = true
					queue = append(queue, target)
				}
			}
		}
	}

	for _, status := range AllStatuses {
		if !reachable[status] {
			t.Errorf("status %s not reachable from new", status)
		}
	}
}

func TestRequiresDeclineReason(t *testing.T) {
	cases := []struct {
		name   string
		from   domain.TicketStatus
		to     domain.TicketStatus
		role   domain.Role
		want   bool
	}{
		{"pm admin declines quote", domain.TicketStatusWaitingApproval, domain.TicketStatusCancelled, domain.RolePMAdmin, true},
		{"pm user declines quote", domain.TicketStatusWaitingApproval, domain.TicketStatusCancelled, domain.RolePMUser, true},
		{"contractor cancel needs no reason", domain.TicketStatusWaitingApproval, domain.TicketStatusCancelled, domain.RoleContractorAdmin, false},
		{"pm approval back to scheduled", domain.TicketStatusWaitingApproval, domain.TicketStatusScheduled, domain.RolePMAdmin, false},
		{"pm cancel from new", domain.TicketStatusNew, domain.TicketStatusCancelled, domain.RolePMAdmin, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RequiresDeclineReason(tc.from, tc.to, tc.role); got != tc.want {
				t.Errorf("RequiresDeclineReason(%s, %s, %s) = %v, want %v", tc.from, tc.to, tc.role, got, tc.want)
			}
		})
	}
}

func TestLegalPairsCoversRuleTable(t *testing.T) {
	pairs := LegalPairs()
	seen := make(map[[2]domain.TicketStatus]bool, len(pairs))
	for _, pair := range pairs {
		if seen[pair] {
			t.Errorf("duplicate pair %v", pair)
		}
		seen[pair] = true
	}

	for _, from := range AllStatuses {
		for _, role := range MatrixRoles {
			for _, target := range AllowedTargets(from, role) {
				if !seen[[2]domain.TicketStatus{from, target}] {
					t.Errorf("pair (%s, %s) missing from LegalPairs", from, target)
				}
			}
		}
	}
}
