package workflow

import (
	"strings"

	"github.com/proroto/workorder-service/internal/domain"
)

// severityByIssueType holds the default classification per issue type.
// Types not listed default to standard.
var severityByIssueType = map[domain.IssueType]domain.TicketSeverity{
	domain.IssueActiveLeak:  domain.SeverityEmergency,
	domain.IssueSewerBackup: domain.SeverityEmergency,
	domain.IssueGasSmell:    domain.SeverityEmergency,
	domain.IssueWaterHeater: domain.SeverityUrgent,
}

// emergencyKeywords escalate any ticket to emergency when found in the
// description. Matching is substring-based on the lower-cased text.
var emergencyKeywords = []string{
	"leak",
	"flood",
	"flooding",
	"water damage",
	"burst",
	"dripping",
	"sewage",
	"sewer",
	"backup",
	"overflow",
	"raw sewage",
	"gas",
	"gas smell",
	"rotten egg",
	"gas leak",
}

// Classify derives the initial severity from the issue type default and the
// free-text description. Keyword matches escalate to emergency; escalation
// is one-directional and evaluated once, at creation time.
func Classify(issueType domain.IssueType, description string) domain.TicketSeverity {
	severity, ok := severityByIssueType[issueType]
	if !ok {
		severity = domain.SeverityStandard
	}
	if severity != domain.SeverityEmergency && descriptionEscalates(description) {
		return domain.SeverityEmergency
	}
	return severity
}

// Escalates reports whether keyword detection alone would have raised the
// ticket to emergency, independent of the issue-type default. The creation
// endpoint surfaces this to the caller.
func Escalates(description string) bool {
	return descriptionEscalates(description)
}

func descriptionEscalates(description string) bool {
	lowered := strings.ToLower(description)
	for _, keyword := range emergencyKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
