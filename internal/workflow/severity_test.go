package workflow

import (
	"testing"

	"github.com/proroto/workorder-service/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name        string
		issueType   domain.IssueType
		description string
		want        domain.TicketSeverity
	}{
		{"active leak defaults to emergency", domain.IssueActiveLeak, "pipe under the sink", domain.SeverityEmergency},
		{"sewer backup defaults to emergency", domain.IssueSewerBackup, "basement drain", domain.SeverityEmergency},
		{"gas smell defaults to emergency", domain.IssueGasSmell, "near the stove", domain.SeverityEmergency},
		{"water heater defaults to urgent", domain.IssueWaterHeater, "no hot water since yesterday", domain.SeverityUrgent},
		{"unknown type defaults to standard", domain.IssueFixtureRepair, "handle is loose", domain.SeverityStandard},
		{"keyword escalates standard type", domain.IssueDrainClog, "sink backing up with sewage smell", domain.SeverityEmergency},
		{"keyword escalates urgent type", domain.IssueWaterHeater, "tank is dripping on the floor", domain.SeverityEmergency},
		{"keyword match is case insensitive", domain.IssueFixtureRepair, "BURST supply line", domain.SeverityEmergency},
		{"keyword matches as substring", domain.IssueFixtureRepair, "signs of flooding in the hallway", domain.SeverityEmergency},
		{"no keyword stays standard", domain.IssueDrainClog, "slow draining tub", domain.SeverityStandard},
		{"empty description keeps the default", domain.IssueWaterHeater, "", domain.SeverityUrgent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.issueType, tc.description); got != tc.want {
				t.Errorf("Classify(%s, %q) = %s, want %s", tc.issueType, tc.description, got, tc.want)
			}
		})
	}
}

func TestEscalates(t *testing.T) {
	cases := []struct {
		description string
		want        bool
	}{
		{"water is leaking through the ceiling", true},
		{"smells like rotten eggs near the meter", true},
		{"faucet handle is loose", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := Escalates(tc.description); got != tc.want {
			t.Errorf("Escalates(%q) = %v, want %v", tc.description, got, tc.want)
		}
	}
}
