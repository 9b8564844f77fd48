// Package taxonomy holds the closed Category -> Event -> Sub-event table used
// to classify store audio segments. Anything outside this table is not a
// valid classification.
package taxonomy

import (
	"fmt"
	"strings"
)

type Event struct {
	Name      string
	SubEvents []string
}

type Category struct {
	Name   string
	Events []Event
}

var categories = []Category{
	{
		Name: "Transactional",
		Events: []Event{
			{Name: "Check-out Issues", SubEvents: []string{
				"Scanning/Bar-code Issues",
				"Incorrect Shelf Tags",
				"POS Hardware Malfunction/Payment Issues",
				"Pricing Confusion",
				"Cash Handling",
			}},
		},
	},
	{
		Name: "Operational",
		Events: []Event{
			{Name: "Inventory Related", SubEvents: []string{
				"Out of Stock",
				"Expired Products",
				"Damaged Goods",
				"Restocking Delays",
			}},
			{Name: "Facility Issue", SubEvents: []string{
				"Cleanliness",
				"Equipment Failure",
				"Temperature Control",
				"Lighting/Signage",
			}},
			{Name: "Compliance Issues", SubEvents: []string{
				"Age-restricted Sales",
				"Food Safety",
				"Health & Safety Violations",
			}},
			{Name: "Staffing Related", SubEvents: []string{
				"Understaffing",
				"Long Queues",
				"Shift Coverage",
				"Employee Conduct",
			}},
		},
	},
	{
		Name: "Customer Service",
		Events: []Event{
			{Name: "Cashier Engagement", SubEvents: []string{
				"Greeting",
				"Courtesy",
				"Product Assistance",
			}},
			{Name: "Complaint Handling", SubEvents: []string{
				"Refund Requests",
				"Return/Exchange",
				"Service Complaint",
			}},
			{Name: "Lost & Found", SubEvents: []string{
				"Lost Item Report",
				"Found Item Handover",
			}},
			{Name: "Service-oriented Events", SubEvents: []string{
				"Carry-out Assistance",
				"Special Requests",
				"Information Request",
			}},
		},
	},
	{
		Name: "Security & Risk",
		Events: []Event{
			{Name: "Suspicious Behaviour", SubEvents: []string{
				"Loitering",
				"Concealment",
				"Unusual Activity",
			}},
			{Name: "Conflict", SubEvents: []string{
				"Verbal Altercation",
				"Physical Altercation",
				"Customer-Employee Dispute",
			}},
			{Name: "Accidents", SubEvents: []string{
				"Slip/Trip/Fall",
				"Injury",
				"Property Damage",
			}},
			{Name: "Emergency Assistance", SubEvents: []string{
				"Medical Emergency",
				"Fire/Evacuation",
				"Police Assistance",
			}},
			{Name: "Theft-Robbery", SubEvents: []string{
				"Shoplifting",
				"Armed Robbery",
				"Employee Theft",
			}},
		},
	},
	{
		Name: "Promotional & Marketing",
		Events: []Event{
			{Name: "Up-sell/Cross-sell", SubEvents: []string{
				"Product Recommendation",
				"Bundle Offer",
				"Premium Upgrade",
			}},
			{Name: "Promotions", SubEvents: []string{
				"Discount Announcement",
				"Coupon Redemption",
				"Seasonal Offer",
			}},
			{Name: "Loyalty Program", SubEvents: []string{
				"Membership Sign-up",
				"Points Redemption",
				"Loyalty Inquiry",
			}},
		},
	},
}

type triple struct{ category, event, sub string }

var lookup = buildLookup()

func buildLookup() map[triple]struct{} {
	m := make(map[triple]struct{})
	for _, c := range categories {
		for _, e := range c.Events {
			for _, s := range e.SubEvents {
				m[triple{c.Name, e.Name, s}] = struct{}{}
			}
		}
	}
	return m
}

// Contains reports whether the triple is in the table. Matching is exact
// after trimming surrounding whitespace.
func Contains(category, event, subType string) bool {
	_, _, _, ok := Canonical(category, event, subType)
	return ok
}

// Canonical returns the table spelling of a triple that Contains accepts.
func Canonical(category, event, subType string) (string, string, string, bool) {
	t := triple{
		strings.TrimSpace(category),
		strings.TrimSpace(event),
		strings.TrimSpace(subType),
	}
	if _, ok := lookup[t]; !ok {
		return "", "", "", false
	}
	return t.category, t.event, t.sub, true
}

// Categories returns a copy of the table.
func Categories() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		events := make([]Event, len(c.Events))
		for j, e := range c.Events {
			events[j] = Event{Name: e.Name, SubEvents: append([]string(nil), e.SubEvents...)}
		}
		out[i] = Category{Name: c.Name, Events: events}
	}
	return out
}

// Size is the number of valid triples.
func Size() int { return len(lookup) }

// Instructions renders the table as the numbered outline given to the model.
func Instructions() string {
	var b strings.Builder
	for i, c := range categories {
		fmt.Fprintf(&b, "%d. Category: %q\n", i+1, c.Name)
		for _, e := range c.Events {
			fmt.Fprintf(&b, "   - EventType: %q\n", e.Name)
			for _, s := range e.SubEvents {
				fmt.Fprintf(&b, "       * SubType: %q\n", s)
			}
		}
	}
	return b.String()
}
