package paymentstatus

import (
	"strings"
)

// Status mirrors the lifecycle of a gateway transaction as stored locally.
// Orders carry the same values in their payment_status field.
type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	if s.Name == "" {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

type Enum struct {
	Pending  Status
	Success  Status
	Failed   Status
	Expired  Status
	Refunded Status
}

var Statuses = Enum{
	Pending:  Status{Name: "pending"},
	Success:  Status{Name: "success"},
	Failed:   Status{Name: "failed"},
	Expired:  Status{Name: "expired"},
	Refunded: Status{Name: "refunded"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.Success,
	Statuses.Failed,
	Statuses.Expired,
	Statuses.Refunded,
}

func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// Valid reports whether name is one of the known payment statuses.
func Valid(name string) bool {
	return ByName(name) != nil
}
