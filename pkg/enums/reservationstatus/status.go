package reservationstatus

import (
	"strings"
)

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	parts := strings.Split(s.Name, "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// Blocks reports whether a reservation in this status holds its table slot.
func (s Status) Blocks() bool {
	return s != Statuses.Cancelled
}

type Enum struct {
	Pending   Status
	Confirmed Status
	Cancelled Status
	Completed Status
	NoShow    Status
}

var Statuses = Enum{
	Pending:   Status{Name: "pending"},
	Confirmed: Status{Name: "confirmed"},
	Cancelled: Status{Name: "cancelled"},
	Completed: Status{Name: "completed"},
	NoShow:    Status{Name: "no_show"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.Confirmed,
	Statuses.Cancelled,
	Statuses.Completed,
	Statuses.NoShow,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
