package tablestatus

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
	if s.Name == "" {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

type Enum struct {
	Available   Status
	Reserved    Status
	Occupied    Status
	Maintenance Status
}

var Statuses = Enum{
	Available:   Status{Name: "available"},
	Reserved:    Status{Name: "reserved"},
	Occupied:    Status{Name: "occupied"},
	Maintenance: Status{Name: "maintenance"},
}

var All = []Status{
	Statuses.Available,
	Statuses.Reserved,
	Statuses.Occupied,
	Statuses.Maintenance,
}

func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
