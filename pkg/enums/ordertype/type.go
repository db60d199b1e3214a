package ordertype

import (
	"strings"
)

type Type struct {
	Name string
}

func (t Type) Code() string {
	return t.Name
}

func (t Type) Label() string {
	parts := strings.Split(t.Name, "-")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// ConsumesStock reports whether a paid order of this type draws down menu stock.
func (t Type) ConsumesStock() bool {
	return t == Types.Takeaway || t == Types.Delivery
}

type Enum struct {
	DineIn   Type
	Takeaway Type
	Delivery Type
}

var Types = Enum{
	DineIn:   Type{Name: "dine-in"},
	Takeaway: Type{Name: "takeaway"},
	Delivery: Type{Name: "delivery"},
}

var All = []Type{
	Types.DineIn,
	Types.Takeaway,
	Types.Delivery,
}

// ByName returns the order type for a given name, or nil if not found
func ByName(name string) *Type {
	for _, t := range All {
		if t.Name == name {
			return &t
		}
	}
	return nil
}
