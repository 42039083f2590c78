package meta

import (
	"fmt"

	"github.com/nerrad567/gea-bridge/internal/erd"
)

// Kind selects the effect a meta field has on its targets.
type Kind int

// Transform kinds.
const (
	// KindSetMin sets a number's minimum from the field's integer value.
	KindSetMin Kind = iota + 1

	// KindSetMax sets a number's maximum from the field's integer value.
	KindSetMax

	// KindSetUnit sets a number's unit to the label the field's enum table
	// gives for its value.
	KindSetUnit

	// KindEnable enables the target when any field byte is non-zero.
	KindEnable

	// KindSetAllowable enables or disables one option of a select.
	KindSetAllowable
)

var kindNames = map[Kind]string{
	KindSetMin:       "set_min",
	KindSetMax:       "set_max",
	KindSetUnit:      "set_unit",
	KindEnable:       "enable",
	KindSetAllowable: "set_allowable",
}

// String returns the configuration name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts a configuration name to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Target describes the element field a transform acts on.
//
// Field names the target field. When several fields share a name, or
// Field is empty, Offset selects the field by byte offset. Option is used
// only by KindSetAllowable and names the enumeration option.
type Target struct {
	ERD    erd.ID
	Field  string
	Offset *int
	Option string
}

// Rule is the transform for one meta element field.
type Rule struct {
	Field   string
	Kind    Kind
	Targets []Target
}

// Table maps each meta element to its field rules, applied in order.
type Table map[erd.ID][]Rule

// EntityRef identifies one resolved target on one appliance.
//
// Offset is the byte offset of the field. SharedName is set when another
// field of the element has the same name; Offset then tells them apart.
type EntityRef struct {
	Device     string
	ERD        erd.ID
	Field      string
	Offset     int
	SharedName bool
	Option     string
}

// UniqueID returns "<device>_<erd hex>_<field>", suffixed with
// "_<offset>" when the field name is shared within the element.
func (r EntityRef) UniqueID() string {
	if r.SharedName {
		return fmt.Sprintf("%s_%s_%s_%d", r.Device, r.ERD.Hex(), r.Field, r.Offset)
	}
	return fmt.Sprintf("%s_%s_%s", r.Device, r.ERD.Hex(), r.Field)
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for id, rules := range t {
		cp := make([]Rule, len(rules))
		for i, rule := range rules {
			cp[i] = rule
			cp[i].Targets = make([]Target, len(rule.Targets))
			for j, target := range rule.Targets {
				if target.Offset != nil {
					target.Offset = IntPtr(*target.Offset)
				}
				cp[i].Targets[j] = target
			}
		}
		out[id] = cp
	}
	return out
}

// IntPtr returns a pointer to v, for Target.Offset literals.
func IntPtr(v int) *int {
	return &v
}

// DefaultTable returns the built-in transforms for known appliance elements.
func DefaultTable() Table {
	return Table{
		// Setpoint limits govern the setpoint temperature.
		0x4047: {
			{
				Field:   "Minimum setpoint",
				Kind:    KindSetMin,
				Targets: []Target{{ERD: 0x4024, Field: "Temperature"}},
			},
			{
				Field:   "Maximum setpoint",
				Kind:    KindSetMax,
				Targets: []Target{{ERD: 0x4024, Field: "Temperature"}},
			},
		},
		// Display units relabel the setpoint.
		0x4048: {
			{
				Field:   "Temperature units",
				Kind:    KindSetUnit,
				Targets: []Target{{ERD: 0x4024, Field: "Temperature"}},
			},
		},
		// Each allowable-mode bit gates one mode option.
		0x4049: {
			allowableMode("Off"),
			allowableMode("Cool"),
			allowableMode("Heat"),
		},
	}
}

func allowableMode(option string) Rule {
	return Rule{
		Field:   "AllowableModes." + option,
		Kind:    KindSetAllowable,
		Targets: []Target{{ERD: 0x4025, Field: "Mode", Option: option}},
	}
}
