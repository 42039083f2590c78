package entity

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nerrad567/gea-bridge/internal/appliance"
	"github.com/nerrad567/gea-bridge/internal/erd"
	"github.com/nerrad567/gea-bridge/internal/meta"
)

// Platform is the kind of entity presented for a field.
type Platform string

// Entity platforms.
const (
	PlatformNumber Platform = "number"
	PlatformSelect Platform = "select"
	PlatformSwitch Platform = "switch"
	PlatformText   Platform = "text"
	PlatformSensor Platform = "sensor"
)

// PlatformFor chooses the platform for a field of an element.
func PlatformFor(f *erd.Field, writable bool) Platform {
	switch {
	case f.Type == erd.TypeBool:
		return PlatformSwitch
	case f.Type.IsInteger() && writable:
		return PlatformNumber
	case f.Type == erd.TypeEnum && writable:
		return PlatformSelect
	case (f.Type == erd.TypeString || f.Type == erd.TypeRaw) && writable:
		return PlatformText
	default:
		return PlatformSensor
	}
}

// State is a snapshot of an entity.
type State struct {
	UniqueID string   `json:"unique_id"`
	EntityID string   `json:"entity_id"`
	Platform Platform `json:"platform"`
	Device   string   `json:"device"`
	ERD      erd.ID   `json:"erd"`
	Field    string   `json:"field"`
	Offset   int      `json:"offset"`
	Value    any      `json:"value"`
	Enabled  bool     `json:"enabled"`
	Writable bool     `json:"writable"`
	Min      *int64   `json:"min,omitempty"`
	Max      *int64   `json:"max,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// Entity is one presented field.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Entity struct {
	platform Platform
	ref      meta.EntityRef
	entityID string
	field    erd.Field
	writable bool

	mu       sync.RWMutex
	raw      []byte // field bytes; nil while unknown
	enabled  bool
	min      int64
	max      int64
	unit     string
	disabled map[string]bool // select options turned off
	sub      appliance.SubscriptionID
}

func newEntity(device string, def *erd.Definition, f *erd.Field) *Entity {
	e := &Entity{
		platform: PlatformFor(f, def.Writable()),
		ref: meta.EntityRef{
			Device:     device,
			ERD:        def.ID,
			Field:      f.Name,
			Offset:     f.Offset,
			SharedName: def.SharesName(f),
		},
		field:    *f,
		writable: def.Writable(),
		enabled:  true,
		disabled: make(map[string]bool),
	}
	e.min, e.max = defaultRange(f)
	return e
}

// defaultRange is the full range the field can hold.
func defaultRange(f *erd.Field) (lo, hi int64) {
	if f.Bits != nil {
		return 0, 1<<f.Bits.Size - 1
	}
	return erd.TypeRange(f.Type)
}

// UniqueID returns the stable identifier "<device>_<erd>_<field>", with
// "_<offset>" appended when the element has another field of the same name.
func (e *Entity) UniqueID() string {
	return e.ref.UniqueID()
}

// Ref returns the element field the entity presents.
func (e *Entity) Ref() meta.EntityRef {
	return e.ref
}

// Platform returns the entity platform.
func (e *Entity) Platform() Platform {
	return e.platform
}

// update is the store subscriber for the entity's element.
func (e *Entity) update(payload []byte) {
	var raw []byte
	if payload != nil {
		var err error
		raw, err = erd.ReadField(payload, &e.field)
		if err != nil {
			raw = nil
		}
	}

	e.mu.Lock()
	e.raw = raw
	e.mu.Unlock()
}

// State returns a snapshot of the entity. Disabled entities report an
// unknown value.
func (e *Entity) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := State{
		UniqueID: e.UniqueID(),
		EntityID: e.entityID,
		Platform: e.platform,
		Device:   e.ref.Device,
		ERD:      e.ref.ERD,
		Field:    e.ref.Field,
		Offset:   e.ref.Offset,
		Enabled:  e.enabled,
		Writable: e.platform != PlatformSensor && e.writable,
		Unit:     e.unit,
	}
	if e.enabled {
		st.Value = e.valueLocked()
	}
	if e.platform == PlatformNumber {
		lo, hi := e.min, e.max
		st.Min, st.Max = &lo, &hi
	}
	if e.platform == PlatformSelect {
		st.Options = e.optionsLocked()
	}
	return st
}

// valueLocked renders the field bytes for the platform. Caller holds mu.
func (e *Entity) valueLocked() any {
	if e.raw == nil {
		return nil
	}
	f := &e.field

	switch f.Type {
	case erd.TypeBool:
		for _, b := range e.raw {
			if b != 0 {
				return true
			}
		}
		return false
	case erd.TypeEnum:
		code := e.code()
		if label, ok := f.Label(code); ok {
			return label
		}
		if e.platform == PlatformSelect {
			return nil
		}
		return code
	case erd.TypeString:
		return strings.TrimRight(string(e.raw), "\x00")
	case erd.TypeRaw:
		return hex.EncodeToString(e.raw)
	default:
		return e.integer()
	}
}

// integer decodes the field as a number, shifting bitfields down.
func (e *Entity) integer() int64 {
	if b := e.field.Bits; b != nil {
		return int64(e.raw[0] >> (8 - b.Offset - b.Size))
	}
	return erd.DecodeInt(e.raw, e.field.Type.IsSigned())
}

func (e *Entity) code() int64 {
	if b := e.field.Bits; b != nil {
		return int64(e.raw[0] >> (8 - b.Offset - b.Size))
	}
	return int64(erd.DecodeUnsigned(e.raw)) //nolint:gosec // enum codes are small
}

// optionsLocked returns the currently allowed select options by code. Caller holds mu.
func (e *Entity) optionsLocked() []string {
	var opts []string
	for _, code := range e.field.Codes() {
		label := e.field.Values[code]
		if !e.disabled[label] {
			opts = append(opts, label)
		}
	}
	return opts
}

// encode converts a user value to field bytes, merging bitfields into
// current, the existing first byte of the field range.
func (e *Entity) encode(value any, current byte) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.platform == PlatformSensor || !e.writable {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, e.UniqueID())
	}
	if !e.enabled {
		return nil, fmt.Errorf("%w: %s", ErrDisabled, e.UniqueID())
	}

	switch e.platform {
	case PlatformNumber:
		v, err := intValue(value)
		if err != nil {
			return nil, err
		}
		if v < e.min || v > e.max {
			return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, v, e.min, e.max)
		}
		return e.encodeInt(v, e.min < 0, current)

	case PlatformSelect:
		label, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: select needs an option name", ErrInvalidValue)
		}
		code, ok := e.field.Code(label)
		if !ok || e.disabled[label] {
			return nil, fmt.Errorf("%w: %q", ErrOptionNotAllowed, label)
		}
		return e.encodeInt(code, false, current)

	case PlatformSwitch:
		on, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: switch needs a boolean", ErrInvalidValue)
		}
		var v int64
		if on {
			v = 1
		}
		return e.encodeInt(v, false, current)

	case PlatformText:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: text needs a string", ErrInvalidValue)
		}
		return e.encodeText(s)
	}
	return nil, fmt.Errorf("%w: %s", ErrReadOnly, e.UniqueID())
}

func (e *Entity) encodeInt(v int64, signed bool, current byte) ([]byte, error) {
	if b := e.field.Bits; b != nil {
		if v < 0 || v > 1<<b.Size-1 {
			return nil, fmt.Errorf("%w: %d does not fit %d bits", ErrOutOfRange, v, b.Size)
		}
		out := make([]byte, e.field.Size)
		out[0] = current&^b.Mask() | byte(v)<<(8-b.Offset-b.Size)
		return out, nil
	}
	out, err := erd.EncodeInt(v, e.field.Size, signed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}
	return out, nil
}

func (e *Entity) encodeText(s string) ([]byte, error) {
	var b []byte
	if e.field.Type == erd.TypeRaw {
		decoded, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		b = decoded
	} else {
		b = []byte(s)
	}
	if len(b) > e.field.Size {
		return nil, fmt.Errorf("%w: %d bytes exceeds field size %d", ErrInvalidValue, len(b), e.field.Size)
	}
	out := make([]byte, e.field.Size)
	copy(out, b)
	return out, nil
}

// intValue accepts the numeric forms JSON and callers produce.
func intValue(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: %v is not a number", ErrInvalidValue, v)
	}
}

// slug lowercases s and replaces runs of other characters with "_".
func slug(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

func sortStates(states []State) {
	sort.Slice(states, func(i, j int) bool {
		if states[i].Device != states[j].Device {
			return states[i].Device < states[j].Device
		}
		if states[i].ERD != states[j].ERD {
			return states[i].ERD < states[j].ERD
		}
		return states[i].UniqueID < states[j].UniqueID
	})
}
