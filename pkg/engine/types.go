package engine

// EntityID identifies an entity type in the schema. IDs are assigned by the
// code generator (or by hand in tests) and are stable for the life of a store.
type EntityID uint32

// PropertyID identifies a property within one entity type.
type PropertyID uint32

// RecordID is the storage-assigned object id. Zero means "not yet assigned";
// Put allocates the next id from the entity's sequence.
type RecordID uint64

// PropertyType is the value domain of a property. The engine exposes one
// condition primitive per (PropertyType, operator) pair, so the type decides
// which comparisons are available.
type PropertyType uint8

const (
	TypeInt PropertyType = iota + 1 // int64; also carries bool and date-as-millis
	TypeFloat
	TypeString
	TypeBytes
	TypeStringVector
	TypeFloatVector
)

// String returns a short name for diagnostics.
func (t PropertyType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBytes:
		return "bytes"
	case TypeStringVector:
		return "string[]"
	case TypeFloatVector:
		return "float32[]"
	}
	return "unknown"
}

// Value is a tagged property value. Exactly one payload field is meaningful,
// selected by Type. A zero Value (Type == 0) is treated as null everywhere.
type Value struct {
	Type    PropertyType `json:"t"`
	Int     int64        `json:"i,omitempty"`
	Float   float64      `json:"f,omitempty"`
	Str     string       `json:"s,omitempty"`
	Bytes   []byte       `json:"b,omitempty"`
	Strings []string     `json:"ss,omitempty"`
	Floats  []float32    `json:"fs,omitempty"`
}

// IsNull reports whether the value carries no payload.
func (v Value) IsNull() bool { return v.Type == 0 }

// IntValue wraps an int64 as a property value.
func IntValue(v int64) Value { return Value{Type: TypeInt, Int: v} }

// BoolValue stores a bool in the integer domain (0/1), matching how the
// condition primitives compare booleans.
func BoolValue(v bool) Value {
	var i int64
	if v {
		i = 1
	}
	return Value{Type: TypeInt, Int: i}
}

// FloatValue wraps a float64 as a property value.
func FloatValue(v float64) Value { return Value{Type: TypeFloat, Float: v} }

// StringValue wraps a string as a property value.
func StringValue(v string) Value { return Value{Type: TypeString, Str: v} }

// BytesValue wraps a byte slice as a property value. The slice is not copied.
func BytesValue(v []byte) Value { return Value{Type: TypeBytes, Bytes: v} }

// StringsValue wraps a string slice as a property value.
func StringsValue(v []string) Value { return Value{Type: TypeStringVector, Strings: v} }

// VectorValue wraps a float32 vector as a property value.
func VectorValue(v []float32) Value { return Value{Type: TypeFloatVector, Floats: v} }

// Record is one stored object: an id plus its property values. Missing map
// entries are null properties.
type Record struct {
	ID    RecordID             `json:"id"`
	Props map[PropertyID]Value `json:"p"`
}

// NewRecord returns an empty record with an allocated property map.
func NewRecord() *Record {
	return &Record{Props: make(map[PropertyID]Value)}
}

// Set stores a property value and returns the record for chaining.
func (r *Record) Set(prop PropertyID, v Value) *Record {
	if r.Props == nil {
		r.Props = make(map[PropertyID]Value)
	}
	r.Props[prop] = v
	return r
}

// Get returns the value for prop; a missing property reads as the null Value.
func (r *Record) Get(prop PropertyID) Value {
	if r.Props == nil {
		return Value{}
	}
	return r.Props[prop]
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	cp := &Record{ID: r.ID, Props: make(map[PropertyID]Value, len(r.Props))}
	for k, v := range r.Props {
		if v.Bytes != nil {
			v.Bytes = append([]byte(nil), v.Bytes...)
		}
		if v.Strings != nil {
			v.Strings = append([]string(nil), v.Strings...)
		}
		if v.Floats != nil {
			v.Floats = append([]float32(nil), v.Floats...)
		}
		cp.Props[k] = v
	}
	return cp
}

// OrderFlags adjust one order directive on a query builder.
type OrderFlags uint32

const (
	// OrderDescending reverses the direction for this property.
	OrderDescending OrderFlags = 1 << iota
	// OrderCaseInsensitive compares strings ignoring case.
	OrderCaseInsensitive
	// OrderNullsLast sorts records missing the property after all others.
	// Without the flag nulls sort first, like any smallest value.
	OrderNullsLast
)

// orderSpec is one accumulated order directive, applied in call order.
type orderSpec struct {
	prop  PropertyID
	flags OrderFlags
}
