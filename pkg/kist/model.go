package kist

import "github.com/tbergin/kist/pkg/engine"

// Entity describes one schema-declared record type. IDs are assigned outside
// the binding (by the schema/codegen step, or by hand in tests) and must be
// stable for the life of a store.
type Entity struct {
	ID   engine.EntityID
	Name string
}

// Property is implemented by every typed property wrapper. It exposes the
// addressing pair used by order directives and parameter rebinding.
type Property interface {
	EntityID() engine.EntityID
	PropertyID() engine.PropertyID
}

// BaseProperty carries the (entity, property) addressing shared by all typed
// wrappers, plus the conditions every value domain supports.
type BaseProperty struct {
	entity engine.EntityID
	id     engine.PropertyID
}

// EntityID returns the owning entity's id.
func (p BaseProperty) EntityID() engine.EntityID { return p.entity }

// PropertyID returns the property's id within its entity.
func (p BaseProperty) PropertyID() engine.PropertyID { return p.id }

// IsNil matches records where the property has no value.
func (p BaseProperty) IsNil() Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopNull}
}

// IsNotNil matches records where the property has a value.
func (p BaseProperty) IsNotNil() Condition {
	return &leaf{entity: p.entity, prop: p.id, op: qopNotNull}
}

// IntProperty is a property in the integer domain: int64, bool (0/1) and
// dates stored as epoch millis.
type IntProperty struct{ BaseProperty }

// FloatProperty is a property in the floating-point domain.
type FloatProperty struct{ BaseProperty }

// StringProperty is a single-string property.
type StringProperty struct{ BaseProperty }

// BytesProperty is a raw byte-slice property, compared lexicographically.
type BytesProperty struct{ BaseProperty }

// StringVectorProperty is a string-array property.
type StringVectorProperty struct{ BaseProperty }

// VectorProperty is a float32-vector property used for nearest-neighbor
// search.
type VectorProperty struct{ BaseProperty }

// RelationProperty is a to-one relation: an integer property holding the id
// of a record in Target.
type RelationProperty struct {
	BaseProperty
	Target Entity
}

// IntProp declares an integer property of entity.
func IntProp(entity Entity, id engine.PropertyID) IntProperty {
	return IntProperty{BaseProperty{entity: entity.ID, id: id}}
}

// FloatProp declares a floating-point property of entity.
func FloatProp(entity Entity, id engine.PropertyID) FloatProperty {
	return FloatProperty{BaseProperty{entity: entity.ID, id: id}}
}

// StringProp declares a string property of entity.
func StringProp(entity Entity, id engine.PropertyID) StringProperty {
	return StringProperty{BaseProperty{entity: entity.ID, id: id}}
}

// BytesProp declares a bytes property of entity.
func BytesProp(entity Entity, id engine.PropertyID) BytesProperty {
	return BytesProperty{BaseProperty{entity: entity.ID, id: id}}
}

// StringVectorProp declares a string-array property of entity.
func StringVectorProp(entity Entity, id engine.PropertyID) StringVectorProperty {
	return StringVectorProperty{BaseProperty{entity: entity.ID, id: id}}
}

// VectorProp declares a float32-vector property of entity.
func VectorProp(entity Entity, id engine.PropertyID) VectorProperty {
	return VectorProperty{BaseProperty{entity: entity.ID, id: id}}
}

// RelationProp declares a to-one relation property of entity pointing at
// target.
func RelationProp(entity Entity, id engine.PropertyID, target Entity) RelationProperty {
	return RelationProperty{BaseProperty: BaseProperty{entity: entity.ID, id: id}, Target: target}
}
