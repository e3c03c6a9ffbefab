package mixin

import (
	"time"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/schema/field"
)

// Schema is the default implementation for the cypher.Mixin interface.
// It should be embedded in all custom mixin definitions.
//
// Example:
//
//	type MyMixin struct {
//	    mixin.Schema
//	}
//
//	func (MyMixin) Fields() []cypher.Field {
//	    return []cypher.Field{
//	        field.String("custom_field"),
//	    }
//	}
type Schema struct{}

// Fields returns the properties of the mixin.
// Override this method to add custom properties.
func (Schema) Fields() []cypher.Field { return nil }

// Indexes returns the unique-together declarations of the mixin.
func (Schema) Indexes() []cypher.Index { return nil }

// Validators returns the cross-field validations of the mixin.
func (Schema) Validators() []cypher.Validator { return nil }

// schema mixin must implement `Mixin` interface.
var _ cypher.Mixin = (*Schema)(nil)

// UIDField is the name of the identifier property every entity carries.
const UIDField = "uid"

// UID adds the uid identifier property. The graph registry places it first
// in every entity; a missing uid is generated when an instance is created.
type UID struct {
	Schema
}

// Fields returns the uid property.
func (UID) Fields() []cypher.Field {
	return []cypher.Field{
		field.String(UIDField).
			NotEmpty().
			Comment("Unique identifier of the entity"),
	}
}

// Time adds created_at and updated_at timestamp properties to a schema.
// Both default to the construction time of the instance.
//
// Example:
//
//	func (Person) Mixin() []cypher.Mixin {
//	    return []cypher.Mixin{
//	        mixin.Time{},
//	    }
//	}
type Time struct {
	Schema
}

// Fields returns the time tracking properties.
func (Time) Fields() []cypher.Field {
	return append(CreateTime{}.Fields(), UpdateTime{}.Fields()...)
}

// CreateTime adds only the created_at timestamp property.
type CreateTime struct {
	Schema
}

// Fields returns the created_at property.
func (CreateTime) Fields() []cypher.Field {
	return []cypher.Field{
		field.DateTime("created_at").
			DefaultFunc(now).
			Comment("Timestamp when the entity was created"),
	}
}

// UpdateTime adds only the updated_at timestamp property.
type UpdateTime struct {
	Schema
}

// Fields returns the updated_at property.
func (UpdateTime) Fields() []cypher.Field {
	return []cypher.Field{
		field.DateTime("updated_at").
			DefaultFunc(now).
			Comment("Timestamp when the entity was last updated"),
	}
}

func now() time.Time { return time.Now().UTC() }

// Validate wraps a mixin and adds cross-field validators to it.
//
// Example:
//
//	mixin.Validate(
//	    mixin.Time{},
//	    func(v map[string]any) error { ... },
//	)
func Validate(m cypher.Mixin, validators ...cypher.Validator) cypher.Mixin {
	return validatorAnnotator{Mixin: m, validators: validators}
}

type validatorAnnotator struct {
	cypher.Mixin
	validators []cypher.Validator
}

func (a validatorAnnotator) Validators() []cypher.Validator {
	return append(a.Mixin.Validators(), a.validators...)
}
