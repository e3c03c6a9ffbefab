// Package mixin provides optional mixins beyond the base ones of
// schema/mixin, along with the predicates that go with them.
//
//	type Document struct{ cypher.Node }
//
//	func (Document) Mixin() []cypher.Mixin {
//	    return []cypher.Mixin{
//	        mixin.TenantID{},
//	        mixin.TimeSoftDelete{},
//	    }
//	}
//
//	query.New(drv).Match(DocumentType,
//	    mixin.InTenant(DocumentType, "acme"),
//	    mixin.NotDeleted(DocumentType),
//	)
package mixin

import (
	"github.com/syssam/cypher"
	"github.com/syssam/cypher/graph"
	"github.com/syssam/cypher/predicate"
	"github.com/syssam/cypher/schema/field"
	"github.com/syssam/cypher/schema/mixin"
)

// Property names of the mixins.
const (
	DeletedAtField = "deleted_at"
	TenantIDField  = "tenant_id"
)

// SoftDelete adds a deleted_at timestamp for soft deletion.
// Entities are not removed but marked with a deletion timestamp, and
// queries filter them out with NotDeleted.
type SoftDelete struct{ mixin.Schema }

// Fields of the SoftDelete mixin.
func (SoftDelete) Fields() []cypher.Field {
	return []cypher.Field{
		field.DateTime(DeletedAtField).
			Optional().
			Comment("Timestamp when the entity was soft deleted"),
	}
}

// soft delete mixin must implement `Mixin` interface.
var _ cypher.Mixin = (*SoftDelete)(nil)

// TenantID adds a tenant_id property for multi-tenancy support.
// Combined with InTenant filters, this enables tenant isolation within a
// shared store.
type TenantID struct{ mixin.Schema }

// Fields of the TenantID mixin.
func (TenantID) Fields() []cypher.Field {
	return []cypher.Field{
		field.String(TenantIDField).
			NotEmpty(),
	}
}

// tenant id mixin must implement `Mixin` interface.
var _ cypher.Mixin = (*TenantID)(nil)

// TimeSoftDelete composes Time and SoftDelete mixins.
// Provides created_at, updated_at, and deleted_at properties.
type TimeSoftDelete struct{ mixin.Schema }

// Fields of the TimeSoftDelete mixin.
func (TimeSoftDelete) Fields() []cypher.Field {
	return append(
		mixin.Time{}.Fields(),
		SoftDelete{}.Fields()...,
	)
}

// time soft delete mixin must implement `Mixin` interface.
var _ cypher.Mixin = (*TimeSoftDelete)(nil)

// NotDeleted returns the predicate excluding soft deleted entities of the
// type.
func NotDeleted(t *graph.Type) *predicate.Comparison {
	return predicate.IsNull(t.Prop(DeletedAtField))
}

// InTenant returns the predicate restricting entities of the type to the
// given tenant.
func InTenant(t *graph.Type, tenant string) *predicate.Comparison {
	return predicate.EQ(t.Prop(TenantIDField), tenant)
}
