// Package mixin provides reusable schema components.
//
// A mixin is a reusable set of properties, unique-together declarations and
// cross-field validators that can be shared by several entity schemas.
// Mixins are never instantiated on their own.
//
// # Built-in Mixins
//
//	// UID mixin: the uid identifier, added to every entity by the registry
//	mixin.UID{}
//
//	// Time mixin: created_at and updated_at timestamps
//	mixin.Time{}
//
// # Using Mixins
//
// Mixins are applied to schemas via the Mixin() method:
//
//	type Person struct{ cypher.Node }
//
//	func (Person) Mixin() []cypher.Mixin {
//	    return []cypher.Mixin{
//	        mixin.Time{},
//	    }
//	}
//
// The resulting Person entity will have:
//   - uid (String, generated when omitted)
//   - created_at (DateTime)
//   - updated_at (DateTime)
//
// # Mixin Order
//
// Mixin properties are registered in the order the mixins are listed and
// before the properties of the schema itself. Declaring the same property
// twice is a schema error.
package mixin
