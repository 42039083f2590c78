// Package entity presents supported appliance elements as typed entities.
//
// When an element becomes supported the Registry creates one Entity per
// field of its definition, choosing a Platform from the field type and
// whether the element is writable:
//
//	integer + write  -> number
//	enum + write     -> select
//	bool             -> switch (read-only unless the element is writable)
//	string/raw+write -> text
//	anything else    -> sensor
//
// Entities follow their element through store subscriptions and accept
// user writes (Registry.Set), which are validated locally and published to
// the appliance. The Registry also implements meta.Presenter, so meta
// elements can narrow a number's range, change its unit, disable an entity
// or restrict the options of a select.
package entity
