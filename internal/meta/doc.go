// Package meta propagates the value of "meta" elements onto other elements.
//
// A meta element is one whose fields describe how other elements should be
// presented: a minimum or maximum, a unit, whether an element is enabled,
// or which enumeration options are currently allowed. The Table says, per
// meta element field, which Kind of transform applies to which Targets.
//
// Propagation works in both directions so arrival order does not matter:
//
//   - ApplyTransforms runs when a meta element is written. Targets that do
//     not exist yet are skipped by the Presenter.
//   - ApplyTransformsToTarget runs when a target is created. A reverse index
//     built from the Table finds the meta elements that govern it and
//     re-applies them. A meta element with no known value is deferred
//     silently; its own write will apply it later.
//
// The reverse index is built once by NewCoordinator and only changes when
// Rebuild is called.
package meta
