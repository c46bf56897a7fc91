// Package family turns a flat parent-pointer record set into a validated,
// rooted tree.
//
// # Records
//
// A [PersonRecord] names at most one parent, either through FatherID or
// MotherID. Exactly one record in the set has no parent: that record is the
// root of the tree. The core never guesses a root; malformed input is
// reported by [BuildTree] before any layout work starts:
//
//	tree, err := family.BuildTree(records)
//	if errors.Is(err, family.ErrMultipleRoots) {
//	    // surface the configuration error to the caller
//	}
//
// # Sibling Order
//
// Children are kept in ascending SiblingOrder, ties broken by input order.
// Layout code that needs the reverse (right-to-left axis) walks the same
// slices backwards; the stored order is the list-context order.
//
// # Payload
//
// Fields the core does not consume travel in [PersonRecord.Payload], an opaque
// reference the package never inspects. Source loaders store the raw encoded
// document there.
//
// # Concurrency
//
// A [Tree] is immutable after [BuildTree] returns and is safe for concurrent
// readers.
package family
