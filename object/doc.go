// Package object implements the live simulation object tree.
//
// Nodes are built by a [Factory] from schema declarations, parsed XML
// elements or already built parts. Containers keep their children in schema
// declaration order and unique by identifier; lists additionally enforce
// their declared multiplicity. Every mutation carries a [ChangeOrigin] and
// fires an [Event] on the mutated node, after which a ChildChanged event is
// fired on each ancestor in leaf to root order, so a listener on any node
// observes every change beneath it.
//
// # Updates
//
// Server deltas arrive as <update> elements and are applied with
// Node.Update:
//
//	<update xsi:type="sp:UpdateScope" identifier="scenario">
//	  <update xsi:type="sp:UpdateRemove" identifier="red"/>
//	</update>
//
// UpdateScope descends into a child, UpdateAdd builds and adds its
// <identifiable> payload, UpdateRemove removes a child, UpdateReplace
// replaces a child with its <newObject> payload and UpdateModify hands its
// <newValue> element to the child's Update. Unknown opcodes are skipped.
// Failures that concern the data (a missing identifier, a value that does
// not parse) are logged and returned together once the rest of the batch
// has been applied. Updates that a node's fixed shape forbids, such as
// removing an end point of a line, fail with ErrFixedShape instead of
// panicking.
//
// # Contract Violations
//
// Misuse that indicates drift between schema and code, such as adding a
// child with an empty identifier or asking a leaf to hold children, panics
// with a [*ContractError].
package object
