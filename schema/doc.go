// Package schema provides the type descriptions the simulation object tree
// is built from.
//
// A schema answers one question for the object tree: which child slots does
// type T allow, in which order, and with which multiplicity. The tree consumes
// that answer through the [Type] interface and the [Declaration] struct; this
// package also ships a small YAML-backed implementation of the service.
//
// # Schema Files
//
// A schema file names a namespace, an optional root declaration and a list of
// types:
//
//	namespace: sp
//	root:
//	  name: simulation
//	  type: Simulation
//	types:
//	  - name: Identifiable
//	    abstract: true
//	  - name: Faction
//	    base: Identifiable
//	    elements:
//	      - {name: symbolIDCode, type: SymbolIDCode}
//	      - {name: description, type: String, min: 0}
//	  - name: Scenario
//	    base: Identifiable
//	    elements:
//	      - {name: factions, type: Faction, min: 0, max: unbounded}
//
// Element bounds default to exactly one. Types without a base derive from
// xsd:anyType. The XML Schema built-ins xsd:anyType, xsd:string, xsd:integer,
// xsd:double, xsd:boolean and xsd:dateTime are always present.
//
// # Type Identifiers
//
// Every type gets a dense [TypeID] when the schema is loaded. Consumers that
// need per-type dispatch (such as the object factory) resolve their tables
// once, indexed by TypeID, instead of matching type names at runtime.
package schema
