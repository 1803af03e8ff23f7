// Package types defines the domain model of the importer: sources and their
// capability sets, IEC storage shapes, table definitions, import events,
// harvest classification, run configuration and the standard errors.
package types
