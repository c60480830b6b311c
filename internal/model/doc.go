// Package model contains the shared interfaces and data structures.
//
// # Criteria for adding a type to this package
//
// This package should contain two types:
//
// 1. important interfaces that are shared by several packages
// within the codebase, with the objective of separating the
// session driver from the TLS engines and the transports and
// making unit testing easier;
//
// 2. important pieces of data that are shared across different
// packages (e.g., the negotiated protocol version).
//
// In general, this package should not contain logic, unless
// this logic is strictly related to data structures and we
// cannot implement this logic elsewhere.
//
// # Content of this package
//
// The following list summarizes the categories of types that
// currently belong here and names the files in which they are
// implemented:
//
// - engine.go: the buffer-oriented TLS engine contract and the
// conditions an engine uses to signal that it needs more input;
//
// - enums.go: protocol version, verification mode, key file type
// and early data status enumerations;
//
// - logger.go: generic definition of an apex/log compatible logger,
// used in several places across the codebase;
//
// - transport.go: the blocking byte-stream transport contract.
package model
