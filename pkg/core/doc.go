// Package core defines the shared language of dbpilot.
//
// This package contains:
//   - Intents and the closed set of operations they can name
//   - Storage types and column schemas
//   - Results returned to callers
//   - The error taxonomy shared by the dispatcher and the backends
//   - Connection configuration for both backends
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
