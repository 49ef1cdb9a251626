// Package services defines shared error markers and context helpers consumed
// by the artifact store, graph renderer, template renderer, and sync engine.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs and pipeline step names for logging.
//   - Structured error markers plus the Wrap helper so every failure carries
//     the component, the operation, and the artifact it concerned.
//   - ToolError, which keeps an external tool's diagnostics verbatim.
//
// Nothing in the core retries. A failed build is surfaced once and the cache
// makes the next run cheap.
package services
