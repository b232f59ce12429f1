// Package websift turns a natural-language query into ranked,
// quality-scored page content. For every candidate URL it races several
// independent extraction strategies, scores results as they arrive, and keeps
// the fastest result that clears the quality bar.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., rod/, trafilatura/, gopsutil/) or
// the concern they orchestrate (race/, search/, strategy/).
package websift
