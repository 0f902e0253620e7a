// Package compose parses, interpolates, and normalizes compose
// definition files.
//
// The compose-config step uses this package to perform the same checks a
// compose tool's "config" command performs: resolve every ${VAR}
// reference against an env map, fail when a required variable is absent,
// verify the document declares services, and render a normalized copy
// with sorted keys and resolved values. The compose-build step, by
// contrast, delegates to the real compose tool (see internal/docker);
// this package never talks to a container engine.
package compose
