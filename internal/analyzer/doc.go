// Package analyzer invokes external static analyzers and formatters and
// parses their diagnostics.
//
// Two invocation modes matter to pipelines. A strict lint pass restricts
// the analyzer to a set of rule-code prefixes (syntax errors, undefined
// names, and the like) and fails on any finding. A permissive pass runs
// the full rule set with complexity and line-length thresholds but is
// advisory: findings are recorded, the step still succeeds. The split
// between "the tool reported findings" and "the tool could not run" is
// load-bearing: a permissive pass swallows the former, never the latter.
package analyzer
