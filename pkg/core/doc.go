// Package core defines the shared language of the autodash system.
//
// This package contains:
//   - Schema entities (Table, Field, ForeignKey) and semantic type tags
//   - Rule entities (Rule, DimensionDef, MetricDef, FilterDef, CardTemplate)
//   - The expression tree used by metrics and filters (Expr)
//   - Generated output (QuerySpec, Candidate, Dashboard)
//   - Collaborator interfaces (MetadataProvider, PermissionChecker, RuleProvider, DashboardSink)
//
// The Golden Rule: pkg/core imports ONLY the standard library and golang.org/x/text.
// All other packages depend on core, not the reverse.
package core
