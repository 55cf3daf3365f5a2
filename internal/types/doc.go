// Package types provides the domain records shared across packages:
// book sources, search results, books, chapters and replacement rules.
// This package has no dependencies on other sourcecheck packages to avoid import cycles.
package types
