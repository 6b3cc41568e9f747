package catalog

import "strings"

// Match checks if a qualified event type name ("<group>.<type>") matches a
// listing pattern.
//
// Supported patterns:
//
//	"contract.admission" → exact match
//	"payroll.*"          → every type in the payroll group (single segment wildcard)
//	"*.termination"      → a type in any group
//	"*"                  → matches everything
func Match(pattern, name string) bool {
	if pattern == "*" {
		return true
	}

	if pattern == name {
		return true
	}

	patternParts := strings.Split(pattern, ".")
	nameParts := strings.Split(name, ".")

	if len(patternParts) != len(nameParts) {
		return false
	}

	for i, pp := range patternParts {
		if pp == "*" {
			continue
		}
		if pp != nameParts[i] {
			return false
		}
	}

	return true
}
