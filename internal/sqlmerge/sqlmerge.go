// Package sqlmerge renders the ON CONFLICT assignments that fold an incoming
// ledger row into a stored one. The rules match ledger.Merge so the SQL
// stores resolve concurrent writers in a single statement.
package sqlmerge

import "fmt"

// EventAssignments returns the SET clauses for an upsert into table.
// greatest names the dialect's two-argument maximum, MAX for SQLite and
// GREATEST for PostgreSQL.
func EventAssignments(table, greatest string) []string {
	status := Transition(table)
	open := fmt.Sprintf("%[1]s.protocol = '' AND %[1]s.error_detail = ''", table)

	sets := make([]string, 0, 13)
	for _, col := range []string{"event_type", "subject", "payload_version", "payload", "digest", "status_detail"} {
		sets = append(sets, fmt.Sprintf("%[2]s = COALESCE(NULLIF(%[1]s.%[2]s, ''), EXCLUDED.%[2]s)", table, col))
	}
	for _, col := range []string{"submitted_at", "processed_at"} {
		sets = append(sets, fmt.Sprintf("%[2]s = COALESCE(%[1]s.%[2]s, EXCLUDED.%[2]s)", table, col))
	}
	return append(sets,
		"status = "+status,
		fmt.Sprintf("protocol = CASE WHEN %s AND (%s) <> 'pending' THEN EXCLUDED.protocol ELSE %s.protocol END",
			open, status, table),
		fmt.Sprintf("error_detail = CASE WHEN %s AND EXCLUDED.protocol = '' THEN EXCLUDED.error_detail ELSE %s.error_detail END",
			open, table),
		fmt.Sprintf("updated_at = %[2]s(%[1]s.updated_at, EXCLUDED.updated_at)", table, greatest),
	)
}

// Transition is the CASE expression yielding the stored status after an
// incoming status is applied along the lifecycle edges.
func Transition(table string) string {
	return fmt.Sprintf(`CASE WHEN (%[1]s.status = 'pending' AND EXCLUDED.status IN ('sent', 'error'))
	OR (%[1]s.status = 'sent' AND EXCLUDED.status IN ('processed', 'error'))
	THEN EXCLUDED.status ELSE %[1]s.status END`, table)
}
