package game

import "log"

// reportInvariantViolation logs an unreachable internal-invariant violation
// (§7 Error Handling: "treated as a bug; log and continue by trusting the
// later-added entity"). It never panics — a mid-tick panic would take an
// entire room down for every connected session.
func reportInvariantViolation(msg string, fields ...any) {
	log.Printf("invariant violation: "+msg, fields...)
}
