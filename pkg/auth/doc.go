/*
Package auth manages authentication and authorization for Croft.

Identity itself lives behind the Provider interface; the service adds what
every deployment needs regardless of backend: local input validation
(email format, password policy), email normalization, a single observable
session, role predicates, and the Require* guards used by API surfaces.

The auto-refresh loop keeps the session alive by exchanging the refresh
token whenever the remaining access-token lifetime falls below the
configured threshold. The loop is idempotent to start, and stop waits for
any in-flight refresh, so no session mutation happens after teardown. A
refresh that comes back SESSION_EXPIRED clears the session rather than
retrying forever.
*/
package auth
