/*
Package sqlengine executes SQL artifacts against in-memory SQLite databases.

The engine runs SQLite compiled to WebAssembly (via wazero), so guest SQL
never touches a native library or the host filesystem. Each artifact
instance gets its own database that persists across execute calls within a
session; reset reloads it from the artifact's schema and seed.

Scripts are split on ';' and executed statement by statement. SELECT
statements return columns and rows; everything else runs for effect. Each
statement carries its own success, error, and timing, so a batch partially
succeeds rather than failing atomically. Statements run synchronously on the
calling goroutine and are bounded by statement complexity, not a timeout.
*/
package sqlengine
