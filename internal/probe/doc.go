// Package probe issues user-initiated outbound HTTP requests and captures
// status, headers, body and wall-clock timing as a result object. Probes are
// explicit network actions, not sandboxed execution, and never throw: HTTP
// error statuses and transport failures both land in the response.
package probe
