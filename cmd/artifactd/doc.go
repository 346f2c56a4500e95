// Command artifactd runs the artifact execution service: a sandboxed
// runtime for AI-generated code, canvas sketches, SQL, and API probes.
package main
