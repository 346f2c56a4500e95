/*
Package runtime executes untrusted artifact code inside isolated JavaScript
realms.

# Overview

Each run gets a private goja VM with no host-reaching globals, a console
bridge that serializes every console call into a structured message, and a
hard wall-clock deadline. All output crosses the realm boundary as messages
on a channel; no shared mutable state is visible to guest code.

# Lifecycle

A Controller drives runs for one artifact instance:

	Idle -> Running -> {Completed, Errored, TimedOut, Stopped} -> Idle

At most one realm is live per controller. Starting a run while one is active
stops the old one first. The deadline kill is non-cooperative: the realm's
interpreter loop is interrupted and the realm discarded whether or not the
guest script yields.

# Message protocol

The realm posts a tagged union of messages, validated at the decode boundary:

	LogMessage    {type: log|warn|error|info, args: [...]}
	ErrorMessage  {error: "..."}
	DoneMessage   {done: true}
	StatusMessage {status: "running"}   (canvas programs)

The host never posts messages into the realm; all configuration is baked into
the program before it runs.

# TypeScript

The language adapter downlevels TypeScript by regex-stripping type syntax.
This is deliberately a heuristic: it handles annotations, interfaces, type
aliases, generics on function declarations, as-assertions and non-null
operators, and makes no promise about decorators or advanced generics.
*/
package runtime
