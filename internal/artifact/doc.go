/*
Package artifact parses typed artifact blocks out of chat message markdown.

Messages embed artifacts as fenced blocks:

	```artifact:<type>
	<JSON payload>
	```

	```file:<filename>
	<raw content>
	```

Each well-formed block becomes a typed payload and its range in the message
is replaced by an opaque placeholder for reinsertion into rendered output.
Malformed blocks are logged and dropped; unknown types decode into generic
JSON-viewer data. File content is additionally sanitized before it can be
spliced into rendered output.
*/
package artifact
