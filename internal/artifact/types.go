package artifact

// Type tags an artifact payload.
type Type string

const (
	TypeCode   Type = "code"
	TypeCanvas Type = "canvas"
	TypeSql    Type = "sql"
	TypeApi    Type = "api"
	TypeJSON   Type = "json"
	TypeTable  Type = "table"
	TypeFile   Type = "file"
)

// CodePayload is an executable (or display-only) code snippet.
type CodePayload struct {
	Language   string `json:"language"`
	Code       string `json:"code"`
	Executable bool   `json:"executable"`
}

// CanvasPayload is a visual sketch.
type CanvasPayload struct {
	Code   string `json:"code"`
	Mode   string `json:"mode,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`

	// AutoRun is a render hint relayed to clients in the parse output.
	// The server never starts a run on its own; the client decides when
	// to trigger one.
	AutoRun bool `json:"autoRun,omitempty"`
}

// SqlPayload is a query with optional schema and seed scripts.
type SqlPayload struct {
	Query    string `json:"query"`
	Schema   string `json:"schema,omitempty"`
	SeedData string `json:"seedData,omitempty"`
}

// ApiPayload is an outbound HTTP request definition.
type ApiPayload struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// FilePayload is a raw file block. Display carries a sanitized copy safe to
// splice into rendered output.
type FilePayload struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Display string `json:"display"`
}

// Parsed is one typed artifact extracted from a message. Exactly one payload
// field is set, matching Type; unknown types decode into Generic for the
// JSON viewer. Immutable once parsed.
type Parsed struct {
	Type Type   `json:"type"`
	Raw  string `json:"raw"`

	Code    *CodePayload   `json:"code,omitempty"`
	Canvas  *CanvasPayload `json:"canvas,omitempty"`
	Sql     *SqlPayload    `json:"sql,omitempty"`
	Api     *ApiPayload    `json:"api,omitempty"`
	File    *FilePayload   `json:"file,omitempty"`
	Generic any            `json:"generic,omitempty"`
}

// ParsedMessage is the parse output: the message text with each artifact
// block substituted by an opaque placeholder, plus the artifacts in order.
// Placeholders have the form [[artifact:N]] where N indexes Artifacts.
type ParsedMessage struct {
	Content   string   `json:"content"`
	Artifacts []Parsed `json:"artifacts"`
}
