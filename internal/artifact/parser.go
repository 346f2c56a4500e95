package artifact

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/threadline/artifactd/internal/infrastructure/logging"
)

var (
	// ```artifact:<type>\n<json>```
	reArtifactFence = regexp.MustCompile("(?s)```artifact:([a-zA-Z0-9_-]+)[ \t]*\n(.*?)```")

	// ```file:<name>\n<content>```
	reFileFence = regexp.MustCompile("(?s)```file:([^\n`]+?)[ \t]*\n(.*?)```")
)

// Parser extracts typed artifacts from message markdown. Parsing is pure and
// repeatable: the same input always yields the same output, and the input is
// never mutated beyond placeholder substitution in the returned copy.
type Parser struct {
	logger    *logging.Logger
	sanitizer *bluemonday.Policy
}

// NewParser creates a parser.
func NewParser(logger *logging.Logger) *Parser {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Parser{
		logger:    logger.Named("artifact"),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Parse scans a message for artifact and file fences. Malformed blocks are
// dropped with a warning rather than surfaced: a bad artifact must not break
// the surrounding transcript.
func (p *Parser) Parse(message string) *ParsedMessage {
	out := &ParsedMessage{Artifacts: []Parsed{}}

	content := p.replaceFences(message, reArtifactFence, out, p.parseArtifactBlock)
	content = p.replaceFences(content, reFileFence, out, p.parseFileBlock)

	out.Content = content
	return out
}

type blockParser func(tag, body, raw string) (*Parsed, error)

// replaceFences substitutes every match with a placeholder referencing its
// artifact index, or with nothing when the block fails to parse.
func (p *Parser) replaceFences(content string, re *regexp.Regexp, out *ParsedMessage, parse blockParser) string {
	return re.ReplaceAllStringFunc(content, func(raw string) string {
		groups := re.FindStringSubmatch(raw)
		parsed, err := parse(groups[1], groups[2], raw)
		if err != nil {
			p.logger.Warn("dropping malformed artifact block",
				zap.String("tag", groups[1]),
				zap.Error(err),
			)
			return ""
		}
		out.Artifacts = append(out.Artifacts, *parsed)
		return fmt.Sprintf("[[artifact:%d]]", len(out.Artifacts)-1)
	})
}

func (p *Parser) parseArtifactBlock(tag, body, raw string) (*Parsed, error) {
	parsed := &Parsed{Type: Type(tag), Raw: raw}

	switch Type(tag) {
	case TypeCode:
		var payload CodePayload
		if err := sonic.Unmarshal([]byte(body), &payload); err != nil {
			return nil, fmt.Errorf("code payload: %w", err)
		}
		if payload.Code == "" {
			return nil, fmt.Errorf("code payload: missing code field")
		}
		parsed.Code = &payload

	case TypeCanvas:
		var payload CanvasPayload
		if err := sonic.Unmarshal([]byte(body), &payload); err != nil {
			return nil, fmt.Errorf("canvas payload: %w", err)
		}
		if payload.Code == "" {
			return nil, fmt.Errorf("canvas payload: missing code field")
		}
		if payload.Width <= 0 {
			payload.Width = 400
		}
		if payload.Height <= 0 {
			payload.Height = 400
		}
		parsed.Canvas = &payload

	case TypeSql:
		var payload SqlPayload
		if err := sonic.Unmarshal([]byte(body), &payload); err != nil {
			return nil, fmt.Errorf("sql payload: %w", err)
		}
		if payload.Query == "" {
			return nil, fmt.Errorf("sql payload: missing query field")
		}
		parsed.Sql = &payload

	case TypeApi:
		var payload ApiPayload
		if err := sonic.Unmarshal([]byte(body), &payload); err != nil {
			return nil, fmt.Errorf("api payload: %w", err)
		}
		if payload.URL == "" {
			return nil, fmt.Errorf("api payload: missing url field")
		}
		if payload.Method == "" {
			payload.Method = "GET"
		}
		parsed.Api = &payload

	default:
		// Unknown types fall back to generic JSON-viewer data.
		var generic any
		if err := sonic.Unmarshal([]byte(body), &generic); err != nil {
			return nil, fmt.Errorf("%s payload: %w", tag, err)
		}
		parsed.Generic = generic
	}

	return parsed, nil
}

func (p *Parser) parseFileBlock(name, body, raw string) (*Parsed, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("file block: empty filename")
	}
	return &Parsed{
		Type: TypeFile,
		Raw:  raw,
		File: &FilePayload{
			Name:    name,
			Content: body,
			Display: p.sanitizer.Sanitize(body),
		},
	}, nil
}
