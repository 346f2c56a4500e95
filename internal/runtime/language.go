package runtime

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUnsupportedLanguage is returned for languages the sandbox cannot run.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language identifies an executable source language.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
)

// NormalizeLanguage maps user-facing language tags onto the supported set.
// Unknown tags return the empty Language.
func NormalizeLanguage(tag string) Language {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "javascript", "js", "":
		return LangJavaScript
	case "typescript", "ts":
		return LangTypeScript
	}
	return ""
}

// Executable reports whether a language tag can be run in the sandbox.
func Executable(tag string) bool {
	return NormalizeLanguage(tag) != ""
}

// TypeScript stripping passes, applied in order. This is a syntactic
// heuristic, not a compiler: decorators, conditional types, type guards and
// other advanced constructs are not guaranteed to downlevel correctly.
var (
	// interface Foo<T> extends Bar { ... } with one level of nesting
	reInterface = regexp.MustCompile(`(?ms)^\s*(?:export\s+)?interface\s+[\w$]+(?:<[^>]*>)?(?:\s+extends\s+[^{]+)?\s*\{(?:[^{}]|\{[^{}]*\})*\}`)

	// type Alias<T> = ...;
	reTypeAlias = regexp.MustCompile(`(?m)^\s*(?:export\s+)?type\s+[\w$]+(?:<[^>]*>)?\s*=[^;]*;`)

	// expr as Type / expr as const
	reAsAssert = regexp.MustCompile(`\bas\s+(?:const\b|[A-Za-z_$][\w$.]*(?:<[^>]*>)?(?:\[\])*)`)

	// function name<T, U>(
	reFuncGenerics = regexp.MustCompile(`(\bfunction\s+[\w$]+)\s*<[^<>]+>`)

	// ): ReturnType { / ): ReturnType =>
	reReturnType = regexp.MustCompile(`\)\s*:\s*[A-Za-z_$][\w$.<>\[\]| &]*?\s*(=>|\{)`)

	// const x: Type = / let y: Type;
	reVarDeclInit = regexp.MustCompile(`\b(const|let|var)\s+([\w$]+)\s*:\s*[^=;\n]+=`)
	reVarDeclBare = regexp.MustCompile(`\b(const|let|var)\s+([\w$]+)\s*:\s*[^=;\n]+;`)

	// (a: Type, b?: Type); applied repeatedly since matches share commas
	reParamType = regexp.MustCompile(`([,(]\s*[\w$]+)\??\s*:\s*[A-Za-z_$][\w$.]*(?:<[^<>]*>)?(?:\[\])*(\s*[,)=])`)

	// value! postfix non-null assertion
	reNonNull = regexp.MustCompile(`([\w$)\]])!([.,;)\]\s]|$)`)
)

// Downlevel transforms source into directly executable JavaScript.
// JavaScript passes through verbatim; TypeScript gets a best-effort strip of
// type syntax. Callers must treat the TypeScript path as a heuristic.
func Downlevel(tag, source string) (string, error) {
	switch NormalizeLanguage(tag) {
	case LangJavaScript:
		return source, nil
	case LangTypeScript:
		return stripTypes(source), nil
	}
	return "", ErrUnsupportedLanguage
}

func stripTypes(src string) string {
	out := reInterface.ReplaceAllString(src, "")
	out = reTypeAlias.ReplaceAllString(out, "")
	out = reFuncGenerics.ReplaceAllString(out, "$1")
	out = reReturnType.ReplaceAllString(out, ") $1")
	out = reVarDeclInit.ReplaceAllString(out, "$1 $2 =")
	out = reVarDeclBare.ReplaceAllString(out, "$1 $2;")

	// Parameter annotations share delimiters between matches, so one pass
	// can leave alternating parameters annotated.
	for i := 0; i < 8; i++ {
		next := reParamType.ReplaceAllString(out, "$1$2")
		if next == out {
			break
		}
		out = next
	}

	out = reAsAssert.ReplaceAllString(out, "")
	out = reNonNull.ReplaceAllString(out, "$1$2")
	return out
}
