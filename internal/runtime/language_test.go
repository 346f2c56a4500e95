package runtime

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		tag  string
		want Language
	}{
		{tag: "javascript", want: LangJavaScript},
		{tag: "js", want: LangJavaScript},
		{tag: "", want: LangJavaScript},
		{tag: "JavaScript", want: LangJavaScript},
		{tag: "typescript", want: LangTypeScript},
		{tag: "ts", want: LangTypeScript},
		{tag: " TS ", want: LangTypeScript},
		{tag: "python", want: ""},
		{tag: "sql", want: ""},
	}

	for _, tt := range tests {
		if got := NormalizeLanguage(tt.tag); got != tt.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestExecutable(t *testing.T) {
	if !Executable("js") || !Executable("typescript") || !Executable("") {
		t.Error("expected js, typescript and empty tag to be executable")
	}
	if Executable("python") || Executable("rust") {
		t.Error("expected non-JS languages to be rejected")
	}
}

func TestDownlevelJavaScriptPassthrough(t *testing.T) {
	src := "const x = {a: 1}; console.log(x.a)"
	out, err := Downlevel("javascript", src)
	if err != nil {
		t.Fatalf("Downlevel() error = %v", err)
	}
	if out != src {
		t.Errorf("Downlevel() modified plain JavaScript: %q", out)
	}
}

func TestDownlevelUnsupported(t *testing.T) {
	_, err := Downlevel("python", "print(1)")
	if !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("Downlevel() error = %v, want ErrUnsupportedLanguage", err)
	}
}

func TestDownlevelTypeScript(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		contains []string
		excludes []string
	}{
		{
			name:     "variable annotation with initializer",
			src:      "const count: number = 42;",
			contains: []string{"const count = 42;"},
			excludes: []string{": number"},
		},
		{
			name:     "bare variable annotation",
			src:      "let name: string;",
			contains: []string{"let name;"},
			excludes: []string{": string"},
		},
		{
			name:     "function parameters and return type",
			src:      "function add(a: number, b: number): number { return a + b; }",
			contains: []string{"function add(a, b)", "return a + b"},
			excludes: []string{": number"},
		},
		{
			name:     "arrow function return type",
			src:      "const f = (x: number): number => x * 2;",
			contains: []string{"=> x * 2"},
			excludes: []string{": number"},
		},
		{
			name:     "generic function declaration",
			src:      "function identity<T>(value: T): T { return value; }",
			contains: []string{"function identity(value)"},
			excludes: []string{"<T>"},
		},
		{
			name:     "interface removed",
			src:      "interface Point { x: number; y: number; }\nconst p = {x: 1, y: 2};",
			contains: []string{"const p = {x: 1, y: 2};"},
			excludes: []string{"interface"},
		},
		{
			name:     "nested interface removed",
			src:      "interface Config { server: { port: number }; }\nconsole.log('ok');",
			contains: []string{"console.log('ok');"},
			excludes: []string{"interface"},
		},
		{
			name:     "type alias removed",
			src:      "type ID = string | number;\nconst id = 7;",
			contains: []string{"const id = 7;"},
			excludes: []string{"type ID"},
		},
		{
			name:     "as assertion removed",
			src:      "const value = input as string;",
			excludes: []string{"as string"},
		},
		{
			name:     "as const removed",
			src:      "const dirs = ['n', 's'] as const;",
			contains: []string{"['n', 's']"},
			excludes: []string{"as const"},
		},
		{
			name:     "non-null assertion removed",
			src:      "const name = user!.name;",
			contains: []string{"user.name"},
			excludes: []string{"!"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Downlevel("typescript", tt.src)
			if err != nil {
				t.Fatalf("Downlevel() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output %q missing %q", out, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(out, bad) {
					t.Errorf("output %q still contains %q", out, bad)
				}
			}
		})
	}
}

func TestDownlevelOutputRuns(t *testing.T) {
	src := `
		interface Shape { area: number; }
		type Label = string;
		function describe(kind: string, size: number): string {
			return kind + ':' + size;
		}
		const result: string = describe('circle', 4);
		console.log(result);
	`
	out, err := Downlevel("ts", src)
	if err != nil {
		t.Fatalf("Downlevel() error = %v", err)
	}

	c := NewController(testConfig(), nil)
	defer c.Close()

	handle, err := c.Run(Program{Source: out})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	result := handle.Wait()
	if result.State != StateCompleted {
		t.Fatalf("State = %s (error %q), want %s", result.State, result.Error, StateCompleted)
	}
	if len(result.Logs) != 1 || result.Logs[0].Args[0] != "circle:4" {
		t.Errorf("Logs = %+v, want circle:4", result.Logs)
	}
}
