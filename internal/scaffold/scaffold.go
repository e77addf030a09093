package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"unicode"

	"github.com/ika-labs/ika/internal/branding"
	"github.com/ika-labs/ika/internal/manifest"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Defaults written into new projects.
const (
	DefaultVersion     = "0.0.1"
	DefaultSuiRev      = "testnet"
	DefaultTestCommand = "npm test"
)

// ErrInvalidName is returned for project names that do not yield a Move identifier.
var ErrInvalidName = errors.New("project name must start with a letter and contain letters, digits, '-' or '_'")

// ScaffoldData holds all template variables available to scaffold templates.
type ScaffoldData struct {
	Name        string // As given, e.g., "My-Counter"
	ModuleName  string // Derived: Move package and address name, e.g., "my_counter"
	PackageName string // Derived: npm package name, e.g., "my-counter"
	Version     string // Move package version
	SuiRev      string // Sui framework git revision
	TestCommand string // [ika] test command
	CLIName     string // Command shown in the README
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	OutputDir string
	Files     []string
	Warnings  []string
}

// NewScaffoldData creates a ScaffoldData with derived fields populated.
func NewScaffoldData(name string) *ScaffoldData {
	return &ScaffoldData{
		Name:        name,
		ModuleName:  SnakeCase(name),
		PackageName: cases.Lower(language.Und).String(name),
		Version:     DefaultVersion,
		SuiRev:      DefaultSuiRev,
		TestCommand: DefaultTestCommand,
		CLIName:     branding.CLIName(),
	}
}

// ValidateName checks that name produces a valid Move identifier: ASCII
// letters, digits, '-', '_' or spaces, starting with a letter.
func ValidateName(name string) error {
	for _, r := range name {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == ' ') {
			return fmt.Errorf("%q: %w", name, ErrInvalidName)
		}
	}
	ident := SnakeCase(name)
	if ident == "" || !unicode.IsLetter(rune(ident[0])) {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

// SnakeCase converts a project name such as "MyCounter" or "my-counter" into
// "my_counter". Word boundaries are separators, lower-to-upper transitions,
// and the last capital of an acronym ("HTTPServer" becomes "http_server").
func SnakeCase(s string) string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()

	return cases.Lower(language.Und).String(strings.Join(words, "_"))
}

// Generate renders the project templates into outputDir. The directory is
// created if needed and must be empty.
func Generate(data *ScaffoldData, outputDir string) (*Result, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	// Check for existing files to prevent accidental overwrites.
	existingEntries, err := os.ReadDir(outputDir)
	if err == nil && len(existingEntries) > 0 {
		return nil, fmt.Errorf("output directory %s is not empty; remove existing files first", outputDir)
	}

	result := &Result{
		OutputDir: outputDir,
	}

	err = fs.WalkDir(templateFS, templateRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, templateRoot), "/")
		if rel == "" {
			return nil
		}
		if d.IsDir() {
			return os.MkdirAll(filepath.Join(outputDir, filepath.FromSlash(rel)), 0755)
		}

		outRel, err := render(p, rel, data, outputDir)
		if err != nil {
			return err
		}
		result.Files = append(result.Files, outRel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Validate the generated manifest against JSON Schema.
	manifestFile := manifest.Path(outputDir)
	valResult, valErr := manifest.ValidateFile(manifestFile)
	if valErr != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not validate manifest: %v", valErr))
	} else if !valResult.Valid {
		for _, issue := range valResult.Issues {
			msg := issue.Message
			if issue.Path != "" {
				msg = issue.Path + ": " + msg
			}
			result.Warnings = append(result.Warnings, msg)
		}
	}

	return result, nil
}

// render writes one embedded file and returns its slash-separated output path.
func render(src, rel string, data *ScaffoldData, outputDir string) (string, error) {
	content, err := fs.ReadFile(templateFS, src)
	if err != nil {
		return "", fmt.Errorf("reading template %s: %w", src, err)
	}

	dir, name := path.Split(rel)
	if strings.HasSuffix(name, ".tmpl") {
		name = strings.TrimSuffix(name, ".tmpl")

		tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return "", fmt.Errorf("parsing template %s: %w", rel, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("executing template %s: %w", rel, err)
		}
		content = buf.Bytes()
	}
	if renamed, ok := renames[name]; ok {
		name = renamed
	}

	outRel := dir + name
	outPath := filepath.Join(outputDir, filepath.FromSlash(outRel))
	if err := os.WriteFile(outPath, content, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", outPath, err)
	}
	return outRel, nil
}
