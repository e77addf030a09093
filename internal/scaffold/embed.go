package scaffold

import "embed"

//go:embed templates
var templateFS embed.FS

const templateRoot = "templates/project"

// renames maps embedded names to output names that go:embed cannot carry.
var renames = map[string]string{
	"gitignore": ".gitignore",
}
