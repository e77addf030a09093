package manifest

// FileName is the manifest file expected at the root of every project.
const FileName = "Move.toml"

// Manifest is a parsed Move.toml.
type Manifest struct {
	Package         Package               `toml:"package"`
	Dependencies    map[string]Dependency `toml:"dependencies,omitempty"`
	DevDependencies map[string]Dependency `toml:"dev-dependencies,omitempty"`
	Addresses       map[string]string     `toml:"addresses,omitempty"`
	Ika             Ika                   `toml:"ika,omitempty"`
}

// Package is the [package] section.
type Package struct {
	Name    string   `toml:"name"`
	Version string   `toml:"version,omitempty"`
	Edition string   `toml:"edition,omitempty"`
	Authors []string `toml:"authors,omitempty"`
}

// Dependency is one entry of [dependencies]; either Git or Local is set.
type Dependency struct {
	Git    string `toml:"git,omitempty"`
	Subdir string `toml:"subdir,omitempty"`
	Rev    string `toml:"rev,omitempty"`
	Local  string `toml:"local,omitempty"`
}

// Ika is the [ika] section: named commands run by the test orchestrator.
type Ika struct {
	// Test is the end-to-end test command, e.g. "npm test".
	Test     string            `toml:"test,omitempty"`
	Commands map[string]string `toml:"commands,omitempty"`
}

// Well-known command names.
const (
	CommandTest = "test"
)

// DefaultCommands are used when the manifest does not name a command.
var DefaultCommands = map[string]string{
	CommandTest: "npm test",
}
