package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Path returns the manifest path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Exists reports whether dir contains a manifest file.
func Exists(dir string) bool {
	info, err := os.Stat(Path(dir))
	return err == nil && !info.IsDir()
}

// ParseFile reads and decodes a Move.toml file.
func ParseFile(path string) (*Manifest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes Move.toml contents.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("line %d, column %d: %w", row, col, err)
		}
		return nil, err
	}
	if m.Package.Name == "" {
		return nil, fmt.Errorf("[package] name is required")
	}
	return &m, nil
}

// Command returns the command string registered under name. The [ika] test
// key takes precedence for "test", then [ika.commands], then DefaultCommands.
// The boolean is false when no command is known.
func (m *Manifest) Command(name string) (string, bool) {
	if name == CommandTest && m.Ika.Test != "" {
		return m.Ika.Test, true
	}
	if cmd, ok := m.Ika.Commands[name]; ok && cmd != "" {
		return cmd, true
	}
	cmd, ok := DefaultCommands[name]
	return cmd, ok
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
