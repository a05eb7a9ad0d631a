package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/silvamed/ontoforge/errors"
)

// UserConfigPath returns the path of the user config file,
// ~/.ontoforge/config.toml.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "ontoforge.toml")
	}
	return filepath.Join(home, ".ontoforge", "config.toml")
}

// Set persists one dotted key (e.g. "builder.review_floor") to the user
// config file, keeping whatever else the file holds. The previous file is
// rotated to a .back1 backup first.
func Set(key string, value any) error {
	path := UserConfigPath()

	tree, err := loadTree(path)
	if err != nil {
		return err
	}

	parts := strings.Split(key, ".")
	node := tree
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value

	if err := saveTree(tree, path); err != nil {
		return err
	}
	Reset() // force the next Load to pick up the change
	return nil
}

func loadTree(path string) (map[string]any, error) {
	tree := make(map[string]any)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return tree, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return tree, nil
}

func saveTree(tree map[string]any, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(path))
	}
	if err := createBackup(path); err != nil {
		return err
	}

	data, err := toml.Marshal(tree)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// createBackup rotates path to path.back1 before an overwrite.
func createBackup(path string) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(path+".back1", content, 0644); err != nil {
		return errors.Wrap(err, "failed to write backup")
	}
	return nil
}
