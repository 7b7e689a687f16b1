package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// LoadDictionary reads a dictionary from a .json, .yaml or .yml file.
func LoadDictionary(path string) (domain.Dictionary, error) {
	var dict domain.Dictionary

	raw, err := os.ReadFile(path)
	if err != nil {
		return dict, fmt.Errorf("read dictionary: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(raw, &dict)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &dict)
	default:
		return dict, fmt.Errorf("unsupported dictionary file extension %q: want .json, .yaml or .yml", ext)
	}
	if err != nil {
		return dict, fmt.Errorf("parse dictionary %s: %w", path, err)
	}
	return dict, nil
}
