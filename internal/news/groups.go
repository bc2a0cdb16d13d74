package news

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadGroups reads the tracked group list from a JSON file.
func LoadGroups(path string) ([]Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read groups file: %w", err)
	}

	var groups []Group
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse groups file %s: %w", path, err)
	}
	for i, g := range groups {
		if g.ID == "" || g.Name == "" {
			return nil, fmt.Errorf("groups file %s: entry %d is missing id or name", path, i)
		}
	}
	return groups, nil
}
