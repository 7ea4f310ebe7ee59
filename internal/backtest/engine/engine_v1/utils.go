package engine

import (
	"fmt"
	"path/filepath"
	"strings"
)

// getResultFolder returns <root>/<symbol>/<start>_<end>/<run name>.
func getResultFolder(root string, config BacktestConfig) string {
	symbolFolder := filepath.Join(root, sanitizePathElement(config.Symbol))
	rangeFolder := filepath.Join(symbolFolder, fmt.Sprintf("%s_%s",
		strings.ReplaceAll(config.StartDate, "-", ""),
		strings.ReplaceAll(config.EndDate, "-", ""),
	))

	return filepath.Join(rangeFolder, sanitizePathElement(config.Name))
}

// sanitizePathElement keeps a run name from escaping its folder.
func sanitizePathElement(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_", " ", "_")
	cleaned := replacer.Replace(strings.TrimSpace(name))

	if cleaned == "" || cleaned == "." {
		return "run"
	}

	return cleaned
}
