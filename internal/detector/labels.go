// labels.go class label list loading
package detector

import (
	"bufio"
	"os"
	"strings"

	"github.com/kawakawa0804/umi-no-me-web2/internal/errors"
)

// loadLabels reads a label list file, one label per line. Blank lines are
// skipped so exported label files with trailing newlines load cleanly.
func loadLabels(path string) ([]string, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path comes from application settings
	if err != nil {
		return nil, errors.New(err).
			Component("detector").
			Category(errors.CategoryFileIO).
			Context("label_path", path).
			Context("operation", "open").
			Build()
	}
	defer file.Close()

	var labels []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(err).
			Component("detector").
			Category(errors.CategoryFileIO).
			Context("label_path", path).
			Context("operation", "scan").
			Build()
	}

	return labels, nil
}
