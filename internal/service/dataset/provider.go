// Package dataset reads participant datasets and technical summaries from disk.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrInvalidName     = errors.New("invalid dataset name")
)

// SummarySuffix marks technical-summary files produced for simulated users.
const SummarySuffix = "_simulatedUser.txt"

// Provider is a read-only lookup of dataset text by name.
type Provider interface {
	Fetch(ctx context.Context, name string) (string, error)
	List(ctx context.Context) ([]string, error)
}

// DirProvider serves files below a single root directory.
type DirProvider struct {
	root   string
	logger *zap.Logger
}

// NewDirProvider returns a provider rooted at dir.
func NewDirProvider(dir string, logger *zap.Logger) *DirProvider {
	return &DirProvider{root: dir, logger: logger}
}

// Fetch reads the named file and extracts its summary text with ParseSummary.
func (p *DirProvider) Fetch(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := p.resolve(name)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
		}
		return "", fmt.Errorf("reading dataset %s: %w", name, err)
	}

	text, parseErr := ParseSummary(string(data))
	if parseErr != nil {
		p.logger.Warn("dataset is not a summary document, using raw text",
			zap.String("name", name),
			zap.Error(parseErr),
		)
	}
	return text, nil
}

// List returns the regular, non-hidden file names under the root, sorted.
func (p *DirProvider) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return listFiles(p.root, "")
}

func (p *DirProvider) resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(p.root, name), nil
}

// ParseSummary returns the content field of the first element when raw is a JSON
// list of objects, and raw unchanged otherwise. The returned error explains why raw
// was kept; it is informational only.
func ParseSummary(raw string) (string, error) {
	var items []map[string]any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return raw, err
	}
	if len(items) == 0 {
		return raw, errors.New("summary list is empty")
	}
	content, ok := items[0]["content"]
	if !ok {
		return raw, errors.New("first summary entry has no content field")
	}
	text, ok := content.(string)
	if !ok {
		return raw, errors.New("summary content is not text")
	}
	return text, nil
}

// ParticipantNames lists participants that have both a CSV export in csvDir and a
// technical summary in summaryDir.
func ParticipantNames(csvDir, summaryDir string) ([]string, error) {
	csvNames, err := listFiles(csvDir, ".csv")
	if err != nil {
		return nil, err
	}
	summaries, err := listFiles(summaryDir, SummarySuffix)
	if err != nil {
		return nil, err
	}

	present := make(map[string]struct{}, len(summaries))
	for _, name := range summaries {
		present[strings.TrimSuffix(name, SummarySuffix)] = struct{}{}
	}

	names := make([]string, 0, len(csvNames))
	for _, name := range csvNames {
		base := strings.TrimSuffix(name, ".csv")
		if _, ok := present[base]; ok {
			names = append(names, base)
		}
	}
	sort.Strings(names)
	return names, nil
}

func listFiles(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if suffix != "" && !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
