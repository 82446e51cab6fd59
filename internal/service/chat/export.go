package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zhouzirui/coach-studio/backend/internal/model/chat"
)

var ErrExportIO = errors.New("export write failed")

const (
	// DefaultExportName is used when the operator leaves the filename blank.
	DefaultExportName = "chat_history"
	// ExportExtension is kept as .json although the payload is JSON Lines.
	ExportExtension = ".json"
)

// ExportMetadata is the first line of an export.
type ExportMetadata struct {
	LLMRole        string  `json:"llm_role"`
	LLMTemperature float64 `json:"llm_temperature"`
}

// Export serializes the current configuration and the transcript as line-delimited
// JSON: the metadata object first, then one object per message in append order.
// Lines are separated by "\n" with no trailing newline, so an empty transcript yields
// the metadata line alone rather than the metadata line plus "\n".
func Export(cfg chat.SessionConfig, messages []chat.Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(ExportMetadata{LLMRole: cfg.RoleDefinition, LLMTemperature: cfg.Temperature}); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	for i, msg := range messages {
		if err := enc.Encode(msg); err != nil {
			return nil, fmt.Errorf("encode message %d: %w", i, err)
		}
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ParseExport reads a document produced by Export.
func ParseExport(data []byte) (ExportMetadata, []chat.Message, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var meta ExportMetadata
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return meta, nil, err
		}
		return meta, nil, errors.New("export is empty")
	}
	if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil {
		return meta, nil, fmt.Errorf("decode metadata: %w", err)
	}

	messages := make([]chat.Message, 0)
	for line := 2; scanner.Scan(); line++ {
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		var msg chat.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			return meta, nil, fmt.Errorf("decode line %d: %w", line, err)
		}
		messages = append(messages, msg)
	}
	return meta, messages, scanner.Err()
}

// ExportFilename turns the operator-supplied name into a safe file name.
func ExportFilename(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.TrimSpace(name)))
	name = strings.TrimSuffix(name, ExportExtension)
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		name = DefaultExportName
	}
	return name + ExportExtension
}

// Sink receives a finished export document.
type Sink interface {
	Write(ctx context.Context, filename string, data []byte) error
}

// FileSink writes exports into a directory.
type FileSink struct {
	Dir string
}

// Write stores data as Dir/ExportFilename(filename) and returns ErrExportIO on failure.
func (s FileSink) Write(ctx context.Context, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	path := filepath.Join(s.Dir, ExportFilename(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	return nil
}
