// package formatter exports a stream grid to various formats (CSV, Markdown, plain text, JSON) and reads JSON grids back
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/streamgrid/internal/models"
	"github.com/desertthunder/streamgrid/internal/player"
	"github.com/desertthunder/streamgrid/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatCSV, FormatMarkdown, FormatJSON}
}

// ParseFormat accepts a format name or a common alias ("md", "txt").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// Export renders layout in format f.
func Export(layout player.Layout, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(layout)
	case FormatMarkdown:
		return ExportToMarkdown(layout)
	case FormatJSON:
		return ExportToJSON(layout)
	case FormatText:
		return ExportToText(layout)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

// ExportToCSV converts a layout to CSV with columns: ID, Platform, Username, Embed URL
func ExportToCSV(layout player.Layout) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Platform", "Username", "Embed URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, tile := range layout.Tiles {
		record := []string{
			tile.Entry.ID,
			tile.Entry.Platform.String(),
			tile.Entry.Username,
			tile.URL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a layout to a Markdown document with one row per tile.
func ExportToMarkdown(layout player.Layout) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Stream Grid\n\n")
	fmt.Fprintf(&buf, "**Streams**: %d\n", len(layout.Tiles))
	fmt.Fprintf(&buf, "**Columns**: %d\n\n", layout.Columns)

	buf.WriteString("| # | Platform | Channel | Embed |\n")
	buf.WriteString("|---|----------|---------|-------|\n")
	for i, tile := range layout.Tiles {
		name := escapeCell(tile.Entry.Username)
		embed := "_" + tile.Prompt + "_"
		if tile.URL != "" {
			embed = fmt.Sprintf("[open](%s)", tile.URL)
		}
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(&buf, "| %d | %s | %s | %s |\n", i+1, tile.Entry.Platform.Title(), name, embed)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a layout to plain text.
func ExportToText(layout player.Layout) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Streams: %d (%d columns)\n\n", len(layout.Tiles), layout.Columns)
	for i, tile := range layout.Tiles {
		if tile.URL == "" {
			fmt.Fprintf(&buf, "%d. %s - (%s)\n", i+1, tile.Entry.Platform.Title(), tile.Prompt)
			continue
		}
		fmt.Fprintf(&buf, "%d. %s - %s\n   %s\n", i+1, tile.Entry.Platform.Title(), tile.Entry.Username, tile.URL)
	}

	return buf.Bytes(), nil
}

// ExportToJSON writes the entries alone, in the same shape the grid is persisted in.
func ExportToJSON(layout player.Layout) ([]byte, error) {
	entries := make([]models.StreamEntry, len(layout.Tiles))
	for i, tile := range layout.Tiles {
		entries[i] = tile.Entry
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode entries: %w", err)
	}
	return append(data, '\n'), nil
}

// ImportJSON reads entries written by [ExportToJSON]. Unknown platforms are rejected.
func ImportJSON(r io.Reader) ([]models.StreamEntry, error) {
	var entries []models.StreamEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	for i, e := range entries {
		p, ok := models.ParsePlatform(e.Platform.String())
		if !ok {
			return nil, fmt.Errorf("%w: entry %d has platform %q", shared.ErrUnknownPlatform, i+1, e.Platform)
		}
		entries[i].Platform = p
	}
	return entries, nil
}

// WriteExport renders layout and writes it to path, or to w when path is "" or "-".
//
// Returns the path written, or "" for w.
func WriteExport(layout player.Layout, f Format, path string, w io.Writer) (string, error) {
	data, err := Export(layout, f)
	if err != nil {
		return "", err
	}

	if path == "" || path == "-" {
		if _, err := w.Write(data); err != nil {
			return "", fmt.Errorf("failed to write export: %w", err)
		}
		return "", nil
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}
	return path, nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
