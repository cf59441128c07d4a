package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/communitycar/schemagraph/internal/schema"
)

// Output formats accepted by MultiFileFormatter.
const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// MultiFileFormatter writes an overview plus one file per entity
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes _overview plus <entity> files into OutputDir
func (f *MultiFileFormatter) Format(g *schema.Graph, plan *schema.Plan) error {
	if f.OutputFormat != FormatMarkdown && f.OutputFormat != FormatText {
		return fmt.Errorf("unsupported format: %s (must be text or markdown)", f.OutputFormat)
	}

	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeFile("_overview", func(w io.Writer) error { return f.writeOverview(w, plan) }); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, e := range plan.Entities {
		err := f.writeFile(e.Name, func(w io.Writer) error {
			if f.OutputFormat == FormatMarkdown {
				return NewMarkdownFormatter(w).FormatEntity(g, e)
			}
			return NewTextFormatter(w).FormatEntity(g, e)
		})
		if err != nil {
			return fmt.Errorf("failed to write entity file for %s: %w", e.Name, err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) writeFile(name string, write func(io.Writer) error) error {
	file, err := os.Create(filepath.Join(f.OutputDir, name+f.getFileExtension()))
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// writeOverview lists entities in creation order, so reading the overview top
// to bottom follows the dependency graph.
func (f *MultiFileFormatter) writeOverview(w io.Writer, plan *schema.Plan) error {
	ext := f.getFileExtension()
	if f.OutputFormat == FormatMarkdown {
		_, _ = fmt.Fprintf(w, "# Schema Overview\n\n")
		_, _ = fmt.Fprintf(w, "Each entity has a corresponding file: `<entity>%s`\n\n", ext)
		_, _ = fmt.Fprintf(w, "## Entities\n\n")
	} else {
		_, _ = fmt.Fprintf(w, "SCHEMA OVERVIEW\n")
		_, _ = fmt.Fprintf(w, "Each entity has a file: <entity>%s\n\n", ext)
	}

	for _, e := range plan.Entities {
		name := e.QualifiedName()
		if f.OutputFormat == FormatMarkdown {
			name = fmt.Sprintf("**%s**", name)
		}
		_, _ = fmt.Fprintf(w, "%s%s (level %d)", f.bullet(), name, plan.Level(e.Name))
		if targets := immediateTargets(plan, e.Name); len(targets) > 0 {
			_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(targets, ", "))
		}
		_, _ = fmt.Fprintln(w)
	}

	if len(plan.Deferred) > 0 {
		if f.OutputFormat == FormatMarkdown {
			_, _ = fmt.Fprintf(w, "\n## Deferred Foreign Keys\n\n")
		} else {
			_, _ = fmt.Fprintf(w, "\nDEFERRED\n")
		}
		for _, r := range plan.Deferred {
			_, _ = fmt.Fprintf(w, "%s%s: %s\n", f.bullet(), r.Name, r)
		}
	}

	return nil
}

func (f *MultiFileFormatter) bullet() string {
	if f.OutputFormat == FormatMarkdown {
		return "- "
	}
	return ""
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == FormatMarkdown {
		return ".md"
	}
	return ".txt"
}
