// Package fs provides file-based export of aggregated responses.
package fs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/websift"
)

// URLToPath converts a page URL to a relative file path under its host.
// Example: https://example.com/docs/api/users → example.com/docs/api/users.md
func URLToPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", websift.Errorf(websift.EINVALID, "URL %q has no host", rawURL)
	}

	host := strings.ReplaceAll(strings.ToLower(u.Host), ":", "_")
	path := strings.TrimPrefix(u.Path, "/")

	switch {
	case path == "":
		path = "index.md"
	case strings.HasSuffix(path, "/"):
		path += "index.md"
	default:
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".md"
	}

	return host + "/" + path, nil
}

// FormatOutcome formats an outcome's content with YAML frontmatter.
func FormatOutcome(o *websift.ExtractionOutcome, rank int, extracted time.Time) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "source: %s\n", o.URL)
	if o.Result != nil {
		fmt.Fprintf(&b, "title: %s\n", yamlString(o.Result.Title))
	}
	fmt.Fprintf(&b, "rank: %d\n", rank)
	fmt.Fprintf(&b, "strategy: %s\n", o.WinningStrategy)
	if o.Score != nil {
		fmt.Fprintf(&b, "score: %d\n", o.Score.Score)
		fmt.Fprintf(&b, "tier: %s\n", o.Score.Tier)
	}
	if o.Partial {
		b.WriteString("partial: true\n")
	}
	fmt.Fprintf(&b, "extracted: %s\n", extracted.Format("2006-01-02"))
	b.WriteString("---\n\n")
	if o.Result != nil {
		b.WriteString(o.Result.Content)
	}
	return b.String()
}

// FormatIndex formats the table of contents for an exported response.
func FormatIndex(resp *websift.AggregatedResponse, paths []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", resp.Query)
	fmt.Fprintf(&b, "%d of %d requested results", resp.ActualCount, resp.RequestedCount)
	if resp.Partial {
		b.WriteString(" (low confidence)")
	}
	b.WriteString("\n\n")
	for i, o := range resp.Outcomes {
		title := o.URL
		if o.Result != nil && o.Result.Title != "" {
			title = o.Result.Title
		}
		fmt.Fprintf(&b, "%d. [%s](%s) - %s\n", i+1, title, paths[i], o.URL)
	}
	return b.String()
}

// yamlString quotes s when it would not survive as a plain YAML scalar.
func yamlString(s string) string {
	if s == "" || strings.ContainsAny(s, ":#\"'\n[]{}") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// Exporter writes aggregated responses as markdown files with atomic
// replace semantics. Files are written to baseDir/name.tmp and moved to
// baseDir/name once every file is on disk.
type Exporter struct {
	baseDir string
	name    string
}

// NewExporter creates a new Exporter.
func NewExporter(baseDir, name string) *Exporter {
	return &Exporter{baseDir: baseDir, name: name}
}

func (e *Exporter) tempDir() string {
	return filepath.Join(e.baseDir, e.name+".tmp")
}

func (e *Exporter) finalDir() string {
	return filepath.Join(e.baseDir, e.name)
}

// Dir returns the directory the export is committed to.
func (e *Exporter) Dir() string {
	return e.finalDir()
}

// Export writes one file per outcome plus an index.md and commits the
// directory. On failure the previous export, if any, is left untouched.
func (e *Exporter) Export(ctx context.Context, resp *websift.AggregatedResponse) (err error) {
	if resp == nil {
		return websift.Errorf(websift.EINVALID, "response required")
	}
	if err := os.RemoveAll(e.tempDir()); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = e.abort()
		}
	}()

	now := time.Now()
	paths := make([]string, len(resp.Outcomes))
	for i, o := range resp.Outcomes {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := URLToPath(o.URL)
		if err != nil {
			return err
		}
		paths[i] = rel
		if err := writeFile(filepath.Join(e.tempDir(), rel), FormatOutcome(o, i+1, now)); err != nil {
			return err
		}
	}
	if err := writeFile(filepath.Join(e.tempDir(), "index.md"), FormatIndex(resp, paths)); err != nil {
		return err
	}

	return e.commit()
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

func (e *Exporter) commit() error {
	if err := os.RemoveAll(e.finalDir()); err != nil {
		return err
	}
	return os.Rename(e.tempDir(), e.finalDir())
}

func (e *Exporter) abort() error {
	return os.RemoveAll(e.tempDir())
}
