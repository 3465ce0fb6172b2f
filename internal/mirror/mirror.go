// Package mirror implements the file-mirror (C7): a best-effort,
// post-commit side effect that materializes items and the active
// system state to a human-readable Markdown tree. Failures are logged
// and never surface to the caller — the database write already
// committed by the time a mirror write runs.
package mirror

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shirokuma-kb/core/internal/kbtypes"
	"github.com/shirokuma-kb/core/internal/obs"
)

// unsafeChars matches filesystem-unsafe characters in a title; each
// match is replaced with a single underscore.
var unsafeChars = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)

// Writer mirrors items and system states to Markdown files under a
// root export directory.
type Writer struct {
	root string
}

// New returns a Writer rooted at exportDir, or nil if exportDir is
// empty or cannot be created. A nil Writer is the "not activated"
// case: callers must treat it as a no-op, not an error.
func New(exportDir string) *Writer {
	if exportDir == "" {
		return nil
	}
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		obs.Errorf("mirror: export dir %q not usable, disabling mirror: %v", exportDir, err)
		return nil
	}
	return &Writer{root: exportDir}
}

// sanitizeTitle replaces filesystem-unsafe characters with "_" so a
// title can be used inside a file name.
func sanitizeTitle(title string) string {
	return unsafeChars.ReplaceAllString(title, "_")
}

func itemPath(root string, itemType string, id int64, title string) string {
	fileName := fmt.Sprintf("%d-%s.md", id, sanitizeTitle(title))
	return confine(root, filepath.Join(sanitizeTitle(itemType), fileName))
}

func statePath(root string, id int64) string {
	return confine(root, filepath.Join(".system", "current_state", fmt.Sprintf("%d.md", id)))
}

// confine joins root with rel and rejects any result that escapes
// root. A rejected path falls back to root itself; writeMarkdownFile's
// error on the resulting collision is logged by the caller like any
// other mirror failure.
func confine(root, rel string) string {
	path := filepath.Join(root, rel)
	cleanRoot := filepath.Clean(root)
	if path != cleanRoot && !strings.HasPrefix(path, cleanRoot+string(filepath.Separator)) {
		obs.Errorf("mirror: computed path %q escapes export root %q, rejecting", path, root)
		return cleanRoot
	}
	return path
}

// MirrorItem writes item's Markdown file, removing the previous
// file if previousTitle differs from item's current title (a rename).
func (w *Writer) MirrorItem(item *kbtypes.Item, previousTitle string) {
	if w == nil || item == nil {
		return
	}
	path := itemPath(w.root, item.Type, item.ID, item.Title)

	if previousTitle != "" && previousTitle != item.Title {
		oldPath := itemPath(w.root, item.Type, item.ID, previousTitle)
		if oldPath != path {
			if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
				obs.Errorf("mirror: remove renamed item file %q: %v", oldPath, err)
			}
		}
	}

	if err := writeMarkdownFile(path, itemFrontMatter(item), item.Content); err != nil {
		obs.Errorf("mirror: write item %d: %v", item.ID, err)
	}
}

// RemoveItem deletes item's mirrored file, if any.
func (w *Writer) RemoveItem(item *kbtypes.Item) {
	if w == nil || item == nil {
		return
	}
	path := itemPath(w.root, item.Type, item.ID, item.Title)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		obs.Errorf("mirror: remove item %d: %v", item.ID, err)
	}
}

// MirrorState writes the active system state's Markdown file.
func (w *Writer) MirrorState(state *kbtypes.SystemState) {
	if w == nil || state == nil {
		return
	}
	path := statePath(w.root, state.ID)
	if err := writeMarkdownFile(path, stateFrontMatter(state), state.Content); err != nil {
		obs.Errorf("mirror: write state %d: %v", state.ID, err)
	}
}

type itemMeta struct {
	ID          int64    `yaml:"id"`
	Type        string   `yaml:"type"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Status      string   `yaml:"status"`
	Priority    string   `yaml:"priority"`
	Tags        []string `yaml:"tags"`
	CreatedAt   string   `yaml:"createdAt"`
	UpdatedAt   string   `yaml:"updatedAt"`
}

func itemFrontMatter(item *kbtypes.Item) interface{} {
	tags := make([]string, len(item.Tags))
	for i, t := range item.Tags {
		tags[i] = t.Name
	}
	return itemMeta{
		ID:          item.ID,
		Type:        item.Type,
		Title:       item.Title,
		Description: item.Description,
		Status:      item.Status.Name,
		Priority:    string(item.Priority),
		Tags:        tags,
		CreatedAt:   item.CreatedAt.Format(timeLayout),
		UpdatedAt:   item.UpdatedAt.Format(timeLayout),
	}
}

type stateMeta struct {
	ID           int64                      `yaml:"id"`
	Version      string                     `yaml:"version"`
	Metrics      kbtypes.SystemStateMetrics `yaml:"metrics"`
	Tags         []string                   `yaml:"tags"`
	RelatedItems []int64                    `yaml:"relatedItems"`
	CreatedAt    string                     `yaml:"createdAt"`
	UpdatedAt    string                     `yaml:"updatedAt"`
}

func stateFrontMatter(state *kbtypes.SystemState) interface{} {
	return stateMeta{
		ID:           state.ID,
		Version:      state.Version,
		Metrics:      state.Metrics,
		Tags:         state.Tags,
		RelatedItems: state.RelatedItems,
		CreatedAt:    state.CreatedAt.Format(timeLayout),
		UpdatedAt:    state.UpdatedAt.Format(timeLayout),
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func writeMarkdownFile(path string, frontMatter interface{}, body string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create mirror dir: %w", err)
	}
	yamlBytes, err := yaml.Marshal(frontMatter)
	if err != nil {
		return fmt.Errorf("marshal frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(yamlBytes)
	sb.WriteString("---\n\n")
	sb.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		sb.WriteString("\n")
	}

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}
