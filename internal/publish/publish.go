// Package publish renders the sitemap set and uploads it to a static target.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessedrg/cbd-boutique/internal/sitemap"
)

// File is one rendered document.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// Render produces robots.txt, sitemap.xml, sitemaps/pages.xml and one
// sitemaps/{locale}.xml per locale.
func Render(e *sitemap.Enumerator, locales []string, now time.Time) ([]File, error) {
	var files []File
	xmlFile := func(name string, write func(*bytes.Buffer) error) error {
		var buf bytes.Buffer
		if err := write(&buf); err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
		files = append(files, File{Name: name, ContentType: "application/xml", Body: buf.Bytes()})
		return nil
	}

	files = append(files, File{Name: "robots.txt", ContentType: "text/plain", Body: []byte(sitemap.Robots(e.BaseURL()))})
	if err := xmlFile("sitemap.xml", func(b *bytes.Buffer) error {
		return sitemap.WriteIndex(b, e.IndexLocations(), now)
	}); err != nil {
		return nil, err
	}
	if err := xmlFile("sitemaps/pages.xml", func(b *bytes.Buffer) error {
		return sitemap.WriteURLSet(b, e.StaticPages())
	}); err != nil {
		return nil, err
	}
	for _, l := range locales {
		entries := e.IndexableURLs(l)
		if err := xmlFile("sitemaps/"+l+".xml", func(b *bytes.Buffer) error {
			return sitemap.WriteURLSet(b, entries)
		}); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// Publisher stores rendered files under their names.
type Publisher interface {
	Put(ctx context.Context, f File) error
}

// All uploads files in order and stops at the first failure.
func All(ctx context.Context, p Publisher, files []File) error {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Put(ctx, f); err != nil {
			return fmt.Errorf("publish %s: %w", f.Name, err)
		}
	}
	return nil
}

// Dir writes files below a local directory.
type Dir struct {
	Root string
}

// Put writes f below the root, creating parent directories.
func (d Dir) Put(_ context.Context, f File) error {
	name := strings.TrimLeft(filepath.Clean("/"+f.Name), "/")
	if name == "" {
		return fmt.Errorf("invalid file name %q", f.Name)
	}
	path := filepath.Join(d.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, f.Body, 0o644)
}
