// File: source.go
package render

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Source hands out an image for a category, scaled to size.
type Source interface {
	Image(category string, size image.Point, rng *rand.Rand) (image.Image, error)
}

// Inventory is implemented by sources that can tell up front whether they
// hold images for a category.
type Inventory interface {
	Has(category string) bool
}

// Covering returns, in preference order, the sources that can serve every one
// of categories by themselves. Chains are flattened. A source without an
// Inventory is taken to cover everything.
func Covering(src Source, categories []string) []Source {
	var out []Source
	var walk func(Source)
	walk = func(s Source) {
		if c, ok := s.(Chain); ok {
			for _, m := range c {
				walk(m)
			}
			return
		}
		if inv, ok := s.(Inventory); ok {
			for _, cat := range categories {
				if !inv.Has(cat) {
					return
				}
			}
		}
		if s != nil {
			out = append(out, s)
		}
	}
	walk(src)
	return out
}

// Chain asks each source in turn and returns the first image found. A source
// reporting ErrNoImage is skipped; the last other error is returned if nothing
// succeeds.
type Chain []Source

func (c Chain) Image(category string, size image.Point, rng *rand.Rand) (image.Image, error) {
	err := ErrNoImage
	for _, s := range c {
		img, e := s.Image(category, size, rng)
		if e == nil {
			return img, nil
		}
		if !errors.Is(e, ErrNoImage) {
			err = e
		}
	}
	return nil, err
}

// DirSource reads stock imagery from a cache directory laid out as
// <Root>/<category>/<file>.{jpg,jpeg,png,webp}.
type DirSource struct {
	Root string
}

func (s DirSource) Image(category string, size image.Point, rng *rand.Rand) (image.Image, error) {
	if s.Root == "" {
		return nil, ErrNoImage
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: invalid size %v", ErrRender, size)
	}
	dir := filepath.Join(s.Root, CategoryDir(category))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoImage
		}
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	// 水塘抽样：以 1/count 概率选中
	var chosen string
	count := 0
	for _, e := range entries {
		if e.IsDir() || !isImageFile(e.Name()) {
			continue
		}
		count++
		if rng.Intn(count) == 0 {
			chosen = e.Name()
		}
	}
	if chosen == "" {
		return nil, ErrNoImage
	}

	f, err := os.Open(filepath.Join(dir, chosen))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrRender, chosen, err)
	}
	return cover(img, size), nil
}

// Has reports whether the category directory holds at least one image file.
func (s DirSource) Has(category string) bool {
	if s.Root == "" {
		return false
	}
	entries, err := os.ReadDir(filepath.Join(s.Root, CategoryDir(category)))
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && isImageFile(e.Name()) {
			return true
		}
	}
	return false
}

// Stats counts usable images per category directory.
func (s DirSource) Stats() (map[string]int, error) {
	stats := make(map[string]int)
	if s.Root == "" {
		return stats, nil
	}
	dirs, err := os.ReadDir(s.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return stats, nil
		}
		return nil, err
	}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.Root, d.Name()))
		if err != nil {
			return nil, err
		}
		n := 0
		for _, f := range files {
			if !f.IsDir() && isImageFile(f.Name()) {
				n++
			}
		}
		stats[d.Name()] = n
	}
	return stats, nil
}

// Cleanup trims the cache. Image files modified more than maxAge before now
// are removed first, then every category keeps only its maxPerCategory newest
// files. A zero limit turns that rule off. It returns how many files went.
func (s DirSource) Cleanup(maxAge time.Duration, maxPerCategory int, now time.Time) (int, error) {
	if s.Root == "" {
		return 0, nil
	}
	dirs, err := os.ReadDir(s.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	type cached struct {
		path string
		mod  time.Time
	}
	removed := 0
	remove := func(path string) error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		removed++
		return nil
	}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		dir := filepath.Join(s.Root, d.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, err
		}
		var keep []cached
		for _, e := range entries {
			if e.IsDir() || !isImageFile(e.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return removed, err
			}
			f := cached{filepath.Join(dir, e.Name()), info.ModTime()}
			if maxAge > 0 && now.Sub(f.mod) > maxAge {
				if err := remove(f.path); err != nil {
					return removed, err
				}
				continue
			}
			keep = append(keep, f)
		}
		if maxPerCategory <= 0 || len(keep) <= maxPerCategory {
			continue
		}
		// 按修改时间保留最新的
		sort.Slice(keep, func(i, j int) bool { return keep[i].mod.After(keep[j].mod) })
		for _, f := range keep[maxPerCategory:] {
			if err := remove(f.path); err != nil {
				return removed, err
			}
		}
	}
	return removed, nil
}

// CategoryDir maps a category or search query to its directory name.
func CategoryDir(category string) string {
	var sb strings.Builder
	for _, r := range category {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}

// cover crops src to the aspect ratio of size around its centre and scales it.
func cover(src image.Image, size image.Point) *image.RGBA {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	cw, ch := sw, sw*size.Y/size.X
	if ch > sh {
		ch = sh
		cw = sh * size.X / size.Y
	}
	x0 := b.Min.X + (sw-cw)/2
	y0 := b.Min.Y + (sh-ch)/2

	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, image.Rect(x0, y0, x0+cw, y0+ch), draw.Src, nil)
	return dst
}
