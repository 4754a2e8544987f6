package outputs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var ErrFileNotFound = errors.New("file not found")

type FileType string

const (
	TypeVideo FileType = "video"
	TypeImage FileType = "image"
	TypeAudio FileType = "audio"
	TypeOther FileType = "other"
)

type FileInfo struct {
	Name       string    `json:"filename"`
	Type       FileType  `json:"type"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Catalog enumerates generated artifacts in the storage root. It is
// read-only; nothing here touches the queue.
type Catalog struct {
	root string
}

func NewCatalog(root string) *Catalog {
	return &Catalog{root: root}
}

func (c *Catalog) Root() string {
	return c.root
}

// List scans the storage root, filters by type, sorts newest-first by
// modification time and paginates. A missing root yields an empty listing,
// and unreadable entries are skipped rather than failing the listing.
func (c *Catalog) List(limit, offset int, typeFilter FileType) ([]FileInfo, int, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []FileInfo{}, 0, nil
		}
		return nil, 0, fmt.Errorf("read output dir: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ftype := Classify(entry.Name())
		if typeFilter != "" && ftype != typeFilter {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:      entry.Name(),
			Type:      ftype,
			SizeBytes: info.Size(),
			// os.FileInfo carries no creation time, so mtime stands in
			// for both fields.
			CreatedAt:  info.ModTime(),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModifiedAt.After(files[j].ModifiedAt)
	})

	total := len(files)
	if offset >= total {
		return []FileInfo{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return files[offset:end], total, nil
}

// Resolve maps a requested filename to a path inside the storage root. The
// name is reduced to its base component so a crafted name cannot escape the
// root.
func (c *Catalog) Resolve(name string) (string, error) {
	name = filepath.Base(name)
	path := filepath.Join(c.root, name)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %q", ErrFileNotFound, name)
	}
	return path, nil
}

func Classify(name string) FileType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4", ".webm", ".avi", ".mov":
		return TypeVideo
	case ".png", ".jpg", ".jpeg", ".webp":
		return TypeImage
	case ".wav", ".mp3", ".ogg", ".flac":
		return TypeAudio
	default:
		return TypeOther
	}
}

var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// ContentType returns the media type for a filename, defaulting to an
// opaque byte stream.
func ContentType(name string) string {
	if mt, ok := mediaTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return "application/octet-stream"
}
