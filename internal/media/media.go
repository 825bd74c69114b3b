// Package media stores uploaded video and image assets on the local
// filesystem and probes video metadata with ffprobe.
package media

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ErrProbe wraps ffprobe failures so handlers can classify them as upstream
// errors rather than client mistakes.
var ErrProbe = errors.New("media probe failed")

// ErrUnsupportedType is returned for file extensions outside the accepted
// set.
var ErrUnsupportedType = errors.New("unsupported file type")

var (
	videoExtensions = map[string]struct{}{
		".mp4": {}, ".mov": {}, ".mkv": {}, ".webm": {},
	}
	imageExtensions = map[string]struct{}{
		".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".gif": {},
	}
)

// SavedFile describes a stored asset.
type SavedFile struct {
	URL  string
	Path string
	Size int64
}

// Library owns a directory of uploaded assets and maps them to public URLs
// under a fixed prefix.
type Library struct {
	root      string
	urlPrefix string
	// probe is swappable in tests to avoid requiring ffprobe on PATH.
	probe func(path string) (float64, error)
}

// Option customises a Library.
type Option func(*Library)

// WithProbe replaces the ffprobe-backed duration probe. Tests use it to
// avoid requiring ffprobe on PATH.
func WithProbe(probe func(path string) (float64, error)) Option {
	return func(l *Library) {
		if probe != nil {
			l.probe = probe
		}
	}
}

// NewLibrary creates the backing directory if needed. urlPrefix is the path
// the HTTP server exposes the directory under, e.g. "/media".
func NewLibrary(root, urlPrefix string, opts ...Option) (*Library, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("media root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	prefix := "/" + strings.Trim(urlPrefix, "/")
	library := &Library{root: root, urlPrefix: prefix, probe: probeDuration}
	for _, opt := range opts {
		if opt != nil {
			opt(library)
		}
	}
	return library, nil
}

func randomName(ext string) (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate file name: %w", err)
	}
	return hex.EncodeToString(bytes) + ext, nil
}

func (l *Library) save(r io.Reader, originalName string, allowed map[string]struct{}) (SavedFile, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := allowed[ext]; !ok {
		return SavedFile{}, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	name, err := randomName(ext)
	if err != nil {
		return SavedFile{}, err
	}
	target := filepath.Join(l.root, name)

	file, err := os.Create(target)
	if err != nil {
		return SavedFile{}, fmt.Errorf("create media file: %w", err)
	}
	size, err := io.Copy(file, r)
	if err != nil {
		file.Close()
		_ = os.Remove(target)
		return SavedFile{}, fmt.Errorf("write media file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(target)
		return SavedFile{}, fmt.Errorf("close media file: %w", err)
	}

	return SavedFile{
		URL:  path.Join(l.urlPrefix, name),
		Path: target,
		Size: size,
	}, nil
}

// SaveImage stores an avatar, cover, or thumbnail image.
func (l *Library) SaveImage(r io.Reader, originalName string) (SavedFile, error) {
	return l.save(r, originalName, imageExtensions)
}

// SaveVideo stores a video file and probes its duration in seconds.
func (l *Library) SaveVideo(r io.Reader, originalName string) (SavedFile, float64, error) {
	saved, err := l.save(r, originalName, videoExtensions)
	if err != nil {
		return SavedFile{}, 0, err
	}
	duration, err := l.probe(saved.Path)
	if err != nil {
		_ = os.Remove(saved.Path)
		return SavedFile{}, 0, err
	}
	return saved, duration, nil
}

// Remove deletes the asset behind a URL previously returned by this library.
// URLs outside the library's prefix are ignored.
func (l *Library) Remove(url string) error {
	name := strings.TrimPrefix(url, l.urlPrefix+"/")
	if name == url || name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(l.root, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}

// Handler serves the library directory under its URL prefix.
func (l *Library) Handler() http.Handler {
	return http.StripPrefix(l.urlPrefix+"/", http.FileServer(http.Dir(l.root)))
}

// URLPrefix returns the mount point for Handler.
func (l *Library) URLPrefix() string {
	return l.urlPrefix
}

func probeDuration(path string) (float64, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProbe, err)
	}
	var result struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return 0, fmt.Errorf("%w: decode probe output: %v", ErrProbe, err)
	}
	duration, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse duration %q: %v", ErrProbe, result.Format.Duration, err)
	}
	return duration, nil
}
