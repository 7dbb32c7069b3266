package memimg

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Cache keeps cell sprites in memory, keyed by file name without extension
// ("head.png" -> "head"). Sprites are fitted to size×size on load.
type Cache struct {
	size int

	mu      sync.RWMutex
	sprites map[string]image.Image
}

func NewCache(size int) *Cache {
	return &Cache{
		size:    size,
		sprites: make(map[string]image.Image),
	}
}

// LoadDir loads every image in directory. A missing directory is not an error.
func (c *Cache) LoadDir(directory string) error {
	entries, err := os.ReadDir(directory)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "read sprite dir %s", directory)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isImage(entry.Name()) {
			continue
		}
		if err := c.load(filepath.Join(directory, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) load(path string) error {
	img, err := imaging.Open(path)
	if err != nil {
		return errors.Wrapf(err, "load sprite %s", path)
	}
	// 裁剪缩放到格子大小
	img = imaging.Fill(img, c.size, c.size, imaging.Center, imaging.Lanczos)
	c.mu.Lock()
	c.sprites[spriteName(path)] = img
	c.mu.Unlock()
	return nil
}

func (c *Cache) remove(path string) {
	c.mu.Lock()
	delete(c.sprites, spriteName(path))
	c.mu.Unlock()
}

func (c *Cache) Get(name string) (image.Image, bool) {
	c.mu.RLock()
	img, exists := c.sprites[name]
	c.mu.RUnlock()
	return img, exists
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sprites)
}

// Watch reloads sprites on create/write and drops them on remove/rename
// until ctx is done.
func (c *Cache) Watch(ctx context.Context, directory string, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "new watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(directory); err != nil {
		return errors.Wrapf(err, "watch %s", directory)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			c.handle(event, logger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("sprite watcher error", zap.Error(err))
		}
	}
}

func (c *Cache) handle(event fsnotify.Event, logger *zap.Logger) {
	if !isImage(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		c.remove(event.Name)
		logger.Info("sprite removed", zap.String("file", event.Name))
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		// 文件可能还没写完，解码失败时等下一次 Write
		if err := c.load(event.Name); err != nil {
			logger.Debug("sprite not loaded", zap.String("file", event.Name), zap.Error(err))
			return
		}
		logger.Info("sprite loaded", zap.String("file", event.Name))
	}
}

func isImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

func spriteName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
