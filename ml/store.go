package ml

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Store loads classifiers and keeps the most recently used ones decoded.
// It is safe for concurrent use.
type Store struct {
	cache  *lru.Cache[string, Classifier]
	logger *zap.Logger
}

// NewStore returns a store caching up to size classifiers; size 0 reloads
// the artifact on every Load.
func NewStore(size int, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{logger: logger}
	if size > 0 {
		cache, err := lru.New[string, Classifier](size)
		if err != nil {
			return nil, fmt.Errorf("create model cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Load returns the classifier for path, decoding it on a cache miss.
func (s *Store) Load(path string) (Classifier, error) {
	key := cacheKey(path)
	if s.cache != nil {
		if clf, ok := s.cache.Get(key); ok {
			return clf, nil
		}
	}
	clf, err := LoadClassifier(path)
	if err != nil {
		s.logger.Warn("model load failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	s.logger.Info("model loaded", zap.String("path", path), zap.String("type", fmt.Sprintf("%T", clf)))
	if s.cache != nil {
		s.cache.Add(key, clf)
	}
	return clf, nil
}

// Evict drops path from the cache and reports whether it was cached.
func (s *Store) Evict(path string) bool {
	if s.cache == nil {
		return false
	}
	return s.cache.Remove(cacheKey(path))
}

// Len is the number of cached classifiers.
func (s *Store) Len() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}

// Watch evicts cached classifiers whose artifact changes in any of dirs. It
// blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context, dirs ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	seen := make(map[string]bool)
	for _, dir := range dirs {
		abs := cacheKey(dir)
		if seen[abs] {
			continue
		}
		seen[abs] = true
		if err := watcher.Add(abs); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		s.logger.Debug("watching model dir", zap.String("dir", abs))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if s.Evict(event.Name) {
					s.logger.Info("model artifact changed, evicted", zap.String("path", event.Name), zap.String("op", event.Op.String()))
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("model watcher error", zap.Error(err))
		}
	}
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
