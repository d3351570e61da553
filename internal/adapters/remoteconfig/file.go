// Package remoteconfig serves catalog settings to the catalog reader.
//
// FileSource loads a YAML (or JSON) document through koanf and can reload it
// when the file changes, standing in for a hosted remote-config service.
package remoteconfig

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/hoops/internal/domain/catalog"
	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/pkg/logger"
	"github.com/okian/hoops/pkg/metrics"
)

// ErrNoPath is returned when no catalog path is configured.
var ErrNoPath = errors.New("catalog path is required")

// FileSource implements catalog.Source over a local file.
type FileSource struct {
	path     string
	log      logger.Logger
	provider *file.File

	mu       sync.RWMutex
	settings map[string]any
}

// Option configures a FileSource.
type Option func(*FileSource)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *FileSource) {
		if l != nil {
			s.log = l
		}
	}
}

// NewFileSource loads path once. The document must decode into a valid catalog.
func NewFileSource(path string, opts ...Option) (*FileSource, error) {
	if path == "" {
		return nil, ErrNoPath
	}
	s := &FileSource{
		path:     path,
		log:      logger.Default(),
		provider: file.Provider(path),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// FetchSettings implements catalog.Source. The player is ignored: every
// player sees the same settings.
func (s *FileSource) FetchSettings(ctx context.Context, _ model.Player, keys []string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := s.settings[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Watch reloads the file on every change until ctx is done. A change that
// fails to decode keeps the previous settings.
func (s *FileSource) Watch(ctx context.Context) error {
	err := s.provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			s.log.Warn(ctx, "catalog watch error", logger.String("path", s.path), logger.Error(err))
			return
		}
		if err := s.reload(); err != nil {
			s.log.Warn(ctx, "catalog reload rejected", logger.String("path", s.path), logger.Error(err))
			return
		}
		s.log.Info(ctx, "catalog reloaded", logger.String("path", s.path))
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.path, err)
	}
	go func() {
		<-ctx.Done()
		_ = s.provider.Unwatch()
	}()
	return nil
}

func (s *FileSource) reload() error {
	k := koanf.New(".")
	if err := k.Load(s.provider, yaml.Parser()); err != nil {
		return fmt.Errorf("load %s: %w", s.path, err)
	}
	settings := k.Raw()
	if _, err := catalog.Decode(settings); err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	metrics.RecordCatalogReload()
	return nil
}
