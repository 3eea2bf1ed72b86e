package session

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmu"
	"github.com/mosim-go/mmuadapter/utils"
)

// ServicesFactory creates the service access of a new session.
type ServicesFactory func(sceneID string) Services

// Store maps scene ids to their content. Sessions are only removed explicitly.
type Store struct {
	mu          sync.RWMutex
	scenes      map[string]*Content
	newServices ServicesFactory
	clock       clock.Clock
	logger      logging.Logger
}

// NewStore returns an empty store. newServices may be nil, in which case sessions have no
// service access.
func NewStore(newServices ServicesFactory, clk clock.Clock, logger logging.Logger) *Store {
	return &Store{
		scenes:      map[string]*Content{},
		newServices: newServices,
		clock:       clk,
		logger:      logger,
	}
}

// Create opens a session. A new scene id creates the scene content and the avatar content. For
// a known scene id only the avatar content is added, failing if the avatar already has content.
func (s *Store) Create(sessionID string) (*Content, *AvatarContent, error) {
	key, err := ParseKey(sessionID)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if content, ok := s.scenes[key.SceneID]; ok {
		avatar, err := content.addAvatar(key.AvatarID)
		if err != nil {
			return nil, nil, err
		}
		content.Touch(s.clock.Now())
		s.logger.Debugw("added avatar to session", "scene", key.SceneID, "avatar", key.AvatarID)
		return content, avatar, nil
	}

	var services Services
	if s.newServices != nil {
		services = s.newServices(key.SceneID)
	}
	content := newContent(key.SceneID, services, s.clock.Now())
	avatar, err := content.addAvatar(key.AvatarID)
	if err != nil {
		return nil, nil, err
	}
	s.scenes[key.SceneID] = content
	s.logger.Debugw("created session", "scene", key.SceneID, "avatar", key.AvatarID)
	return content, avatar, nil
}

// Scene returns the content of the given scene id.
func (s *Store) Scene(sceneID string) (*Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.scenes[sceneID]
	if !ok {
		return nil, utils.NewNotFoundError("session content", sceneID)
	}
	return content, nil
}

// SceneOf returns the scene content the session id resolves to.
func (s *Store) SceneOf(sessionID string) (*Content, error) {
	key, err := ParseKey(sessionID)
	if err != nil {
		return nil, err
	}
	return s.Scene(key.SceneID)
}

// Avatar returns the scene and avatar content the session id resolves to.
func (s *Store) Avatar(sessionID string) (*Content, *AvatarContent, error) {
	key, err := ParseKey(sessionID)
	if err != nil {
		return nil, nil, err
	}
	content, err := s.Scene(key.SceneID)
	if err != nil {
		return nil, nil, err
	}
	avatar, err := content.Avatar(key.AvatarID)
	if err != nil {
		return nil, nil, err
	}
	return content, avatar, nil
}

// EnsureAvatar is like Avatar but creates the avatar content when the scene exists and the
// avatar does not.
func (s *Store) EnsureAvatar(sessionID string) (*Content, *AvatarContent, error) {
	key, err := ParseKey(sessionID)
	if err != nil {
		return nil, nil, err
	}
	content, err := s.Scene(key.SceneID)
	if err != nil {
		return nil, nil, err
	}
	return content, content.ensureAvatar(key.AvatarID), nil
}

// MMU returns the instance of the given MMU id loaded for the avatar the session id resolves to.
func (s *Store) MMU(sessionID, mmuID string) (*Content, mmu.MMU, error) {
	content, avatar, err := s.Avatar(sessionID)
	if err != nil {
		return nil, nil, err
	}
	instance, err := avatar.MMU(mmuID)
	if err != nil {
		return nil, nil, err
	}
	return content, instance, nil
}

// Close removes the whole scene the session id resolves to, including all of its avatars, and
// releases its MMUs and service connections.
func (s *Store) Close(ctx context.Context, sessionID string) error {
	key, err := ParseKey(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	content, ok := s.scenes[key.SceneID]
	if ok {
		delete(s.scenes, key.SceneID)
	}
	s.mu.Unlock()

	if !ok {
		return utils.NewNotFoundError("session content", key.SceneID)
	}
	s.logger.Debugw("closed session", "scene", key.SceneID)
	return content.close(ctx)
}

// CloseAll removes every session.
func (s *Store) CloseAll(ctx context.Context) error {
	s.mu.Lock()
	scenes := s.scenes
	s.scenes = map[string]*Content{}
	s.mu.Unlock()

	var err error
	for _, content := range scenes {
		err = multierr.Combine(err, content.close(ctx))
	}
	return err
}

// Len returns the number of open scenes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scenes)
}
