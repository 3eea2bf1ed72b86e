package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/mosim-go/mmuadapter/mmu"
	"github.com/mosim-go/mmuadapter/scene"
	"github.com/mosim-go/mmuadapter/utils"
)

// Services is the service access owned by a session.
type Services interface {
	mmu.ServiceAccess
	Close() error
}

// Content is the state of one scene: the scene records, the service access shared by its MMUs
// and one AvatarContent per avatar.
type Content struct {
	SceneID  string
	Scene    *scene.Scene
	Services Services

	mu         sync.RWMutex
	avatars    map[string]*AvatarContent
	lastAccess *atomic.Time
}

func newContent(sceneID string, services Services, now time.Time) *Content {
	return &Content{
		SceneID:    sceneID,
		Scene:      scene.New(),
		Services:   services,
		avatars:    map[string]*AvatarContent{},
		lastAccess: atomic.NewTime(now),
	}
}

// Avatar returns the content of the given avatar.
func (c *Content) Avatar(avatarID string) (*AvatarContent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	avatar, ok := c.avatars[avatarID]
	if !ok {
		return nil, utils.NewNotFoundError("avatar content", avatarID)
	}
	return avatar, nil
}

// AvatarIDs returns the sorted ids of the avatars of this scene.
func (c *Content) AvatarIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.avatars))
	for id := range c.avatars {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// addAvatar adds a new avatar and fails if the avatar already has content.
func (c *Content) addAvatar(avatarID string) (*AvatarContent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.avatars[avatarID]; ok {
		return nil, utils.NewAlreadyExistsError("avatar content", avatarID)
	}
	avatar := newAvatarContent(avatarID)
	c.avatars[avatarID] = avatar
	return avatar, nil
}

// ensureAvatar returns the avatar content, creating it if absent.
func (c *Content) ensureAvatar(avatarID string) *AvatarContent {
	c.mu.Lock()
	defer c.mu.Unlock()
	avatar, ok := c.avatars[avatarID]
	if !ok {
		avatar = newAvatarContent(avatarID)
		c.avatars[avatarID] = avatar
	}
	return avatar
}

// Touch records an access to the session.
func (c *Content) Touch(now time.Time) {
	c.lastAccess.Store(now)
}

// LastAccess returns the time of the last access to the session.
func (c *Content) LastAccess() time.Time {
	return c.lastAccess.Load()
}

// close releases the MMUs of every avatar and the service connections.
func (c *Content) close(ctx context.Context) error {
	c.mu.Lock()
	avatars := c.avatars
	c.avatars = map[string]*AvatarContent{}
	c.mu.Unlock()

	var err error
	for _, avatar := range avatars {
		err = multierr.Combine(err, avatar.close(ctx))
	}
	if c.Services != nil {
		err = multierr.Combine(err, c.Services.Close())
	}
	return err
}

// AvatarContent owns the MMU instances loaded for one avatar, keyed by MMU id.
type AvatarContent struct {
	AvatarID string

	mu   sync.RWMutex
	mmus map[string]mmu.MMU
}

func newAvatarContent(avatarID string) *AvatarContent {
	return &AvatarContent{AvatarID: avatarID, mmus: map[string]mmu.MMU{}}
}

// MMU returns the instance loaded under the given MMU id.
func (a *AvatarContent) MMU(mmuID string) (mmu.MMU, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	instance, ok := a.mmus[mmuID]
	if !ok {
		return nil, utils.NewNotFoundError("MMU", mmuID)
	}
	return instance, nil
}

// SetMMU stores an instance under the given MMU id and returns the instance it replaced, if any.
func (a *AvatarContent) SetMMU(mmuID string, instance mmu.MMU) mmu.MMU {
	a.mu.Lock()
	defer a.mu.Unlock()
	previous := a.mmus[mmuID]
	a.mmus[mmuID] = instance
	return previous
}

// HasMMU returns whether an instance is loaded under the given MMU id.
func (a *AvatarContent) HasMMU(mmuID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.mmus[mmuID]
	return ok
}

// MMUIDs returns the sorted ids of the loaded MMUs.
func (a *AvatarContent) MMUIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.mmus))
	for id := range a.mmus {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (a *AvatarContent) close(ctx context.Context) error {
	a.mu.Lock()
	mmus := a.mmus
	a.mmus = map[string]mmu.MMU{}
	a.mu.Unlock()

	var err error
	for _, instance := range mmus {
		err = multierr.Combine(err, CloseMMU(ctx, instance))
	}
	return err
}

// CloseMMU closes the instance if it holds resources.
func CloseMMU(ctx context.Context, instance mmu.MMU) error {
	if closer, ok := instance.(mmu.Closer); ok {
		return closer.Close(ctx)
	}
	return nil
}
