// Package session maps session identifiers to the scene, avatars and MMU instances they own.
package session

import (
	"strings"

	"github.com/pkg/errors"
)

// DefaultAvatarID is the avatar used when a session id names only a scene.
const DefaultAvatarID = "0"

// Key identifies one avatar in one scene. Its external form is "<sceneID>:<avatarID>".
type Key struct {
	SceneID  string
	AvatarID string
}

// ParseKey splits a session id into its scene and avatar parts. An id that does not consist of
// exactly two non-empty parts is taken as a scene id for the default avatar.
func ParseKey(sessionID string) (Key, error) {
	if sessionID == "" {
		return Key{}, errors.New("session id must not be empty")
	}
	parts := strings.Split(sessionID, ":")
	if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		return Key{SceneID: parts[0], AvatarID: parts[1]}, nil
	}
	return Key{SceneID: sessionID, AvatarID: DefaultAvatarID}, nil
}

// String returns the external form of the key.
func (k Key) String() string {
	return k.SceneID + ":" + k.AvatarID
}
