package scene

import (
	"github.com/samber/lo"

	"github.com/mosim-go/mmuadapter/mmi"
	"github.com/mosim-go/mmuadapter/mmu"
)

var _ mmu.SceneAccess = (*Scene)(nil)

// SceneObjects returns all scene objects sorted by id.
func (s *Scene) SceneObjects() []mmi.SceneObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sceneObjectsLocked(nil)
}

// SceneObjectByID returns the scene object with the given id.
func (s *Scene) SceneObjectByID(id string) (mmi.SceneObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	object, ok := s.sceneObjects[id]
	if !ok {
		return mmi.SceneObject{}, false
	}
	return cloneSceneObject(*object), true
}

// SceneObjectByName returns the first scene object registered under the given name.
func (s *Scene) SceneObjectByName(name string) (mmi.SceneObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.sceneObjectIDsByName[name]
	if len(ids) == 0 {
		return mmi.SceneObject{}, false
	}
	return cloneSceneObject(*s.sceneObjects[ids[0]]), true
}

// SceneObjectsInRange returns the scene objects whose position is at most radius away from
// position.
func (s *Scene) SceneObjectsInRange(position mmi.Vector3, radius float64) []mmi.SceneObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sceneObjectsLocked(func(object *mmi.SceneObject) bool {
		return object.Transform.Position.Distance(position) <= radius
	})
}

// Colliders returns the colliders of all scene objects having one.
func (s *Scene) Colliders() []mmi.Collider {
	return collidersOf(s.SceneObjects())
}

// ColliderByID returns the collider of the scene object with the given id.
func (s *Scene) ColliderByID(id string) (mmi.Collider, bool) {
	object, ok := s.SceneObjectByID(id)
	if !ok || object.Collider == nil {
		return mmi.Collider{}, false
	}
	return *object.Collider, true
}

// CollidersInRange returns the colliders of the scene objects in range.
func (s *Scene) CollidersInRange(position mmi.Vector3, radius float64) []mmi.Collider {
	return collidersOf(s.SceneObjectsInRange(position, radius))
}

func collidersOf(objects []mmi.SceneObject) []mmi.Collider {
	return lo.FilterMap(objects, func(object mmi.SceneObject, _ int) (mmi.Collider, bool) {
		if object.Collider == nil {
			return mmi.Collider{}, false
		}
		return *object.Collider, true
	})
}

// Meshes returns the meshes of all scene objects having one.
func (s *Scene) Meshes() []mmi.Mesh {
	return lo.FilterMap(s.SceneObjects(), func(object mmi.SceneObject, _ int) (mmi.Mesh, bool) {
		if object.Mesh == nil {
			return mmi.Mesh{}, false
		}
		return *object.Mesh, true
	})
}

// MeshByID returns the mesh of the scene object with the given id.
func (s *Scene) MeshByID(id string) (mmi.Mesh, bool) {
	object, ok := s.SceneObjectByID(id)
	if !ok || object.Mesh == nil {
		return mmi.Mesh{}, false
	}
	return *object.Mesh, true
}

// Transforms returns the transforms of all scene objects.
func (s *Scene) Transforms() []mmi.Transform {
	return lo.Map(s.SceneObjects(), func(object mmi.SceneObject, _ int) mmi.Transform {
		return object.Transform
	})
}

// TransformByID returns the transform of the scene object with the given id.
func (s *Scene) TransformByID(id string) (mmi.Transform, bool) {
	object, ok := s.SceneObjectByID(id)
	if !ok {
		return mmi.Transform{}, false
	}
	return object.Transform, true
}

// Avatars returns all avatars sorted by id.
func (s *Scene) Avatars() []mmi.Avatar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.avatarsLocked(nil)
}

// AvatarByID returns the avatar with the given id.
func (s *Scene) AvatarByID(id string) (mmi.Avatar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	avatar, ok := s.avatars[id]
	if !ok {
		return mmi.Avatar{}, false
	}
	return cloneAvatar(*avatar), true
}

// AvatarByName returns the first avatar registered under the given name.
func (s *Scene) AvatarByName(name string) (mmi.Avatar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.avatarIDsByName[name]
	if len(ids) == 0 {
		return mmi.Avatar{}, false
	}
	return cloneAvatar(*s.avatars[ids[0]]), true
}

// AvatarsInRange returns the avatars whose root joint is at most radius away from position.
// Avatars without a posture are never in range.
func (s *Scene) AvatarsInRange(position mmi.Vector3, radius float64) []mmi.Avatar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.avatarsLocked(func(avatar *mmi.Avatar) bool {
		root, ok := avatar.PostureValues.RootPosition()
		return ok && root.Distance(position) <= radius
	})
}
