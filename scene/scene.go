// Package scene holds the per-session registry of scene objects and avatars and applies the
// scene updates pushed by the register.
package scene

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/mosim-go/mmuadapter/mmi"
)

// HistoryLength is the number of applied updates a scene remembers.
const HistoryLength = 20

// HistoryEntry is one applied update and the frame it produced.
type HistoryEntry struct {
	FrameID int64
	Update  mmi.SceneUpdate
}

// Scene is the mutable state of one session scene. It is safe for concurrent use. Every update
// is applied atomically with respect to readers.
type Scene struct {
	mu sync.RWMutex

	sceneObjects         map[string]*mmi.SceneObject
	avatars              map[string]*mmi.Avatar
	sceneObjectIDsByName map[string][]string
	avatarIDsByName      map[string][]string

	lastUpdate mmi.SceneUpdate
	frameID    int64
	history    []HistoryEntry
}

// New returns an empty scene at frame 0.
func New() *Scene {
	s := &Scene{}
	s.reset()
	return s
}

func (s *Scene) reset() {
	s.sceneObjects = map[string]*mmi.SceneObject{}
	s.avatars = map[string]*mmi.Avatar{}
	s.sceneObjectIDsByName = map[string][]string{}
	s.avatarIDsByName = map[string][]string{}
	s.lastUpdate = mmi.SceneUpdate{}
	s.frameID = 0
	s.history = make([]HistoryEntry, 0, HistoryLength)
}

// Clear removes every record and resets the frame counter and the history.
func (s *Scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// Apply merges an update into the scene. The frame counter and the history advance before any
// item is validated. Items are processed in a fixed order: added avatars, added scene objects,
// changed avatars, changed scene objects, removed avatars, removed scene objects. A failing item
// marks the response unsuccessful and processing continues with the next one.
func (s *Scene) Apply(update mmi.SceneUpdate) mmi.BoolResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frameID++
	if len(s.history) == HistoryLength {
		s.history = append(s.history[:0], s.history[1:]...)
	}
	s.history = append(s.history, HistoryEntry{FrameID: s.frameID, Update: update})
	s.lastUpdate = update

	resp := mmi.Success()
	for _, avatar := range update.AddedAvatars {
		s.addAvatar(avatar, &resp)
	}
	for _, object := range update.AddedSceneObjects {
		s.addSceneObject(object, &resp)
	}
	for _, avatarUpdate := range update.ChangedAvatars {
		s.changeAvatar(avatarUpdate, &resp)
	}
	for _, objectUpdate := range update.ChangedSceneObjects {
		s.changeSceneObject(objectUpdate, &resp)
	}
	for _, id := range update.RemovedAvatars {
		s.removeAvatar(id, &resp)
	}
	for _, id := range update.RemovedSceneObjects {
		s.removeSceneObject(id, &resp)
	}
	return resp
}

func (s *Scene) addAvatar(avatar mmi.Avatar, resp *mmi.BoolResponse) {
	if _, ok := s.avatars[avatar.ID]; ok {
		resp.Fail(fmt.Sprintf("could not add avatar %q: %s is already registered", avatar.Name, avatar.ID))
		return
	}
	stored := cloneAvatar(avatar)
	s.avatars[avatar.ID] = &stored
	s.avatarIDsByName[avatar.Name] = append(s.avatarIDsByName[avatar.Name], avatar.ID)
}

func (s *Scene) addSceneObject(object mmi.SceneObject, resp *mmi.BoolResponse) {
	if _, ok := s.sceneObjects[object.ID]; ok {
		resp.Fail(fmt.Sprintf("could not add scene object %q: %s is already registered", object.Name, object.ID))
		return
	}
	stored := cloneSceneObject(object)
	s.sceneObjects[object.ID] = &stored
	s.sceneObjectIDsByName[object.Name] = append(s.sceneObjectIDsByName[object.Name], object.ID)
}

func (s *Scene) changeAvatar(update mmi.AvatarUpdate, resp *mmi.BoolResponse) {
	avatar, ok := s.avatars[update.ID]
	if !ok {
		resp.Fail(fmt.Sprintf("could not update avatar: %s not found", update.ID))
		return
	}
	if update.Description != nil {
		description := *update.Description
		avatar.Description = &description
	}
	if update.PostureValues != nil {
		posture := clonePosture(*update.PostureValues)
		avatar.PostureValues = &posture
	}
	if update.SceneObjects != nil {
		avatar.SceneObjects = slices.Clone(update.SceneObjects)
	}
}

func (s *Scene) changeSceneObject(update mmi.SceneObjectUpdate, resp *mmi.BoolResponse) {
	object, ok := s.sceneObjects[update.ID]
	if !ok {
		resp.Fail(fmt.Sprintf("could not update scene object: %s not found", update.ID))
		return
	}
	if update.Name != "" && update.Name != object.Name {
		s.sceneObjectIDsByName = removeFromIndex(s.sceneObjectIDsByName, object.Name, object.ID)
		object.Name = update.Name
		s.sceneObjectIDsByName[object.Name] = append(s.sceneObjectIDsByName[object.Name], object.ID)
	}
	if transform := update.Transform; transform != nil {
		if transform.Position != nil {
			object.Transform.Position = *transform.Position
		}
		if transform.Rotation != nil {
			object.Transform.Rotation = *transform.Rotation
		}
		if transform.Parent != nil {
			object.Transform.Parent = *transform.Parent
		}
	}
	if update.Mesh != nil {
		mesh := *update.Mesh
		object.Mesh = &mesh
	}
	if update.Collider != nil {
		collider := *update.Collider
		object.Collider = &collider
	}
	if update.PhysicsProperties != nil {
		physics := *update.PhysicsProperties
		object.PhysicsProperties = &physics
	}
}

func (s *Scene) removeAvatar(id string, resp *mmi.BoolResponse) {
	avatar, ok := s.avatars[id]
	if !ok {
		resp.Fail(fmt.Sprintf("could not remove avatar: %s not found", id))
		return
	}
	delete(s.avatars, id)
	s.avatarIDsByName = removeFromIndex(s.avatarIDsByName, avatar.Name, id)
}

func (s *Scene) removeSceneObject(id string, resp *mmi.BoolResponse) {
	object, ok := s.sceneObjects[id]
	if !ok {
		resp.Fail(fmt.Sprintf("could not remove scene object: %s not found", id))
		return
	}
	delete(s.sceneObjects, id)
	s.sceneObjectIDsByName = removeFromIndex(s.sceneObjectIDsByName, object.Name, id)
}

func removeFromIndex(index map[string][]string, name, id string) map[string][]string {
	ids := slices.DeleteFunc(index[name], func(candidate string) bool { return candidate == id })
	if len(ids) == 0 {
		delete(index, name)
	} else {
		index[name] = ids
	}
	return index
}

// FrameID returns the number of updates applied since creation or the last Clear.
func (s *Scene) FrameID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameID
}

// SimulationTime is not tracked by the adapter and is always 0.
func (s *Scene) SimulationTime() float64 {
	return 0
}

// History returns the remembered updates, oldest first.
func (s *Scene) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// SceneChanges returns the last applied update verbatim.
func (s *Scene) SceneChanges() mmi.SceneUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// FullScene returns the whole scene as an update adding every record.
func (s *Scene) FullScene() mmi.SceneUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mmi.SceneUpdate{
		AddedSceneObjects: s.sceneObjectsLocked(nil),
		AddedAvatars:      s.avatarsLocked(nil),
	}
}

// sceneObjectsLocked returns copies of the scene objects accepted by keep, sorted by id.
func (s *Scene) sceneObjectsLocked(keep func(*mmi.SceneObject) bool) []mmi.SceneObject {
	objects := make([]mmi.SceneObject, 0, len(s.sceneObjects))
	for _, object := range s.sceneObjects {
		if keep == nil || keep(object) {
			objects = append(objects, cloneSceneObject(*object))
		}
	}
	slices.SortFunc(objects, func(a, b mmi.SceneObject) int { return strings.Compare(a.ID, b.ID) })
	return objects
}

// avatarsLocked returns copies of the avatars accepted by keep, sorted by id.
func (s *Scene) avatarsLocked(keep func(*mmi.Avatar) bool) []mmi.Avatar {
	avatars := make([]mmi.Avatar, 0, len(s.avatars))
	for _, avatar := range s.avatars {
		if keep == nil || keep(avatar) {
			avatars = append(avatars, cloneAvatar(*avatar))
		}
	}
	slices.SortFunc(avatars, func(a, b mmi.Avatar) int { return strings.Compare(a.ID, b.ID) })
	return avatars
}

func cloneSceneObject(object mmi.SceneObject) mmi.SceneObject {
	object.Properties = maps.Clone(object.Properties)
	return object
}

func cloneAvatar(avatar mmi.Avatar) mmi.Avatar {
	avatar.SceneObjects = slices.Clone(avatar.SceneObjects)
	avatar.Properties = maps.Clone(avatar.Properties)
	if avatar.PostureValues != nil {
		posture := clonePosture(*avatar.PostureValues)
		avatar.PostureValues = &posture
	}
	return avatar
}

func clonePosture(posture mmi.AvatarPostureValues) mmi.AvatarPostureValues {
	posture.PostureData = slices.Clone(posture.PostureData)
	posture.PartialJointList = slices.Clone(posture.PartialJointList)
	return posture
}
