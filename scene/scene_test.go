package scene

import (
	"fmt"
	"sync"
	"testing"

	"go.viam.com/test"

	"github.com/mosim-go/mmuadapter/mmi"
)

func sceneObject(id, name string, x, y, z float64) mmi.SceneObject {
	return mmi.SceneObject{
		ID:   id,
		Name: name,
		Transform: mmi.Transform{
			ID:       id,
			Position: mmi.Vector3{X: x, Y: y, Z: z},
			Rotation: mmi.IdentityQuaternion,
		},
	}
}

func avatar(id, name string, posture ...float64) mmi.Avatar {
	return mmi.Avatar{
		ID:            id,
		Name:          name,
		Description:   &mmi.AvatarDescription{AvatarID: id},
		PostureValues: &mmi.AvatarPostureValues{AvatarID: id, PostureData: posture},
		SceneObjects:  []string{"hat"},
	}
}

func TestApplyAdd(t *testing.T) {
	s := New()
	resp := s.Apply(mmi.SceneUpdate{
		AddedSceneObjects: []mmi.SceneObject{sceneObject("o1", "box", 0, 0, 0)},
		AddedAvatars:      []mmi.Avatar{avatar("a1", "anna", 0, 0, 0)},
	})
	test.That(t, resp.Successful, test.ShouldBeTrue)
	test.That(t, resp.LogData, test.ShouldBeEmpty)
	test.That(t, s.FrameID(), test.ShouldEqual, int64(1))

	t.Run("duplicate id keeps the existing object", func(t *testing.T) {
		resp := s.Apply(mmi.SceneUpdate{
			AddedSceneObjects: []mmi.SceneObject{
				sceneObject("o1", "crate", 5, 5, 5),
				sceneObject("o2", "crate", 1, 0, 0),
			},
		})
		test.That(t, resp.Successful, test.ShouldBeFalse)
		test.That(t, resp.LogData, test.ShouldHaveLength, 1)
		test.That(t, resp.LogData[0], test.ShouldContainSubstring, "o1")

		object, ok := s.SceneObjectByID("o1")
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, object.Name, test.ShouldEqual, "box")
		test.That(t, object.Transform.Position, test.ShouldResemble, mmi.Vector3{})

		// The sibling item is still applied.
		_, ok = s.SceneObjectByID("o2")
		test.That(t, ok, test.ShouldBeTrue)
	})

	t.Run("duplicate avatar", func(t *testing.T) {
		resp := s.Apply(mmi.SceneUpdate{AddedAvatars: []mmi.Avatar{avatar("a1", "other")}})
		test.That(t, resp.Successful, test.ShouldBeFalse)
		test.That(t, resp.LogData[0], test.ShouldContainSubstring, "a1")
		found, ok := s.AvatarByID("a1")
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, found.Name, test.ShouldEqual, "anna")
	})
}

func TestApplyOrder(t *testing.T) {
	s := New()

	// Added objects are visible to the changes and removals of the same update.
	resp := s.Apply(mmi.SceneUpdate{
		AddedSceneObjects:   []mmi.SceneObject{sceneObject("o1", "box", 0, 0, 0), sceneObject("o2", "ball", 0, 0, 0)},
		ChangedSceneObjects: []mmi.SceneObjectUpdate{{ID: "o1", Transform: &mmi.TransformUpdate{Position: &mmi.Vector3{X: 3}}}},
		RemovedSceneObjects: []string{"o2"},
		AddedAvatars:        []mmi.Avatar{avatar("a1", "anna", 1, 1, 1)},
		ChangedAvatars:      []mmi.AvatarUpdate{{ID: "a1", PostureValues: &mmi.AvatarPostureValues{PostureData: []float64{2, 2, 2}}}},
		RemovedAvatars:      []string{"a1"},
	})
	test.That(t, resp.Successful, test.ShouldBeTrue)

	object, ok := s.SceneObjectByID("o1")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, object.Transform.Position.X, test.ShouldEqual, 3.0)
	_, ok = s.SceneObjectByID("o2")
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = s.SceneObjectByName("ball")
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, s.Avatars(), test.ShouldBeEmpty)
	_, ok = s.AvatarByName("anna")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestApplyChangeAndRemoveFailures(t *testing.T) {
	s := New()
	resp := s.Apply(mmi.SceneUpdate{
		ChangedSceneObjects: []mmi.SceneObjectUpdate{{ID: "ghost"}},
		ChangedAvatars:      []mmi.AvatarUpdate{{ID: "nobody"}},
		RemovedSceneObjects: []string{"ghost"},
		RemovedAvatars:      []string{"nobody"},
	})
	test.That(t, resp.Successful, test.ShouldBeFalse)
	test.That(t, resp.LogData, test.ShouldResemble, []string{
		"could not update avatar: nobody not found",
		"could not update scene object: ghost not found",
		"could not remove avatar: nobody not found",
		"could not remove scene object: ghost not found",
	})

	// The frame counter advances even for a failing update.
	test.That(t, s.FrameID(), test.ShouldEqual, int64(1))
	test.That(t, s.History(), test.ShouldHaveLength, 1)
}

func TestPartialUpdate(t *testing.T) {
	s := New()
	s.Apply(mmi.SceneUpdate{AddedAvatars: []mmi.Avatar{avatar("a1", "anna", 0, 0, 0)}})

	resp := s.Apply(mmi.SceneUpdate{ChangedAvatars: []mmi.AvatarUpdate{{
		ID:            "a1",
		PostureValues: &mmi.AvatarPostureValues{AvatarID: "a1", PostureData: []float64{4, 5, 6}},
	}}})
	test.That(t, resp.Successful, test.ShouldBeTrue)

	found, ok := s.AvatarByID("a1")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, found.PostureValues.PostureData, test.ShouldResemble, []float64{4, 5, 6})
	test.That(t, found.Description, test.ShouldResemble, &mmi.AvatarDescription{AvatarID: "a1"})
	test.That(t, found.SceneObjects, test.ShouldResemble, []string{"hat"})

	// An explicitly empty list clears the attached objects.
	s.Apply(mmi.SceneUpdate{ChangedAvatars: []mmi.AvatarUpdate{{ID: "a1", SceneObjects: []string{}}}})
	found, _ = s.AvatarByID("a1")
	test.That(t, found.SceneObjects, test.ShouldBeEmpty)
	test.That(t, found.PostureValues.PostureData, test.ShouldResemble, []float64{4, 5, 6})

	t.Run("scene object", func(t *testing.T) {
		object := sceneObject("o1", "box", 1, 2, 3)
		object.Mesh = &mmi.Mesh{ID: "m1"}
		s.Apply(mmi.SceneUpdate{AddedSceneObjects: []mmi.SceneObject{object}})

		parent := "table"
		s.Apply(mmi.SceneUpdate{ChangedSceneObjects: []mmi.SceneObjectUpdate{{
			ID:        "o1",
			Transform: &mmi.TransformUpdate{Parent: &parent},
			Collider:  &mmi.Collider{ID: "c1", Type: mmi.ColliderSphere, Radius: 1},
		}}})

		found, ok := s.SceneObjectByID("o1")
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, found.Transform.Position, test.ShouldResemble, mmi.Vector3{X: 1, Y: 2, Z: 3})
		test.That(t, found.Transform.Rotation, test.ShouldResemble, mmi.IdentityQuaternion)
		test.That(t, found.Transform.Parent, test.ShouldEqual, "table")
		test.That(t, found.Mesh.ID, test.ShouldEqual, "m1")
		test.That(t, found.Collider.ID, test.ShouldEqual, "c1")
		test.That(t, found.PhysicsProperties, test.ShouldBeNil)
	})

	t.Run("rename moves the name index", func(t *testing.T) {
		s.Apply(mmi.SceneUpdate{ChangedSceneObjects: []mmi.SceneObjectUpdate{{ID: "o1", Name: "crate"}}})
		_, ok := s.SceneObjectByName("box")
		test.That(t, ok, test.ShouldBeFalse)
		found, ok := s.SceneObjectByName("crate")
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, found.ID, test.ShouldEqual, "o1")
	})
}

func TestHistory(t *testing.T) {
	s := New()
	const updates = 27
	for i := 1; i <= updates; i++ {
		s.Apply(mmi.SceneUpdate{RemovedSceneObjects: []string{fmt.Sprint(i)}})
	}

	history := s.History()
	test.That(t, history, test.ShouldHaveLength, HistoryLength)
	for i, entry := range history {
		frame := int64(updates - HistoryLength + 1 + i)
		test.That(t, entry.FrameID, test.ShouldEqual, frame)
		test.That(t, entry.Update.RemovedSceneObjects, test.ShouldResemble, []string{fmt.Sprint(frame)})
	}
	test.That(t, s.FrameID(), test.ShouldEqual, int64(updates))
	test.That(t, s.SceneChanges().RemovedSceneObjects, test.ShouldResemble, []string{fmt.Sprint(updates)})

	s.Clear()
	test.That(t, s.FrameID(), test.ShouldEqual, int64(0))
	test.That(t, s.History(), test.ShouldBeEmpty)
	changes := s.SceneChanges()
	test.That(t, changes.IsEmpty(), test.ShouldBeTrue)
}

func TestSceneChangesVerbatim(t *testing.T) {
	s := New()
	update := mmi.SceneUpdate{
		AddedSceneObjects: []mmi.SceneObject{sceneObject("o1", "box", 0, 0, 0)},
		RemovedAvatars:    []string{"missing"},
	}
	s.Apply(update)
	test.That(t, s.SceneChanges(), test.ShouldResemble, update)
}

func TestRangeQueries(t *testing.T) {
	s := New()
	s.Apply(mmi.SceneUpdate{
		AddedSceneObjects: []mmi.SceneObject{
			sceneObject("near", "box", 1, 0, 0),
			sceneObject("edge", "box", 0, 2, 0),
			sceneObject("far", "box", 0, 0, 3),
		},
		AddedAvatars: []mmi.Avatar{
			avatar("a-edge", "anna", 3, 4, 0, 0.5, 0.5),
			avatar("a-far", "bob", 10, 0, 0),
			avatar("a-none", "carl"),
		},
	})

	objects := s.SceneObjectsInRange(mmi.Vector3{}, 2)
	test.That(t, objects, test.ShouldHaveLength, 2)
	test.That(t, objects[0].ID, test.ShouldEqual, "edge")
	test.That(t, objects[1].ID, test.ShouldEqual, "near")

	avatars := s.AvatarsInRange(mmi.Vector3{}, 5)
	test.That(t, avatars, test.ShouldHaveLength, 1)
	test.That(t, avatars[0].ID, test.ShouldEqual, "a-edge")

	test.That(t, s.AvatarsInRange(mmi.Vector3{}, 4.999), test.ShouldBeEmpty)
	test.That(t, s.AvatarsInRange(mmi.Vector3{X: 10}, 0), test.ShouldHaveLength, 1)
}

func TestLookups(t *testing.T) {
	s := New()
	first := sceneObject("o1", "box", 0, 0, 0)
	first.Collider = &mmi.Collider{ID: "c1"}
	first.Mesh = &mmi.Mesh{ID: "m1"}
	second := sceneObject("o2", "box", 9, 9, 9)
	s.Apply(mmi.SceneUpdate{AddedSceneObjects: []mmi.SceneObject{first, second}})

	found, ok := s.SceneObjectByName("box")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, found.ID, test.ShouldEqual, "o1")

	test.That(t, s.Colliders(), test.ShouldResemble, []mmi.Collider{{ID: "c1"}})
	test.That(t, s.CollidersInRange(mmi.Vector3{X: 9, Y: 9, Z: 9}, 1), test.ShouldBeEmpty)
	collider, ok := s.ColliderByID("o1")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, collider.ID, test.ShouldEqual, "c1")
	_, ok = s.ColliderByID("o2")
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, s.Meshes(), test.ShouldHaveLength, 1)
	_, ok = s.MeshByID("o2")
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, s.Transforms(), test.ShouldHaveLength, 2)
	transform, ok := s.TransformByID("o2")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, transform.Position.X, test.ShouldEqual, 9.0)

	full := s.FullScene()
	test.That(t, full.AddedSceneObjects, test.ShouldHaveLength, 2)
	test.That(t, full.AddedAvatars, test.ShouldBeEmpty)

	// Returned records are copies.
	found.Name = "mutated"
	again, _ := s.SceneObjectByID("o1")
	test.That(t, again.Name, test.ShouldEqual, "box")
	test.That(t, s.SimulationTime(), test.ShouldEqual, 0.0)
}

func TestConcurrentApply(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("o%d", i)
			s.Apply(mmi.SceneUpdate{AddedSceneObjects: []mmi.SceneObject{sceneObject(id, "box", 0, 0, 0)}})
			s.SceneObjectsInRange(mmi.Vector3{}, 1)
		}(i)
	}
	wg.Wait()
	test.That(t, s.FrameID(), test.ShouldEqual, int64(50))
	test.That(t, s.SceneObjects(), test.ShouldHaveLength, 50)
	test.That(t, s.History(), test.ShouldHaveLength, HistoryLength)
}
