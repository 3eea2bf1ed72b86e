package mmi

// ColliderType is the shape of a collider.
type ColliderType int

// The known collider shapes.
const (
	ColliderBox ColliderType = iota
	ColliderSphere
	ColliderCapsule
	ColliderCone
	ColliderCylinder
	ColliderMesh
	ColliderCustom
)

// Mesh is the render or collision geometry of a scene object.
type Mesh struct {
	ID         string            `json:"id"`
	Vertices   []Vector3         `json:"vertices,omitempty"`
	Triangles  []int             `json:"triangles,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Collider is the collision volume of a scene object.
type Collider struct {
	ID             string            `json:"id"`
	Type           ColliderType      `json:"type"`
	PositionOffset *Vector3          `json:"positionOffset,omitempty"`
	RotationOffset *Quaternion       `json:"rotationOffset,omitempty"`
	Size           *Vector3          `json:"size,omitempty"`
	Radius         float64           `json:"radius,omitempty"`
	Height         float64           `json:"height,omitempty"`
	Properties     map[string]string `json:"properties,omitempty"`
}

// PhysicsProperties holds the rigid body parameters of a scene object.
type PhysicsProperties struct {
	Mass            float64           `json:"mass"`
	CenterOfMass    []float64         `json:"centerOfMass,omitempty"`
	Inertia         []float64         `json:"inertia,omitempty"`
	Velocity        []float64         `json:"velocity,omitempty"`
	AngularVelocity []float64         `json:"angularVelocity,omitempty"`
	Properties      map[string]string `json:"properties,omitempty"`
}

// SceneObject is a non-avatar entity in the scene.
type SceneObject struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Transform         Transform          `json:"transform"`
	Mesh              *Mesh              `json:"mesh,omitempty"`
	Collider          *Collider          `json:"collider,omitempty"`
	PhysicsProperties *PhysicsProperties `json:"physicsProperties,omitempty"`
	Properties        map[string]string  `json:"properties,omitempty"`
}

// SceneObjectUpdate carries the fields of a scene object that changed. Nil fields are left
// untouched.
type SceneObjectUpdate struct {
	ID                string             `json:"id"`
	Name              string             `json:"name,omitempty"`
	Transform         *TransformUpdate   `json:"transform,omitempty"`
	Mesh              *Mesh              `json:"mesh,omitempty"`
	Collider          *Collider          `json:"collider,omitempty"`
	PhysicsProperties *PhysicsProperties `json:"physicsProperties,omitempty"`
}

// AvatarDescription describes the skeleton of an avatar.
type AvatarDescription struct {
	AvatarID    string            `json:"avatarId"`
	ZeroPosture []float64         `json:"zeroPosture,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// AvatarPostureValues is the flattened posture of an avatar. The first three values are the
// position of the root joint.
type AvatarPostureValues struct {
	AvatarID         string    `json:"avatarId"`
	PostureData      []float64 `json:"postureData"`
	PartialJointList []string  `json:"partialJointList,omitempty"`
}

// RootPosition returns the root joint position and whether the posture carries one.
func (p *AvatarPostureValues) RootPosition() (Vector3, bool) {
	if p == nil || len(p.PostureData) < 3 {
		return Vector3{}, false
	}
	return Vector3{X: p.PostureData[0], Y: p.PostureData[1], Z: p.PostureData[2]}, true
}

// Avatar is a simulated character in the scene.
type Avatar struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Description   *AvatarDescription   `json:"description,omitempty"`
	PostureValues *AvatarPostureValues `json:"postureValues,omitempty"`
	SceneObjects  []string             `json:"sceneObjects,omitempty"`
	Properties    map[string]string    `json:"properties,omitempty"`
}

// AvatarUpdate carries the fields of an avatar that changed. Nil fields are left untouched, an
// empty non-nil SceneObjects list clears the attached objects.
type AvatarUpdate struct {
	ID            string               `json:"id"`
	Description   *AvatarDescription   `json:"description,omitempty"`
	PostureValues *AvatarPostureValues `json:"postureValues,omitempty"`
	SceneObjects  []string             `json:"sceneObjects"`
}

// SceneUpdate is one batch of scene changes pushed into a session.
type SceneUpdate struct {
	AddedSceneObjects   []SceneObject       `json:"addedSceneObjects,omitempty"`
	ChangedSceneObjects []SceneObjectUpdate `json:"changedSceneObjects,omitempty"`
	RemovedSceneObjects []string            `json:"removedSceneObjects,omitempty"`
	AddedAvatars        []Avatar            `json:"addedAvatars,omitempty"`
	ChangedAvatars      []AvatarUpdate      `json:"changedAvatars,omitempty"`
	RemovedAvatars      []string            `json:"removedAvatars,omitempty"`
}

// IsEmpty returns whether the update carries no change.
func (u *SceneUpdate) IsEmpty() bool {
	return u == nil || len(u.AddedSceneObjects)+len(u.ChangedSceneObjects)+len(u.RemovedSceneObjects)+
		len(u.AddedAvatars)+len(u.ChangedAvatars)+len(u.RemovedAvatars) == 0
}
