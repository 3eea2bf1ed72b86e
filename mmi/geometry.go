// Package mmi defines the data records exchanged between the adapter, its MMUs and the register.
package mmi

import "math"

// Vector3 is a position or direction in scene coordinates.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance returns the euclidean distance between two points.
func (v Vector3) Distance(other Vector3) float64 {
	dx, dy, dz := v.X-other.X, v.Y-other.Y, v.Z-other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Quaternion is a rotation in scene coordinates.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// IdentityQuaternion is the rotation that does nothing.
var IdentityQuaternion = Quaternion{W: 1}

// Transform places a scene object relative to its parent.
type Transform struct {
	ID       string     `json:"id"`
	Position Vector3    `json:"position"`
	Rotation Quaternion `json:"rotation"`
	Parent   string     `json:"parent,omitempty"`
}

// TransformUpdate carries the transform fields that changed. Nil fields are left untouched.
type TransformUpdate struct {
	Position *Vector3    `json:"position,omitempty"`
	Rotation *Quaternion `json:"rotation,omitempty"`
	Parent   *string     `json:"parent,omitempty"`
}
