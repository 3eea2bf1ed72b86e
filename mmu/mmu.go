// Package mmu defines the contract every motion model unit hosted by the adapter satisfies and
// the session handles an MMU is given access to.
package mmu

import (
	"context"

	"google.golang.org/grpc"

	"github.com/mosim-go/mmuadapter/mmi"
)

// MMU is a motion model unit. All calls for one avatar are forwarded unchanged by the adapter.
type MMU interface {
	Initialize(ctx context.Context, avatar mmi.AvatarDescription, properties map[string]string) (mmi.BoolResponse, error)
	AssignInstruction(ctx context.Context, instruction mmi.Instruction, state mmi.SimulationState) (mmi.BoolResponse, error)
	DoStep(ctx context.Context, time float64, state mmi.SimulationState) (mmi.SimulationResult, error)
	GetBoundaryConstraints(ctx context.Context, instruction mmi.Instruction) ([]mmi.Constraint, error)
	CheckPrerequisites(ctx context.Context, instruction mmi.Instruction) (mmi.BoolResponse, error)
	Abort(ctx context.Context, instructionID string) (mmi.BoolResponse, error)
	Dispose(ctx context.Context, properties map[string]string) (mmi.BoolResponse, error)
	ExecuteFunction(ctx context.Context, name string, properties map[string]string) (map[string]string, error)
	CreateCheckpoint(ctx context.Context) ([]byte, error)
	RestoreCheckpoint(ctx context.Context, checkpoint []byte) (mmi.BoolResponse, error)
}

// SceneAccess is the read-only view of the session scene handed to MMUs. Returned records are
// copies.
type SceneAccess interface {
	FrameID() int64
	SimulationTime() float64
	SceneChanges() mmi.SceneUpdate
	FullScene() mmi.SceneUpdate

	SceneObjects() []mmi.SceneObject
	SceneObjectByID(id string) (mmi.SceneObject, bool)
	SceneObjectByName(name string) (mmi.SceneObject, bool)
	SceneObjectsInRange(position mmi.Vector3, radius float64) []mmi.SceneObject

	Colliders() []mmi.Collider
	ColliderByID(id string) (mmi.Collider, bool)
	CollidersInRange(position mmi.Vector3, radius float64) []mmi.Collider
	Meshes() []mmi.Mesh
	MeshByID(id string) (mmi.Mesh, bool)
	Transforms() []mmi.Transform
	TransformByID(id string) (mmi.Transform, bool)

	Avatars() []mmi.Avatar
	AvatarByID(id string) (mmi.Avatar, bool)
	AvatarByName(name string) (mmi.Avatar, bool)
	AvatarsInRange(position mmi.Vector3, radius float64) []mmi.Avatar
}

// ServiceAccess lazily connects to auxiliary services brokered by the register. Connections are
// owned by the session and must not be closed by an MMU.
type ServiceAccess interface {
	Description(ctx context.Context, name string) (mmi.ServiceDescription, error)
	Service(ctx context.Context, name string) (grpc.ClientConnInterface, error)
}

// Handles are the session collaborators an MMU borrows for its lifetime.
type Handles struct {
	SessionID   string
	Description mmi.MMUDescription
	Scene       SceneAccess
	Services    ServiceAccess
}

// Attachable is implemented by MMUs that want access to their session handles. The adapter
// attaches them right after instantiation.
type Attachable interface {
	Attach(handles Handles)
}

// Closer is implemented by MMUs that hold resources to release when their session closes.
type Closer interface {
	Close(ctx context.Context) error
}

// Constructor creates a fresh MMU instance.
type Constructor func() MMU
