package mmu

import (
	"context"
	"sync"

	"github.com/mosim-go/mmuadapter/mmi"
)

// Base can be embedded by MMU implementations. It stores the session handles and provides
// trivial implementations of the optional operations. Embedders implement Initialize,
// AssignInstruction and DoStep.
type Base struct {
	mu      sync.RWMutex
	handles Handles
}

// Attach stores the session handles.
func (b *Base) Attach(handles Handles) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handles = handles
}

// SceneAccess returns the attached scene, nil before Attach.
func (b *Base) SceneAccess() SceneAccess {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handles.Scene
}

// ServiceAccess returns the attached service access, nil before Attach.
func (b *Base) ServiceAccess() ServiceAccess {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handles.Services
}

// Description returns the descriptor the MMU was loaded from.
func (b *Base) Description() mmi.MMUDescription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handles.Description
}

// SessionID returns the session the MMU was loaded into.
func (b *Base) SessionID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handles.SessionID
}

// GetBoundaryConstraints returns no constraints.
func (b *Base) GetBoundaryConstraints(ctx context.Context, instruction mmi.Instruction) ([]mmi.Constraint, error) {
	return []mmi.Constraint{}, nil
}

// CheckPrerequisites always succeeds.
func (b *Base) CheckPrerequisites(ctx context.Context, instruction mmi.Instruction) (mmi.BoolResponse, error) {
	return mmi.Success(), nil
}

// Abort always succeeds.
func (b *Base) Abort(ctx context.Context, instructionID string) (mmi.BoolResponse, error) {
	return mmi.Success(), nil
}

// Dispose always succeeds.
func (b *Base) Dispose(ctx context.Context, properties map[string]string) (mmi.BoolResponse, error) {
	return mmi.Success(), nil
}

// ExecuteFunction knows no functions and returns an empty result.
func (b *Base) ExecuteFunction(ctx context.Context, name string, properties map[string]string) (map[string]string, error) {
	return map[string]string{}, nil
}

// CreateCheckpoint returns an empty checkpoint.
func (b *Base) CreateCheckpoint(ctx context.Context) ([]byte, error) {
	return []byte{}, nil
}

// RestoreCheckpoint always succeeds.
func (b *Base) RestoreCheckpoint(ctx context.Context, checkpoint []byte) (mmi.BoolResponse, error) {
	return mmi.Success(), nil
}
