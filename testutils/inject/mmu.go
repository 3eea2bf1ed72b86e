package inject

import (
	"context"

	"github.com/mosim-go/mmuadapter/mmi"
	"github.com/mosim-go/mmuadapter/mmu"
)

// MMU is an injected MMU. Operations without an injected function fall back to mmu.Base or
// succeed trivially.
type MMU struct {
	mmu.Base
	InitializeFunc             func(ctx context.Context, avatar mmi.AvatarDescription, properties map[string]string) (mmi.BoolResponse, error)
	AssignInstructionFunc      func(ctx context.Context, instruction mmi.Instruction, state mmi.SimulationState) (mmi.BoolResponse, error)
	DoStepFunc                 func(ctx context.Context, time float64, state mmi.SimulationState) (mmi.SimulationResult, error)
	GetBoundaryConstraintsFunc func(ctx context.Context, instruction mmi.Instruction) ([]mmi.Constraint, error)
	CheckPrerequisitesFunc     func(ctx context.Context, instruction mmi.Instruction) (mmi.BoolResponse, error)
	AbortFunc                  func(ctx context.Context, instructionID string) (mmi.BoolResponse, error)
	DisposeFunc                func(ctx context.Context, properties map[string]string) (mmi.BoolResponse, error)
	ExecuteFunctionFunc        func(ctx context.Context, name string, properties map[string]string) (map[string]string, error)
	CreateCheckpointFunc       func(ctx context.Context) ([]byte, error)
	RestoreCheckpointFunc      func(ctx context.Context, checkpoint []byte) (mmi.BoolResponse, error)
	CloseFunc                  func(ctx context.Context) error
}

// Initialize calls the injected Initialize or succeeds.
func (m *MMU) Initialize(ctx context.Context, avatar mmi.AvatarDescription, properties map[string]string) (mmi.BoolResponse, error) {
	if m.InitializeFunc == nil {
		return mmi.Success(), nil
	}
	return m.InitializeFunc(ctx, avatar, properties)
}

// AssignInstruction calls the injected AssignInstruction or succeeds.
func (m *MMU) AssignInstruction(
	ctx context.Context,
	instruction mmi.Instruction,
	state mmi.SimulationState,
) (mmi.BoolResponse, error) {
	if m.AssignInstructionFunc == nil {
		return mmi.Success(), nil
	}
	return m.AssignInstructionFunc(ctx, instruction, state)
}

// DoStep calls the injected DoStep or returns an empty result.
func (m *MMU) DoStep(ctx context.Context, time float64, state mmi.SimulationState) (mmi.SimulationResult, error) {
	if m.DoStepFunc == nil {
		return mmi.SimulationResult{}, nil
	}
	return m.DoStepFunc(ctx, time, state)
}

// GetBoundaryConstraints calls the injected GetBoundaryConstraints or the base version.
func (m *MMU) GetBoundaryConstraints(ctx context.Context, instruction mmi.Instruction) ([]mmi.Constraint, error) {
	if m.GetBoundaryConstraintsFunc == nil {
		return m.Base.GetBoundaryConstraints(ctx, instruction)
	}
	return m.GetBoundaryConstraintsFunc(ctx, instruction)
}

// CheckPrerequisites calls the injected CheckPrerequisites or the base version.
func (m *MMU) CheckPrerequisites(ctx context.Context, instruction mmi.Instruction) (mmi.BoolResponse, error) {
	if m.CheckPrerequisitesFunc == nil {
		return m.Base.CheckPrerequisites(ctx, instruction)
	}
	return m.CheckPrerequisitesFunc(ctx, instruction)
}

// Abort calls the injected Abort or the base version.
func (m *MMU) Abort(ctx context.Context, instructionID string) (mmi.BoolResponse, error) {
	if m.AbortFunc == nil {
		return m.Base.Abort(ctx, instructionID)
	}
	return m.AbortFunc(ctx, instructionID)
}

// Dispose calls the injected Dispose or the base version.
func (m *MMU) Dispose(ctx context.Context, properties map[string]string) (mmi.BoolResponse, error) {
	if m.DisposeFunc == nil {
		return m.Base.Dispose(ctx, properties)
	}
	return m.DisposeFunc(ctx, properties)
}

// ExecuteFunction calls the injected ExecuteFunction or the base version.
func (m *MMU) ExecuteFunction(ctx context.Context, name string, properties map[string]string) (map[string]string, error) {
	if m.ExecuteFunctionFunc == nil {
		return m.Base.ExecuteFunction(ctx, name, properties)
	}
	return m.ExecuteFunctionFunc(ctx, name, properties)
}

// CreateCheckpoint calls the injected CreateCheckpoint or the base version.
func (m *MMU) CreateCheckpoint(ctx context.Context) ([]byte, error) {
	if m.CreateCheckpointFunc == nil {
		return m.Base.CreateCheckpoint(ctx)
	}
	return m.CreateCheckpointFunc(ctx)
}

// RestoreCheckpoint calls the injected RestoreCheckpoint or the base version.
func (m *MMU) RestoreCheckpoint(ctx context.Context, checkpoint []byte) (mmi.BoolResponse, error) {
	if m.RestoreCheckpointFunc == nil {
		return m.Base.RestoreCheckpoint(ctx, checkpoint)
	}
	return m.RestoreCheckpointFunc(ctx, checkpoint)
}

// Close calls the injected Close or does nothing.
func (m *MMU) Close(ctx context.Context) error {
	if m.CloseFunc == nil {
		return nil
	}
	return m.CloseFunc(ctx)
}
