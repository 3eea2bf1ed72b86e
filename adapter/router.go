package adapter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
	"github.com/mosim-go/mmuadapter/mmu"
	"github.com/mosim-go/mmuadapter/session"
	"github.com/mosim-go/mmuadapter/utils"
)

// Status keys reported by GetStatus.
const (
	StatusVersion       = "Version"
	StatusRunningSince  = "Running since"
	StatusUptime        = "Uptime"
	StatusTotalSessions = "Total Sessions"
	StatusLoadableMMUs  = "Loadable MMUs"
	StatusLastAccess    = "Last Access"
)

// Router answers adapter requests. No request ever fails with an error or a panic: success-shaped
// operations report failures in their BoolResponse and value-shaped operations return an empty
// value.
type Router struct {
	state  *State
	logger logging.Logger
}

// NewRouter returns a Router over state.
func NewRouter(state *State, logger logging.Logger) *Router {
	return &Router{state: state, logger: logger}
}

// State returns the state the router works on.
func (r *Router) State() *State {
	return r.state
}

// guard runs fn, turning a panic into an error.
func guard[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

func (r *Router) boolResult(op, sessionID string, fn func() (mmi.BoolResponse, error)) mmi.BoolResponse {
	r.logger.Debugw("request", "op", op, "session", sessionID)
	resp, err := guard(fn)
	if err != nil {
		r.logger.Errorw("request failed", "op", op, "session", sessionID, "error", err)
		return mmi.Failure(fmt.Sprintf("%s: %s", op, err))
	}
	return resp
}

func valueResult[T any](r *Router, op, sessionID string, empty T, fn func() (T, error)) T {
	r.logger.Debugw("request", "op", op, "session", sessionID)
	out, err := guard(fn)
	if err != nil {
		r.logger.Errorw("request failed", "op", op, "session", sessionID, "error", err)
		return empty
	}
	return out
}

// instance resolves the MMU instance of a session and records the access.
func (r *Router) instance(sessionID, mmuID string) (mmu.MMU, error) {
	r.state.Touch()
	content, instance, err := r.state.Sessions.MMU(sessionID, mmuID)
	if err != nil {
		return nil, err
	}
	content.Touch(r.state.Clock.Now())
	return instance, nil
}

func (r *Router) sceneOf(sessionID string) (*session.Content, error) {
	r.state.Touch()
	content, err := r.state.Sessions.SceneOf(sessionID)
	if err != nil {
		return nil, err
	}
	content.Touch(r.state.Clock.Now())
	return content, nil
}

// Initialize initializes an MMU of the session for an avatar.
func (r *Router) Initialize(
	ctx context.Context,
	avatar mmi.AvatarDescription,
	properties map[string]string,
	mmuID, sessionID string,
) mmi.BoolResponse {
	return r.boolResult("Initialize", sessionID, func() (mmi.BoolResponse, error) {
		instance, err := r.instance(sessionID, mmuID)
		if err != nil {
			return mmi.BoolResponse{}, err
		}
		return instance.Initialize(ctx, avatar, properties)
	})
}

// AssignInstruction hands an instruction to an MMU of the session.
func (r *Router) AssignInstruction(
	ctx context.Context,
	instruction mmi.Instruction,
	state mmi.SimulationState,
	mmuID, sessionID string,
) mmi.BoolResponse {
	return r.boolResult("AssignInstruction", sessionID, func() (mmi.BoolResponse, error) {
		instance, err := r.instance(sessionID, mmuID)
		if err != nil {
			return mmi.BoolResponse{}, err
		}
		return instance.AssignInstruction(ctx, instruction, state)
	})
}

// DoStep advances an MMU of the session by deltaTime seconds.
func (r *Router) DoStep(
	ctx context.Context,
	deltaTime float64,
	state mmi.SimulationState,
	mmuID, sessionID string,
) mmi.SimulationResult {
	return valueResult(r, "DoStep", sessionID, mmi.SimulationResult{}, func() (mmi.SimulationResult, error) {
		instance, err := r.instance(sessionID, mmuID)
		if err != nil {
			return mmi.SimulationResult{}, err
		}
		return instance.DoStep(ctx, deltaTime, state)
	})
}

// GetBoundaryConstraints returns the constraints an MMU of the session requires for an
// instruction.
func (r *Router) GetBoundaryConstraints(
	ctx context.Context,
	instruction mmi.Instruction,
	mmuID, sessionID string,
) []mmi.Constraint {
	return valueResult(r, "GetBoundaryConstraints", sessionID, []mmi.Constraint{}, func() ([]mmi.Constraint, error) {
		instance, err := r.instance(sessionID, mmuID)
		if err != nil {
			return nil, err
		}
		constraints, err := instance.GetBoundaryConstraints(ctx, instruction)
		if err != nil {
			return nil, err
		}
		if constraints == nil {
			constraints = []mmi.Constraint{}
		}
		return constraints, nil
	})
}

// CheckPrerequisites asks an MMU of the session whether an instruction can start.
func (r *Router) CheckPrerequisites(
	ctx context.Context,
	instruction mmi.Instruction,
	mmuID, sessionID string,
) mmi.BoolResponse {
	return r.boolResult("CheckPrerequisites", sessionID, func() (mmi.BoolResponse, error) {
		instance, err := r.instance(sessionID, mmuID)
		if err != nil {
			return mmi.BoolResponse{}, err
		}
		return instance.CheckPrerequisites(ctx, instruction)
	})
}

// Abort aborts an instruction running on an MMU of the session.
func (r *Router) Abort(ctx context.Context, instructionID, mmuID, sessionID string) mmi.BoolResponse {
	return r.boolResult("Abort", sessionID, func() (mmi.BoolResponse, error) {
		instance, err := r.instance(sessionID, mmuID)
		if err != nil {
			return mmi.BoolResponse{}, err
		}
		return instance.Abort(ctx, instructionID)
	})
}

// Dispose disposes an MMU of the session. The instance stays loaded.
func (r *Router) Dispose(
	ctx context.Context,
	properties map[string]string,
	mmuID, sessionID string,
) mmi.BoolResponse {
	return r.boolResult("Dispose", sessionID, func() (mmi.BoolResponse, error) {
		instance, err := r.instance(sessionID, mmuID)
		if err != nil {
			return mmi.BoolResponse{}, err
		}
		return instance.Dispose(ctx, properties)
	})
}

// ExecuteFunction calls a named function of an MMU of the session.
func (r *Router) ExecuteFunction(
	ctx context.Context,
	name string,
	properties map[string]string,
	mmuID, sessionID string,
) map[string]string {
	return valueResult(r, "ExecuteFunction", sessionID, map[string]string{}, func() (map[string]string, error) {
		instance, err := r.instance(sessionID, mmuID)
		if err != nil {
			return nil, err
		}
		result, err := instance.ExecuteFunction(ctx, name, properties)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = map[string]string{}
		}
		return result, nil
	})
}

// CreateCheckpoint returns the serialized state of an MMU of the session.
func (r *Router) CreateCheckpoint(ctx context.Context, mmuID, sessionID string) []byte {
	return valueResult(r, "CreateCheckpoint", sessionID, []byte{}, func() ([]byte, error) {
		instance, err := r.instance(sessionID, mmuID)
		if err != nil {
			return nil, err
		}
		checkpoint, err := instance.CreateCheckpoint(ctx)
		if err != nil {
			return nil, err
		}
		if checkpoint == nil {
			checkpoint = []byte{}
		}
		return checkpoint, nil
	})
}

// RestoreCheckpoint restores the state of an MMU of the session.
func (r *Router) RestoreCheckpoint(ctx context.Context, mmuID, sessionID string, checkpoint []byte) mmi.BoolResponse {
	return r.boolResult("RestoreCheckpoint", sessionID, func() (mmi.BoolResponse, error) {
		instance, err := r.instance(sessionID, mmuID)
		if err != nil {
			return mmi.BoolResponse{}, err
		}
		return instance.RestoreCheckpoint(ctx, checkpoint)
	})
}

// GetStatus reports the adapter's status.
func (r *Router) GetStatus(ctx context.Context) map[string]string {
	return valueResult(r, "GetStatus", "", map[string]string{}, func() (map[string]string, error) {
		now := r.state.Clock.Now()
		lastAccess := "None"
		if t, ok := r.state.LastAccess(); ok {
			lastAccess = t.Format(time.RFC3339)
		}
		return map[string]string{
			StatusVersion:       Version,
			StatusRunningSince:  r.state.StartTime().Format(time.RFC3339),
			StatusUptime:        now.Sub(r.state.StartTime()).Round(time.Second).String(),
			StatusTotalSessions: strconv.Itoa(r.state.Sessions.Len()),
			StatusLoadableMMUs:  strconv.Itoa(r.state.Catalog.Len()),
			StatusLastAccess:    lastAccess,
		}, nil
	})
}

// GetAdapterDescription returns the description the adapter registers with.
func (r *Router) GetAdapterDescription(ctx context.Context) mmi.AdapterDescription {
	return r.state.Description
}

// CreateSession opens a session. See session.Store.Create.
func (r *Router) CreateSession(ctx context.Context, sessionID string) mmi.BoolResponse {
	return r.boolResult("CreateSession", sessionID, func() (mmi.BoolResponse, error) {
		r.state.Touch()
		if _, _, err := r.state.Sessions.Create(sessionID); err != nil {
			return mmi.BoolResponse{}, err
		}
		return mmi.Success(), nil
	})
}

// CloseSession closes the scene of the session with all its avatars.
func (r *Router) CloseSession(ctx context.Context, sessionID string) mmi.BoolResponse {
	return r.boolResult("CloseSession", sessionID, func() (mmi.BoolResponse, error) {
		r.state.Touch()
		if err := r.state.Sessions.Close(ctx, sessionID); err != nil {
			return mmi.BoolResponse{}, err
		}
		return mmi.Success(), nil
	})
}

// PushScene applies a scene update to the scene of the session.
func (r *Router) PushScene(ctx context.Context, update mmi.SceneUpdate, sessionID string) mmi.BoolResponse {
	return r.boolResult("PushScene", sessionID, func() (mmi.BoolResponse, error) {
		content, err := r.sceneOf(sessionID)
		if err != nil {
			return mmi.BoolResponse{}, err
		}
		return content.Scene.Apply(update), nil
	})
}

// GetScene returns the scene objects of the session's scene.
func (r *Router) GetScene(ctx context.Context, sessionID string) []mmi.SceneObject {
	return valueResult(r, "GetScene", sessionID, []mmi.SceneObject{}, func() ([]mmi.SceneObject, error) {
		content, err := r.sceneOf(sessionID)
		if err != nil {
			return nil, err
		}
		return content.Scene.SceneObjects(), nil
	})
}

// GetSceneChanges returns the last update applied to the session's scene.
func (r *Router) GetSceneChanges(ctx context.Context, sessionID string) mmi.SceneUpdate {
	return valueResult(r, "GetSceneChanges", sessionID, mmi.SceneUpdate{}, func() (mmi.SceneUpdate, error) {
		content, err := r.sceneOf(sessionID)
		if err != nil {
			return mmi.SceneUpdate{}, err
		}
		return content.Scene.SceneChanges(), nil
	})
}

// GetLoadableMMUs returns the catalog in discovery order.
func (r *Router) GetLoadableMMUs(ctx context.Context) []mmi.MMUDescription {
	return valueResult(r, "GetLoadableMMUs", "", []mmi.MMUDescription{}, func() ([]mmi.MMUDescription, error) {
		r.state.Touch()
		return r.state.Catalog.List(), nil
	})
}

// GetMMUs returns the descriptions of the MMUs loaded for the session's avatar.
func (r *Router) GetMMUs(ctx context.Context, sessionID string) []mmi.MMUDescription {
	return valueResult(r, "GetMMUs", sessionID, []mmi.MMUDescription{}, func() ([]mmi.MMUDescription, error) {
		r.state.Touch()
		_, avatar, err := r.state.Sessions.Avatar(sessionID)
		if err != nil {
			return nil, err
		}
		return r.state.Catalog.Filter(func(description mmi.MMUDescription) bool {
			return avatar.HasMMU(description.ID)
		}), nil
	})
}

// GetDescription returns the catalog entry with the given id, or with the given name if no id
// matches.
func (r *Router) GetDescription(ctx context.Context, mmuID, sessionID string) mmi.MMUDescription {
	return valueResult(r, "GetDescription", sessionID, mmi.MMUDescription{}, func() (mmi.MMUDescription, error) {
		r.state.Touch()
		if description, ok := r.state.Catalog.Get(mmuID); ok {
			return description, nil
		}
		if description, ok := r.state.Catalog.FindByName(mmuID); ok {
			return description, nil
		}
		return mmi.MMUDescription{}, utils.NewNotFoundError("MMU", mmuID)
	})
}

// LoadMMUs instantiates the given catalog MMUs for the session's avatar, creating the avatar's
// content if needed. Ids that are not in the catalog or fail to instantiate are skipped. The
// result maps each loaded MMU id to the id of its new instance.
func (r *Router) LoadMMUs(ctx context.Context, mmuIDs []string, sessionID string) map[string]string {
	return valueResult(r, "LoadMMUs", sessionID, map[string]string{}, func() (map[string]string, error) {
		r.state.Touch()
		content, avatar, err := r.state.Sessions.EnsureAvatar(sessionID)
		if err != nil {
			return nil, err
		}
		content.Touch(r.state.Clock.Now())

		loaded := map[string]string{}
		for _, mmuID := range mmuIDs {
			description, ok := r.state.Catalog.Get(mmuID)
			if !ok {
				r.logger.Debugw("MMU is not loadable", "mmu", mmuID, "session", sessionID)
				continue
			}
			instance, err := guard(func() (mmu.MMU, error) {
				return r.state.Loader.Instantiate(ctx, description)
			})
			if err != nil {
				r.logger.Warnw("could not instantiate MMU", "mmu", mmuID, "session", sessionID, "error", err)
				continue
			}
			if attachable, ok := instance.(mmu.Attachable); ok {
				handles := mmu.Handles{
					SessionID:   sessionID,
					Description: description,
					Scene:       content.Scene,
				}
				if content.Services != nil {
					handles.Services = content.Services
				}
				attachable.Attach(handles)
			}
			if previous := avatar.SetMMU(mmuID, instance); previous != nil {
				if err := session.CloseMMU(ctx, previous); err != nil {
					r.logger.Warnw("could not close replaced MMU", "mmu", mmuID, "session", sessionID, "error", err)
				}
			}
			loaded[mmuID] = uuid.NewString()
			r.logger.Debugw("loaded MMU", "mmu", mmuID, "name", description.Name, "session", sessionID)
		}
		return loaded, nil
	})
}
