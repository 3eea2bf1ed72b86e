package adapter

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc"

	rgrpc "github.com/mosim-go/mmuadapter/grpc"
	"github.com/mosim-go/mmuadapter/logging"
	"github.com/mosim-go/mmuadapter/mmi"
)

// Client calls a remote adapter.
type Client struct {
	conn   grpc.ClientConnInterface
	closer func() error
}

// NewClientFromConn returns a client using an existing connection. Closing the client does not
// close the connection.
func NewClientFromConn(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Dial connects to the adapter at address.
func Dial(ctx context.Context, address string, logger logging.Logger) (*Client, error) {
	conn, err := rgrpc.Dial(ctx, address, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to adapter")
	}
	return &Client{conn: conn, closer: conn.Close}, nil
}

// Close closes the connection if the client owns it.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func invokeBool(ctx context.Context, conn grpc.ClientConnInterface, method string, req interface{}) (mmi.BoolResponse, error) {
	resp, err := rgrpc.Invoke[mmi.BoolResponse](ctx, conn, ServiceName, method, req)
	if err != nil {
		return mmi.BoolResponse{}, err
	}
	return *resp, nil
}

// Initialize calls Initialize.
func (c *Client) Initialize(
	ctx context.Context,
	avatar mmi.AvatarDescription,
	properties map[string]string,
	mmuID, sessionID string,
) (mmi.BoolResponse, error) {
	return invokeBool(ctx, c.conn, "Initialize", &InitializeRequest{
		Avatar: avatar, Properties: properties, MMUID: mmuID, SessionID: sessionID,
	})
}

// AssignInstruction calls AssignInstruction.
func (c *Client) AssignInstruction(
	ctx context.Context,
	instruction mmi.Instruction,
	state mmi.SimulationState,
	mmuID, sessionID string,
) (mmi.BoolResponse, error) {
	return invokeBool(ctx, c.conn, "AssignInstruction", &AssignInstructionRequest{
		Instruction: instruction, State: state, MMUID: mmuID, SessionID: sessionID,
	})
}

// DoStep calls DoStep.
func (c *Client) DoStep(
	ctx context.Context,
	deltaTime float64,
	state mmi.SimulationState,
	mmuID, sessionID string,
) (mmi.SimulationResult, error) {
	resp, err := rgrpc.Invoke[mmi.SimulationResult](ctx, c.conn, ServiceName, "DoStep", &DoStepRequest{
		Time: deltaTime, State: state, MMUID: mmuID, SessionID: sessionID,
	})
	if err != nil {
		return mmi.SimulationResult{}, err
	}
	return *resp, nil
}

// GetBoundaryConstraints calls GetBoundaryConstraints.
func (c *Client) GetBoundaryConstraints(
	ctx context.Context,
	instruction mmi.Instruction,
	mmuID, sessionID string,
) ([]mmi.Constraint, error) {
	resp, err := rgrpc.Invoke[ConstraintsResponse](ctx, c.conn, ServiceName, "GetBoundaryConstraints", &InstructionRequest{
		Instruction: instruction, MMUID: mmuID, SessionID: sessionID,
	})
	if err != nil {
		return nil, err
	}
	return resp.Constraints, nil
}

// CheckPrerequisites calls CheckPrerequisites.
func (c *Client) CheckPrerequisites(
	ctx context.Context,
	instruction mmi.Instruction,
	mmuID, sessionID string,
) (mmi.BoolResponse, error) {
	return invokeBool(ctx, c.conn, "CheckPrerequisites", &InstructionRequest{
		Instruction: instruction, MMUID: mmuID, SessionID: sessionID,
	})
}

// Abort calls Abort.
func (c *Client) Abort(ctx context.Context, instructionID, mmuID, sessionID string) (mmi.BoolResponse, error) {
	return invokeBool(ctx, c.conn, "Abort", &AbortRequest{
		InstructionID: instructionID, MMUID: mmuID, SessionID: sessionID,
	})
}

// Dispose calls Dispose.
func (c *Client) Dispose(
	ctx context.Context,
	properties map[string]string,
	mmuID, sessionID string,
) (mmi.BoolResponse, error) {
	return invokeBool(ctx, c.conn, "Dispose", &DisposeRequest{
		Properties: properties, MMUID: mmuID, SessionID: sessionID,
	})
}

// ExecuteFunction calls ExecuteFunction.
func (c *Client) ExecuteFunction(
	ctx context.Context,
	name string,
	properties map[string]string,
	mmuID, sessionID string,
) (map[string]string, error) {
	resp, err := rgrpc.Invoke[PropertiesResponse](ctx, c.conn, ServiceName, "ExecuteFunction", &ExecuteFunctionRequest{
		Name: name, Properties: properties, MMUID: mmuID, SessionID: sessionID,
	})
	if err != nil {
		return nil, err
	}
	return resp.Properties, nil
}

// CreateCheckpoint calls CreateCheckpoint.
func (c *Client) CreateCheckpoint(ctx context.Context, mmuID, sessionID string) ([]byte, error) {
	resp, err := rgrpc.Invoke[CheckpointResponse](ctx, c.conn, ServiceName, "CreateCheckpoint", &MMURequest{
		MMUID: mmuID, SessionID: sessionID,
	})
	if err != nil {
		return nil, err
	}
	return resp.Checkpoint, nil
}

// RestoreCheckpoint calls RestoreCheckpoint.
func (c *Client) RestoreCheckpoint(ctx context.Context, mmuID, sessionID string, checkpoint []byte) (mmi.BoolResponse, error) {
	return invokeBool(ctx, c.conn, "RestoreCheckpoint", &RestoreCheckpointRequest{
		MMUID: mmuID, SessionID: sessionID, Checkpoint: checkpoint,
	})
}

// GetStatus calls GetStatus.
func (c *Client) GetStatus(ctx context.Context) (map[string]string, error) {
	resp, err := rgrpc.Invoke[PropertiesResponse](ctx, c.conn, ServiceName, "GetStatus", &EmptyRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Properties, nil
}

// GetAdapterDescription calls GetAdapterDescription.
func (c *Client) GetAdapterDescription(ctx context.Context) (mmi.AdapterDescription, error) {
	resp, err := rgrpc.Invoke[mmi.AdapterDescription](ctx, c.conn, ServiceName, "GetAdapterDescription", &EmptyRequest{})
	if err != nil {
		return mmi.AdapterDescription{}, err
	}
	return *resp, nil
}

// CreateSession calls CreateSession.
func (c *Client) CreateSession(ctx context.Context, sessionID string) (mmi.BoolResponse, error) {
	return invokeBool(ctx, c.conn, "CreateSession", &SessionRequest{SessionID: sessionID})
}

// CloseSession calls CloseSession.
func (c *Client) CloseSession(ctx context.Context, sessionID string) (mmi.BoolResponse, error) {
	return invokeBool(ctx, c.conn, "CloseSession", &SessionRequest{SessionID: sessionID})
}

// PushScene calls PushScene.
func (c *Client) PushScene(ctx context.Context, update mmi.SceneUpdate, sessionID string) (mmi.BoolResponse, error) {
	return invokeBool(ctx, c.conn, "PushScene", &PushSceneRequest{Update: update, SessionID: sessionID})
}

// GetScene calls GetScene.
func (c *Client) GetScene(ctx context.Context, sessionID string) ([]mmi.SceneObject, error) {
	resp, err := rgrpc.Invoke[SceneObjectsResponse](ctx, c.conn, ServiceName, "GetScene", &SessionRequest{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	return resp.SceneObjects, nil
}

// GetSceneChanges calls GetSceneChanges.
func (c *Client) GetSceneChanges(ctx context.Context, sessionID string) (mmi.SceneUpdate, error) {
	resp, err := rgrpc.Invoke[mmi.SceneUpdate](ctx, c.conn, ServiceName, "GetSceneChanges", &SessionRequest{SessionID: sessionID})
	if err != nil {
		return mmi.SceneUpdate{}, err
	}
	return *resp, nil
}

// GetLoadableMMUs calls GetLoadableMMUs.
func (c *Client) GetLoadableMMUs(ctx context.Context) ([]mmi.MMUDescription, error) {
	resp, err := rgrpc.Invoke[DescriptionsResponse](ctx, c.conn, ServiceName, "GetLoadableMMUs", &EmptyRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Descriptions, nil
}

// GetMMUs calls GetMMUs.
func (c *Client) GetMMUs(ctx context.Context, sessionID string) ([]mmi.MMUDescription, error) {
	resp, err := rgrpc.Invoke[DescriptionsResponse](ctx, c.conn, ServiceName, "GetMMUs", &SessionRequest{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	return resp.Descriptions, nil
}

// GetDescription calls GetDescription.
func (c *Client) GetDescription(ctx context.Context, mmuID, sessionID string) (mmi.MMUDescription, error) {
	resp, err := rgrpc.Invoke[mmi.MMUDescription](ctx, c.conn, ServiceName, "GetDescription", &MMURequest{
		MMUID: mmuID, SessionID: sessionID,
	})
	if err != nil {
		return mmi.MMUDescription{}, err
	}
	return *resp, nil
}

// LoadMMUs calls LoadMMUs.
func (c *Client) LoadMMUs(ctx context.Context, mmuIDs []string, sessionID string) (map[string]string, error) {
	resp, err := rgrpc.Invoke[PropertiesResponse](ctx, c.conn, ServiceName, "LoadMMUs", &LoadMMUsRequest{
		MMUIDs: mmuIDs, SessionID: sessionID,
	})
	if err != nil {
		return nil, err
	}
	return resp.Properties, nil
}
