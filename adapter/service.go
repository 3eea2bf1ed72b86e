package adapter

import (
	"context"

	"google.golang.org/grpc"

	rgrpc "github.com/mosim-go/mmuadapter/grpc"
	"github.com/mosim-go/mmuadapter/mmi"
)

// ServiceName is the gRPC service name of the adapter endpoint.
const ServiceName = "mmi.MMIAdapter"

type (
	// InitializeRequest is the request of Initialize.
	InitializeRequest struct {
		Avatar     mmi.AvatarDescription `json:"avatarDescription"`
		Properties map[string]string     `json:"properties,omitempty"`
		MMUID      string                `json:"mmuId"`
		SessionID  string                `json:"sessionId"`
	}

	// AssignInstructionRequest is the request of AssignInstruction.
	AssignInstructionRequest struct {
		Instruction mmi.Instruction     `json:"instruction"`
		State       mmi.SimulationState `json:"simulationState"`
		MMUID       string              `json:"mmuId"`
		SessionID   string              `json:"sessionId"`
	}

	// DoStepRequest is the request of DoStep.
	DoStepRequest struct {
		Time      float64             `json:"time"`
		State     mmi.SimulationState `json:"simulationState"`
		MMUID     string              `json:"mmuId"`
		SessionID string              `json:"sessionId"`
	}

	// InstructionRequest is the request of GetBoundaryConstraints and CheckPrerequisites.
	InstructionRequest struct {
		Instruction mmi.Instruction `json:"instruction"`
		MMUID       string          `json:"mmuId"`
		SessionID   string          `json:"sessionId"`
	}

	// AbortRequest is the request of Abort.
	AbortRequest struct {
		InstructionID string `json:"instructionId"`
		MMUID         string `json:"mmuId"`
		SessionID     string `json:"sessionId"`
	}

	// DisposeRequest is the request of Dispose.
	DisposeRequest struct {
		Properties map[string]string `json:"properties,omitempty"`
		MMUID      string            `json:"mmuId"`
		SessionID  string            `json:"sessionId"`
	}

	// ExecuteFunctionRequest is the request of ExecuteFunction.
	ExecuteFunctionRequest struct {
		Name       string            `json:"name"`
		Properties map[string]string `json:"properties,omitempty"`
		MMUID      string            `json:"mmuId"`
		SessionID  string            `json:"sessionId"`
	}

	// MMURequest addresses one MMU of a session.
	MMURequest struct {
		MMUID     string `json:"mmuId"`
		SessionID string `json:"sessionId"`
	}

	// RestoreCheckpointRequest is the request of RestoreCheckpoint.
	RestoreCheckpointRequest struct {
		MMUID      string `json:"mmuId"`
		SessionID  string `json:"sessionId"`
		Checkpoint []byte `json:"checkpointData"`
	}

	// SessionRequest addresses a session.
	SessionRequest struct {
		SessionID string `json:"sessionId"`
	}

	// PushSceneRequest is the request of PushScene.
	PushSceneRequest struct {
		Update    mmi.SceneUpdate `json:"sceneUpdates"`
		SessionID string          `json:"sessionId"`
	}

	// LoadMMUsRequest is the request of LoadMMUs.
	LoadMMUsRequest struct {
		MMUIDs    []string `json:"mmus"`
		SessionID string   `json:"sessionId"`
	}

	// EmptyRequest is the request of operations without arguments.
	EmptyRequest struct{}

	// ConstraintsResponse lists constraints.
	ConstraintsResponse struct {
		Constraints []mmi.Constraint `json:"constraints"`
	}

	// PropertiesResponse carries a string map.
	PropertiesResponse struct {
		Properties map[string]string `json:"properties"`
	}

	// CheckpointResponse carries checkpoint data.
	CheckpointResponse struct {
		Checkpoint []byte `json:"checkpointData"`
	}

	// DescriptionsResponse lists MMU descriptions.
	DescriptionsResponse struct {
		Descriptions []mmi.MMUDescription `json:"descriptions"`
	}

	// SceneObjectsResponse lists scene objects.
	SceneObjectsResponse struct {
		SceneObjects []mmi.SceneObject `json:"sceneObjects"`
	}
)

// Server is implemented by adapter services.
type Server interface {
	Initialize(ctx context.Context, req *InitializeRequest) (*mmi.BoolResponse, error)
	AssignInstruction(ctx context.Context, req *AssignInstructionRequest) (*mmi.BoolResponse, error)
	DoStep(ctx context.Context, req *DoStepRequest) (*mmi.SimulationResult, error)
	GetBoundaryConstraints(ctx context.Context, req *InstructionRequest) (*ConstraintsResponse, error)
	CheckPrerequisites(ctx context.Context, req *InstructionRequest) (*mmi.BoolResponse, error)
	Abort(ctx context.Context, req *AbortRequest) (*mmi.BoolResponse, error)
	Dispose(ctx context.Context, req *DisposeRequest) (*mmi.BoolResponse, error)
	ExecuteFunction(ctx context.Context, req *ExecuteFunctionRequest) (*PropertiesResponse, error)
	CreateCheckpoint(ctx context.Context, req *MMURequest) (*CheckpointResponse, error)
	RestoreCheckpoint(ctx context.Context, req *RestoreCheckpointRequest) (*mmi.BoolResponse, error)
	GetStatus(ctx context.Context, req *EmptyRequest) (*PropertiesResponse, error)
	GetAdapterDescription(ctx context.Context, req *EmptyRequest) (*mmi.AdapterDescription, error)
	CreateSession(ctx context.Context, req *SessionRequest) (*mmi.BoolResponse, error)
	CloseSession(ctx context.Context, req *SessionRequest) (*mmi.BoolResponse, error)
	PushScene(ctx context.Context, req *PushSceneRequest) (*mmi.BoolResponse, error)
	GetScene(ctx context.Context, req *SessionRequest) (*SceneObjectsResponse, error)
	GetSceneChanges(ctx context.Context, req *SessionRequest) (*mmi.SceneUpdate, error)
	GetLoadableMMUs(ctx context.Context, req *EmptyRequest) (*DescriptionsResponse, error)
	GetMMUs(ctx context.Context, req *SessionRequest) (*DescriptionsResponse, error)
	GetDescription(ctx context.Context, req *MMURequest) (*mmi.MMUDescription, error)
	LoadMMUs(ctx context.Context, req *LoadMMUsRequest) (*PropertiesResponse, error)
}

// ServiceDesc describes the adapter service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		rgrpc.UnaryMethod(ServiceName, "Initialize", Server.Initialize),
		rgrpc.UnaryMethod(ServiceName, "AssignInstruction", Server.AssignInstruction),
		rgrpc.UnaryMethod(ServiceName, "DoStep", Server.DoStep),
		rgrpc.UnaryMethod(ServiceName, "GetBoundaryConstraints", Server.GetBoundaryConstraints),
		rgrpc.UnaryMethod(ServiceName, "CheckPrerequisites", Server.CheckPrerequisites),
		rgrpc.UnaryMethod(ServiceName, "Abort", Server.Abort),
		rgrpc.UnaryMethod(ServiceName, "Dispose", Server.Dispose),
		rgrpc.UnaryMethod(ServiceName, "ExecuteFunction", Server.ExecuteFunction),
		rgrpc.UnaryMethod(ServiceName, "CreateCheckpoint", Server.CreateCheckpoint),
		rgrpc.UnaryMethod(ServiceName, "RestoreCheckpoint", Server.RestoreCheckpoint),
		rgrpc.UnaryMethod(ServiceName, "GetStatus", Server.GetStatus),
		rgrpc.UnaryMethod(ServiceName, "GetAdapterDescription", Server.GetAdapterDescription),
		rgrpc.UnaryMethod(ServiceName, "CreateSession", Server.CreateSession),
		rgrpc.UnaryMethod(ServiceName, "CloseSession", Server.CloseSession),
		rgrpc.UnaryMethod(ServiceName, "PushScene", Server.PushScene),
		rgrpc.UnaryMethod(ServiceName, "GetScene", Server.GetScene),
		rgrpc.UnaryMethod(ServiceName, "GetSceneChanges", Server.GetSceneChanges),
		rgrpc.UnaryMethod(ServiceName, "GetLoadableMMUs", Server.GetLoadableMMUs),
		rgrpc.UnaryMethod(ServiceName, "GetMMUs", Server.GetMMUs),
		rgrpc.UnaryMethod(ServiceName, "GetDescription", Server.GetDescription),
		rgrpc.UnaryMethod(ServiceName, "LoadMMUs", Server.LoadMMUs),
	},
	Metadata: "service.go",
}

// serviceServer exposes a Router over gRPC. It never returns an error; failures travel in the
// responses.
type serviceServer struct {
	router *Router
}

// NewServer returns the gRPC implementation of the adapter service backed by router.
func NewServer(router *Router) Server {
	return &serviceServer{router: router}
}

func (s *serviceServer) Initialize(ctx context.Context, req *InitializeRequest) (*mmi.BoolResponse, error) {
	resp := s.router.Initialize(ctx, req.Avatar, req.Properties, req.MMUID, req.SessionID)
	return &resp, nil
}

func (s *serviceServer) AssignInstruction(ctx context.Context, req *AssignInstructionRequest) (*mmi.BoolResponse, error) {
	resp := s.router.AssignInstruction(ctx, req.Instruction, req.State, req.MMUID, req.SessionID)
	return &resp, nil
}

func (s *serviceServer) DoStep(ctx context.Context, req *DoStepRequest) (*mmi.SimulationResult, error) {
	resp := s.router.DoStep(ctx, req.Time, req.State, req.MMUID, req.SessionID)
	return &resp, nil
}

func (s *serviceServer) GetBoundaryConstraints(ctx context.Context, req *InstructionRequest) (*ConstraintsResponse, error) {
	return &ConstraintsResponse{
		Constraints: s.router.GetBoundaryConstraints(ctx, req.Instruction, req.MMUID, req.SessionID),
	}, nil
}

func (s *serviceServer) CheckPrerequisites(ctx context.Context, req *InstructionRequest) (*mmi.BoolResponse, error) {
	resp := s.router.CheckPrerequisites(ctx, req.Instruction, req.MMUID, req.SessionID)
	return &resp, nil
}

func (s *serviceServer) Abort(ctx context.Context, req *AbortRequest) (*mmi.BoolResponse, error) {
	resp := s.router.Abort(ctx, req.InstructionID, req.MMUID, req.SessionID)
	return &resp, nil
}

func (s *serviceServer) Dispose(ctx context.Context, req *DisposeRequest) (*mmi.BoolResponse, error) {
	resp := s.router.Dispose(ctx, req.Properties, req.MMUID, req.SessionID)
	return &resp, nil
}

func (s *serviceServer) ExecuteFunction(ctx context.Context, req *ExecuteFunctionRequest) (*PropertiesResponse, error) {
	return &PropertiesResponse{
		Properties: s.router.ExecuteFunction(ctx, req.Name, req.Properties, req.MMUID, req.SessionID),
	}, nil
}

func (s *serviceServer) CreateCheckpoint(ctx context.Context, req *MMURequest) (*CheckpointResponse, error) {
	return &CheckpointResponse{Checkpoint: s.router.CreateCheckpoint(ctx, req.MMUID, req.SessionID)}, nil
}

func (s *serviceServer) RestoreCheckpoint(ctx context.Context, req *RestoreCheckpointRequest) (*mmi.BoolResponse, error) {
	resp := s.router.RestoreCheckpoint(ctx, req.MMUID, req.SessionID, req.Checkpoint)
	return &resp, nil
}

func (s *serviceServer) GetStatus(ctx context.Context, req *EmptyRequest) (*PropertiesResponse, error) {
	return &PropertiesResponse{Properties: s.router.GetStatus(ctx)}, nil
}

func (s *serviceServer) GetAdapterDescription(ctx context.Context, req *EmptyRequest) (*mmi.AdapterDescription, error) {
	resp := s.router.GetAdapterDescription(ctx)
	return &resp, nil
}

func (s *serviceServer) CreateSession(ctx context.Context, req *SessionRequest) (*mmi.BoolResponse, error) {
	resp := s.router.CreateSession(ctx, req.SessionID)
	return &resp, nil
}

func (s *serviceServer) CloseSession(ctx context.Context, req *SessionRequest) (*mmi.BoolResponse, error) {
	resp := s.router.CloseSession(ctx, req.SessionID)
	return &resp, nil
}

func (s *serviceServer) PushScene(ctx context.Context, req *PushSceneRequest) (*mmi.BoolResponse, error) {
	resp := s.router.PushScene(ctx, req.Update, req.SessionID)
	return &resp, nil
}

func (s *serviceServer) GetScene(ctx context.Context, req *SessionRequest) (*SceneObjectsResponse, error) {
	return &SceneObjectsResponse{SceneObjects: s.router.GetScene(ctx, req.SessionID)}, nil
}

func (s *serviceServer) GetSceneChanges(ctx context.Context, req *SessionRequest) (*mmi.SceneUpdate, error) {
	resp := s.router.GetSceneChanges(ctx, req.SessionID)
	return &resp, nil
}

func (s *serviceServer) GetLoadableMMUs(ctx context.Context, req *EmptyRequest) (*DescriptionsResponse, error) {
	return &DescriptionsResponse{Descriptions: s.router.GetLoadableMMUs(ctx)}, nil
}

func (s *serviceServer) GetMMUs(ctx context.Context, req *SessionRequest) (*DescriptionsResponse, error) {
	return &DescriptionsResponse{Descriptions: s.router.GetMMUs(ctx, req.SessionID)}, nil
}

func (s *serviceServer) GetDescription(ctx context.Context, req *MMURequest) (*mmi.MMUDescription, error) {
	resp := s.router.GetDescription(ctx, req.MMUID, req.SessionID)
	return &resp, nil
}

func (s *serviceServer) LoadMMUs(ctx context.Context, req *LoadMMUsRequest) (*PropertiesResponse, error) {
	return &PropertiesResponse{Properties: s.router.LoadMMUs(ctx, req.MMUIDs, req.SessionID)}, nil
}
