// Package handlers serves the capacity service over gRPC, bridging the
// transport layer and the controllers and translating between the JSON wire
// types and domain models.
package handlers

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CapacityController defines the record and approval operations the
// handlers invoke.
type CapacityController interface {
	SubmitManual(ctx context.Context, rec *models.CapacityRecord) (*models.CapacityRecord, error)
	GetCapacity(ctx context.Context, id uuid.UUID) (*models.CapacityRecord, error)
	UpdateCapacityProfile(ctx context.Context, update *models.CapacityUpdate) (*models.CapacityRecord, error)
	HRApprove(ctx context.Context, id uuid.UUID) (*models.CapacityRecord, error)
	HRReject(ctx context.Context, id uuid.UUID, remark string) (*models.CapacityRecord, error)
	SupplierApprove(ctx context.Context, id uuid.UUID, elevated *bool) (*models.CapacityRecord, error)
	SupplierReject(ctx context.Context, id uuid.UUID, remark string, elevated *bool) (*models.CapacityRecord, error)
	ListCapacities(ctx context.Context, filter models.CapacityFilter) ([]*models.CapacityRecord, error)
	ListEligible(ctx context.Context) ([]*models.EligibleCapacity, error)
	ListAdminDecisions(ctx context.Context, status models.Status) ([]*models.CapacityRecord, error)
	ResolveCompany(ctx context.Context, email string) (uuid.UUID, error)
	ListCompanies(ctx context.Context) ([]*models.Company, error)
}

// IngestionController defines the bulk upload operations the handlers invoke.
type IngestionController interface {
	StartBulkIngestion(ctx context.Context, companyID uuid.UUID, uploadedBy, fileName string, content []byte) (uint64, error)
	GetBatchStatus(ctx context.Context, batchID uint64) (*models.Batch, error)
}

// Server holds the gRPC server and its health service.
type Server struct {
	grpcServer   *grpc.Server
	health       *health.Server
	logger       *zap.Logger
	grpcEndpoint string
}

func NewServer(grpcPort int, logger *zap.Logger, grpcOpts ...grpc.ServerOption) *Server {
	s := &Server{
		grpcServer:   grpc.NewServer(grpcOpts...),
		health:       health.NewServer(),
		logger:       logger,
		grpcEndpoint: fmt.Sprintf(":%d", grpcPort),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	return s
}

// RegisterGRPCHandler registers the CapacityService implementation and
// marks it as serving.
func (s *Server) RegisterGRPCHandler(h CapacityServiceServer) {
	s.grpcServer.RegisterService(&ServiceDesc, h)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Start listens on the configured port and serves until Stop is called.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.grpcEndpoint)
	if err != nil {
		return fmt.Errorf("gRPC listen error: %w", err)
	}
	return s.Serve(lis)
}

// Serve serves gRPC on an existing listener.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("Starting gRPC server", zap.String("endpoint", lis.Addr().String()))
	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("gRPC serve error: %w", err)
	}
	return nil
}

// Stop drains in-flight calls, forcing the server down after timeout.
func (s *Server) Stop(timeout time.Duration) {
	s.logger.Info("Shutting down gRPC server...")
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Warn("Graceful stop timed out, forcing shutdown")
		s.grpcServer.Stop()
	}

	s.logger.Info("gRPC server stopped")
}
