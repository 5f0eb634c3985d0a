// Package grpc exposes the family sync service over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophfocus/internal/logging"
	"github.com/dmitrijs2005/gophfocus/internal/server/models"
	"github.com/dmitrijs2005/gophfocus/internal/server/services"
	"github.com/dmitrijs2005/gophfocus/internal/syncapi"
	"google.golang.org/grpc"
)

type familySvc interface {
	Register(ctx context.Context, name string, salt, verifier []byte) (*models.Family, error)
	GetSalt(ctx context.Context, name string) ([]byte, error)
	Login(ctx context.Context, name, deviceID string, verifierCandidate []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type sessionSvc interface {
	Get(ctx context.Context, familyID, profileID string) (*models.SessionRecord, error)
	Put(ctx context.Context, familyID, deviceID string, rec *models.SessionRecord) error
}

type GRPCServer struct {
	address   string
	families  familySvc
	sessions  sessionSvc
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, fs familySvc, ss sessionSvc, secretKey string) (*GRPCServer, error) {
	return &GRPCServer{
		address:   a,
		logger:    logging.OrNop(l).With("module", "grpc_server"),
		families:  fs,
		sessions:  ss,
		jwtSecret: []byte(secretKey),
	}, nil
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	syncapi.RegisterSyncServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
