package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/server/models"
	"github.com/dmitrijs2005/gophfocus/internal/syncapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, "unauthorized")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *GRPCServer) Register(ctx context.Context, req *syncapi.RegisterRequest) (*syncapi.RegisterResponse, error) {

	family, err := s.families.Register(ctx, req.Family, req.Salt, req.Verifier)
	if err != nil {
		s.logger.Error(ctx, "registration failed", "family", req.Family, "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Registered", "family", req.Family)
	return &syncapi.RegisterResponse{FamilyID: family.ID}, nil
}

func (s *GRPCServer) GetSalt(ctx context.Context, req *syncapi.GetSaltRequest) (*syncapi.GetSaltResponse, error) {

	salt, err := s.families.GetSalt(ctx, req.Family)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return &syncapi.GetSaltResponse{Salt: salt}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *syncapi.LoginRequest) (*syncapi.LoginResponse, error) {

	tokens, err := s.families.Login(ctx, req.Family, req.DeviceID, req.VerifierCandidate)
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Device logged in", "family", req.Family, "device_id", req.DeviceID)
	return &syncapi.LoginResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *syncapi.RefreshTokenRequest) (*syncapi.LoginResponse, error) {

	tokens, err := s.families.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}

	return &syncapi.LoginResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *syncapi.PingRequest) (*syncapi.PingResponse, error) {
	return &syncapi.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) GetSession(ctx context.Context, req *syncapi.GetSessionRequest) (*syncapi.GetSessionResponse, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	rec, err := s.sessions.Get(ctx, claims.FamilyID, req.ProfileID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "get session failed", "profile_id", req.ProfileID, "error", err)
		}
		return nil, toStatus(err)
	}

	return &syncapi.GetSessionResponse{Record: syncapi.SessionRecord{
		ProfileID:      rec.ProfileID,
		IsActive:       rec.IsActive,
		SequenceNumber: rec.SequenceNumber,
		DeviceID:       rec.DeviceID,
		StartTime:      rec.StartTime,
		EndTime:        rec.EndTime,
	}}, nil
}

func (s *GRPCServer) PutSession(ctx context.Context, req *syncapi.PutSessionRequest) (*syncapi.PutSessionResponse, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	r := req.Record
	err := s.sessions.Put(ctx, claims.FamilyID, claims.DeviceID, &models.SessionRecord{
		ProfileID:      r.ProfileID,
		IsActive:       r.IsActive,
		SequenceNumber: r.SequenceNumber,
		DeviceID:       r.DeviceID,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
	})
	if err != nil {
		s.logger.Error(ctx, "put session failed", "profile_id", r.ProfileID, "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Session record written", "profile_id", r.ProfileID, "seq", r.SequenceNumber, "active", r.IsActive, "device_id", claims.DeviceID)
	return &syncapi.PutSessionResponse{}, nil
}
