package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/models"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/dmitrijs2005/gophfocus/internal/syncapi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const defaultTimeout = 12 * time.Second

// syncClient is the subset of syncapi.SyncClient used here.
type syncClient interface {
	Register(ctx context.Context, in *syncapi.RegisterRequest, opts ...grpc.CallOption) (*syncapi.RegisterResponse, error)
	GetSalt(ctx context.Context, in *syncapi.GetSaltRequest, opts ...grpc.CallOption) (*syncapi.GetSaltResponse, error)
	Login(ctx context.Context, in *syncapi.LoginRequest, opts ...grpc.CallOption) (*syncapi.LoginResponse, error)
	RefreshToken(ctx context.Context, in *syncapi.RefreshTokenRequest, opts ...grpc.CallOption) (*syncapi.LoginResponse, error)
	Ping(ctx context.Context, in *syncapi.PingRequest, opts ...grpc.CallOption) (*syncapi.PingResponse, error)
	GetSession(ctx context.Context, in *syncapi.GetSessionRequest, opts ...grpc.CallOption) (*syncapi.GetSessionResponse, error)
	PutSession(ctx context.Context, in *syncapi.PutSessionRequest, opts ...grpc.CallOption) (*syncapi.PutSessionResponse, error)
}

// GRPCClient talks to the family sync server. It implements the remote
// session store used by the sync service.
type GRPCClient struct {
	endpointURL string
	deviceID    string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      syncClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string

	// OnTokens, when set, receives every new token pair.
	OnTokens func(access, refresh string)
}

func withAccessToken(ctx context.Context, token, deviceID string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)
	if deviceID != "" {
		md.Set(common.DeviceIDHeaderName, deviceID)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

// Tokens returns the current access and refresh tokens.
func (s *GRPCClient) Tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

// SetTokens installs a token pair, e.g. one restored from local metadata.
func (s *GRPCClient) SetTokens(access, refresh string) {
	s.mu.Lock()
	s.accessToken = access
	s.refreshToken = refresh
	cb := s.OnTokens
	s.mu.Unlock()

	if cb != nil {
		cb(access, refresh)
	}
}

// HasSession reports whether a login happened.
func (s *GRPCClient) HasSession() bool {
	_, r := s.Tokens()
	return r != ""
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	access, refresh := s.Tokens()
	ctx = withAccessToken(ctx, access, s.deviceID)

	err := invoker(ctx, method, req, reply, cc, opts...)

	if err != nil {

		st, ok := status.FromError(err)
		if !ok {
			return err
		}

		if st.Code() != codes.Unauthenticated {
			return err
		}
		if st.Message() != common.ErrTokenExpired.Error() {
			return err
		}

		if refresh == "" {
			return err
		}

		resp, err := s.client.RefreshToken(ctx, &syncapi.RefreshTokenRequest{RefreshToken: refresh})
		if err != nil {
			return err
		}

		s.SetTokens(resp.AccessToken, resp.RefreshToken)

		ctx = withAccessToken(ctx, resp.AccessToken, s.deviceID)
		return invoker(ctx, method, req, reply, cc, opts...)

	}

	return err
}

// NewGRPCClient dials endpointURL lazily. timeout bounds every call; zero
// means the package default.
func NewGRPCClient(endpointURL, deviceID string, timeout time.Duration) (*GRPCClient, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &GRPCClient{endpointURL: endpointURL, deviceID: deviceID, timeout: timeout}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {

	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = syncapi.NewSyncClient(conn)
	return nil
}

func (s *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	t := s.timeout
	if t <= 0 {
		t = defaultTimeout
	}
	return context.WithTimeout(ctx, t)
}

func (s *GRPCClient) Register(ctx context.Context, family string, salt []byte, verifier []byte) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req := &syncapi.RegisterRequest{Family: family, Salt: salt, Verifier: verifier}

	if _, err := s.client.Register(ctx, req); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) GetSalt(ctx context.Context, family string) ([]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.GetSalt(ctx, &syncapi.GetSaltRequest{Family: family})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Salt, nil
}

// Login authenticates this device and keeps the issued tokens.
func (s *GRPCClient) Login(ctx context.Context, family string, verifier []byte) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req := &syncapi.LoginRequest{Family: family, DeviceID: s.deviceID, VerifierCandidate: verifier}

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return s.mapError(err)
	}

	s.SetTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Ping(ctx, &syncapi.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

// Get returns the family's record for profileID.
func (s *GRPCClient) Get(ctx context.Context, profileID string) (models.SessionSyncRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.GetSession(ctx, &syncapi.GetSessionRequest{ProfileID: profileID})
	if err != nil {
		return models.SessionSyncRecord{}, s.mapError(err)
	}
	return fromWire(resp.Record), nil
}

func (s *GRPCClient) Put(ctx context.Context, rec models.SessionSyncRecord) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.client.PutSession(ctx, &syncapi.PutSessionRequest{Record: toWire(rec)}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func toWire(r models.SessionSyncRecord) syncapi.SessionRecord {
	out := syncapi.SessionRecord{
		ProfileID:      r.ProfileID,
		IsActive:       r.IsActive,
		SequenceNumber: r.SequenceNumber,
		DeviceID:       r.DeviceID,
		EndTime:        r.EndTime,
	}
	if !r.StartTime.IsZero() {
		st := r.StartTime
		out.StartTime = &st
	}
	return out
}

func fromWire(r syncapi.SessionRecord) models.SessionSyncRecord {
	out := models.SessionSyncRecord{
		ProfileID:      r.ProfileID,
		IsActive:       r.IsActive,
		SequenceNumber: r.SequenceNumber,
		DeviceID:       r.DeviceID,
		EndTime:        r.EndTime,
	}
	if r.StartTime != nil {
		out.StartTime = *r.StartTime
	}
	return out
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.AlreadyExists:
		return common.ErrorAlreadyExists
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
