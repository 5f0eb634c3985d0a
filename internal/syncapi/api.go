// Package syncapi is the wire contract between devices and the family sync
// server. Messages travel as JSON over gRPC; the service descriptor is
// declared by hand so no generated code is needed.
package syncapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

const ServiceName = "gophfocus.sync.SyncService"

// Full method names, also used by the server interceptor.
const (
	MethodRegister     = "/" + ServiceName + "/Register"
	MethodGetSalt      = "/" + ServiceName + "/GetSalt"
	MethodLogin        = "/" + ServiceName + "/Login"
	MethodRefreshToken = "/" + ServiceName + "/RefreshToken"
	MethodPing         = "/" + ServiceName + "/Ping"
	MethodGetSession   = "/" + ServiceName + "/GetSession"
	MethodPutSession   = "/" + ServiceName + "/PutSession"
)

type SessionRecord struct {
	ProfileID      string     `json:"profileId"`
	IsActive       bool       `json:"isActive"`
	SequenceNumber int64      `json:"sequenceNumber"`
	DeviceID       string     `json:"deviceId"`
	StartTime      *time.Time `json:"startTime,omitempty"`
	EndTime        *time.Time `json:"endTime,omitempty"`
}

type RegisterRequest struct {
	Family   string `json:"family"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type RegisterResponse struct {
	FamilyID string `json:"familyId"`
}

type GetSaltRequest struct {
	Family string `json:"family"`
}

type GetSaltResponse struct {
	Salt []byte `json:"salt"`
}

type LoginRequest struct {
	Family            string `json:"family"`
	DeviceID          string `json:"deviceId"`
	VerifierCandidate []byte `json:"verifierCandidate"`
}

type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type GetSessionRequest struct {
	ProfileID string `json:"profileId"`
}

type GetSessionResponse struct {
	Record SessionRecord `json:"record"`
}

type PutSessionRequest struct {
	Record SessionRecord `json:"record"`
}

type PutSessionResponse struct{}

// SyncServer is implemented by the family server.
type SyncServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*LoginResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	GetSession(context.Context, *GetSessionRequest) (*GetSessionResponse, error)
	PutSession(context.Context, *PutSessionRequest) (*PutSessionResponse, error)
}

func unary[Req any, Resp any](
	method string,
	call func(SyncServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SyncServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SyncServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", SyncServer.Register),
		unary("GetSalt", SyncServer.GetSalt),
		unary("Login", SyncServer.Login),
		unary("RefreshToken", SyncServer.RefreshToken),
		unary("Ping", SyncServer.Ping),
		unary("GetSession", SyncServer.GetSession),
		unary("PutSession", SyncServer.PutSession),
	},
	Metadata: "syncapi",
}

func RegisterSyncServer(s grpc.ServiceRegistrar, srv SyncServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// SyncClient calls the sync service over a connection.
type SyncClient struct {
	cc grpc.ClientConnInterface
}

func NewSyncClient(cc grpc.ClientConnInterface) *SyncClient {
	return &SyncClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SyncClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, MethodRegister, in, opts)
}

func (c *SyncClient) GetSalt(ctx context.Context, in *GetSaltRequest, opts ...grpc.CallOption) (*GetSaltResponse, error) {
	return invoke[GetSaltResponse](ctx, c.cc, MethodGetSalt, in, opts)
}

func (c *SyncClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *SyncClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, MethodRefreshToken, in, opts)
}

func (c *SyncClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}

func (c *SyncClient) GetSession(ctx context.Context, in *GetSessionRequest, opts ...grpc.CallOption) (*GetSessionResponse, error) {
	return invoke[GetSessionResponse](ctx, c.cc, MethodGetSession, in, opts)
}

func (c *SyncClient) PutSession(ctx context.Context, in *PutSessionRequest, opts ...grpc.CallOption) (*PutSessionResponse, error) {
	return invoke[PutSessionResponse](ctx, c.cc, MethodPutSession, in, opts)
}
