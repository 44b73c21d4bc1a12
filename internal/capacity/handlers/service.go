package handlers

import (
	"context"

	"github.com/gartstein/capacity/internal/capacity/auth"
	"google.golang.org/grpc"
)

const ServiceName = "capacity.v1.CapacityService"

// CapacityServiceServer is the server API of capacity.v1.CapacityService.
type CapacityServiceServer interface {
	SubmitManual(context.Context, *SubmitManualRequest) (*CapacityResponse, error)
	StartBulkIngestion(context.Context, *StartBulkIngestionRequest) (*StartBulkIngestionResponse, error)
	GetBatchStatus(context.Context, *GetBatchStatusRequest) (*BatchResponse, error)
	GetCapacity(context.Context, *CapacityIDRequest) (*CapacityResponse, error)
	UpdateCapacityProfile(context.Context, *UpdateCapacityProfileRequest) (*CapacityResponse, error)
	HRApprove(context.Context, *CapacityIDRequest) (*CapacityResponse, error)
	HRReject(context.Context, *RejectRequest) (*CapacityResponse, error)
	SupplierApprove(context.Context, *SupplierDecisionRequest) (*CapacityResponse, error)
	SupplierReject(context.Context, *SupplierDecisionRequest) (*CapacityResponse, error)
	ListCapacities(context.Context, *ListCapacitiesRequest) (*ListCapacitiesResponse, error)
	ListEligible(context.Context, *ListEligibleRequest) (*ListCapacitiesResponse, error)
	ListAdminDecisions(context.Context, *ListAdminDecisionsRequest) (*ListCapacitiesResponse, error)
	ResolveCompany(context.Context, *ResolveCompanyRequest) (*ResolveCompanyResponse, error)
	ListCompanies(context.Context, *ListCompaniesRequest) (*ListCompaniesResponse, error)
}

// ServiceDesc describes capacity.v1.CapacityService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CapacityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SubmitManual", CapacityServiceServer.SubmitManual),
		unary("StartBulkIngestion", CapacityServiceServer.StartBulkIngestion),
		unary("GetBatchStatus", CapacityServiceServer.GetBatchStatus),
		unary("GetCapacity", CapacityServiceServer.GetCapacity),
		unary("UpdateCapacityProfile", CapacityServiceServer.UpdateCapacityProfile),
		unary("HRApprove", CapacityServiceServer.HRApprove),
		unary("HRReject", CapacityServiceServer.HRReject),
		unary("SupplierApprove", CapacityServiceServer.SupplierApprove),
		unary("SupplierReject", CapacityServiceServer.SupplierReject),
		unary("ListCapacities", CapacityServiceServer.ListCapacities),
		unary("ListEligible", CapacityServiceServer.ListEligible),
		unary("ListAdminDecisions", CapacityServiceServer.ListAdminDecisions),
		unary("ResolveCompany", CapacityServiceServer.ResolveCompany),
		unary("ListCompanies", CapacityServiceServer.ListCompanies),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "capacity/v1/capacity.json",
}

// FullMethod returns the gRPC method path of a CapacityService method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// MethodRoles is the authorization policy of the service. A nil role list
// admits any authenticated caller.
var MethodRoles = map[string][]auth.Role{
	FullMethod("SubmitManual"):          {auth.RoleCompany, auth.RoleSupplier, auth.RoleAdmin},
	FullMethod("StartBulkIngestion"):    {auth.RoleCompany, auth.RoleSupplier, auth.RoleAdmin},
	FullMethod("GetBatchStatus"):        nil,
	FullMethod("GetCapacity"):           nil,
	FullMethod("UpdateCapacityProfile"): {auth.RoleCompany, auth.RoleSupplier, auth.RoleAdmin},
	FullMethod("HRApprove"):             {auth.RoleHR, auth.RoleAdmin},
	FullMethod("HRReject"):              {auth.RoleHR, auth.RoleAdmin},
	FullMethod("SupplierApprove"):       {auth.RoleSupplier, auth.RoleAdmin},
	FullMethod("SupplierReject"):        {auth.RoleSupplier, auth.RoleAdmin},
	FullMethod("ListCapacities"):        nil,
	FullMethod("ListEligible"):          {auth.RoleSupplier, auth.RoleAdmin},
	FullMethod("ListAdminDecisions"):    {auth.RoleSupplier, auth.RoleAdmin},
	FullMethod("ResolveCompany"):        nil,
	FullMethod("ListCompanies"):         {auth.RoleHR, auth.RoleSupplier, auth.RoleAdmin},
}

// unary builds the method descriptor of one request/response method, the
// way protoc-gen-go-grpc does for generated services.
func unary[Req any, Resp any](
	method string,
	call func(CapacityServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CapacityServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(CapacityServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls capacity.v1.CapacityService over a connection, always with
// the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitManual(ctx context.Context, in *SubmitManualRequest, opts ...grpc.CallOption) (*CapacityResponse, error) {
	return invoke[CapacityResponse](ctx, c, "SubmitManual", in, opts)
}

func (c *Client) StartBulkIngestion(ctx context.Context, in *StartBulkIngestionRequest, opts ...grpc.CallOption) (*StartBulkIngestionResponse, error) {
	return invoke[StartBulkIngestionResponse](ctx, c, "StartBulkIngestion", in, opts)
}

func (c *Client) GetBatchStatus(ctx context.Context, in *GetBatchStatusRequest, opts ...grpc.CallOption) (*BatchResponse, error) {
	return invoke[BatchResponse](ctx, c, "GetBatchStatus", in, opts)
}

func (c *Client) GetCapacity(ctx context.Context, in *CapacityIDRequest, opts ...grpc.CallOption) (*CapacityResponse, error) {
	return invoke[CapacityResponse](ctx, c, "GetCapacity", in, opts)
}

func (c *Client) UpdateCapacityProfile(ctx context.Context, in *UpdateCapacityProfileRequest, opts ...grpc.CallOption) (*CapacityResponse, error) {
	return invoke[CapacityResponse](ctx, c, "UpdateCapacityProfile", in, opts)
}

func (c *Client) HRApprove(ctx context.Context, in *CapacityIDRequest, opts ...grpc.CallOption) (*CapacityResponse, error) {
	return invoke[CapacityResponse](ctx, c, "HRApprove", in, opts)
}

func (c *Client) HRReject(ctx context.Context, in *RejectRequest, opts ...grpc.CallOption) (*CapacityResponse, error) {
	return invoke[CapacityResponse](ctx, c, "HRReject", in, opts)
}

func (c *Client) SupplierApprove(ctx context.Context, in *SupplierDecisionRequest, opts ...grpc.CallOption) (*CapacityResponse, error) {
	return invoke[CapacityResponse](ctx, c, "SupplierApprove", in, opts)
}

func (c *Client) SupplierReject(ctx context.Context, in *SupplierDecisionRequest, opts ...grpc.CallOption) (*CapacityResponse, error) {
	return invoke[CapacityResponse](ctx, c, "SupplierReject", in, opts)
}

func (c *Client) ListCapacities(ctx context.Context, in *ListCapacitiesRequest, opts ...grpc.CallOption) (*ListCapacitiesResponse, error) {
	return invoke[ListCapacitiesResponse](ctx, c, "ListCapacities", in, opts)
}

func (c *Client) ListEligible(ctx context.Context, in *ListEligibleRequest, opts ...grpc.CallOption) (*ListCapacitiesResponse, error) {
	return invoke[ListCapacitiesResponse](ctx, c, "ListEligible", in, opts)
}

func (c *Client) ListAdminDecisions(ctx context.Context, in *ListAdminDecisionsRequest, opts ...grpc.CallOption) (*ListCapacitiesResponse, error) {
	return invoke[ListCapacitiesResponse](ctx, c, "ListAdminDecisions", in, opts)
}

func (c *Client) ResolveCompany(ctx context.Context, in *ResolveCompanyRequest, opts ...grpc.CallOption) (*ResolveCompanyResponse, error) {
	return invoke[ResolveCompanyResponse](ctx, c, "ResolveCompany", in, opts)
}

func (c *Client) ListCompanies(ctx context.Context, in *ListCompaniesRequest, opts ...grpc.CallOption) (*ListCompaniesResponse, error) {
	return invoke[ListCompaniesResponse](ctx, c, "ListCompanies", in, opts)
}
