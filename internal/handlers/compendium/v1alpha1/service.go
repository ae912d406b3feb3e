package v1alpha1

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified grpc service name
const ServiceName = "compendium.v1alpha1.CompendiumService"

// CompendiumServiceServer is the server side of the compendium service
type CompendiumServiceServer interface {
	ResolveItem(context.Context, *ResolveItemRequest) (*ResolveItemResponse, error)
	ResolveRequestGroups(context.Context, *ResolveRequestGroupsRequest) (*ResolveRequestGroupsResponse, error)
	RebuildCache(context.Context, *RebuildCacheRequest) (*RebuildCacheResponse, error)
	GenerateCharacter(context.Context, *GenerateCharacterRequest) (*GenerateCharacterResponse, error)
}

// RegisterCompendiumServiceServer registers srv on s
func RegisterCompendiumServiceServer(s grpc.ServiceRegistrar, srv CompendiumServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary adapts a typed method to a grpc.MethodDesc handler
func unary[Req, Resp any](
	method string,
	call func(CompendiumServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CompendiumServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CompendiumServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the compendium service. Messages use the json codec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CompendiumServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ResolveItem", CompendiumServiceServer.ResolveItem),
		unary("ResolveRequestGroups", CompendiumServiceServer.ResolveRequestGroups),
		unary("RebuildCache", CompendiumServiceServer.RebuildCache),
		unary("GenerateCharacter", CompendiumServiceServer.GenerateCharacter),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "compendium/v1alpha1/compendium.json",
}

// Client calls a remote compendium service
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ResolveItem(ctx context.Context, in *ResolveItemRequest, opts ...grpc.CallOption) (*ResolveItemResponse, error) {
	return invoke[ResolveItemResponse](ctx, c, "ResolveItem", in, opts)
}

func (c *Client) ResolveRequestGroups(ctx context.Context, in *ResolveRequestGroupsRequest, opts ...grpc.CallOption) (*ResolveRequestGroupsResponse, error) {
	return invoke[ResolveRequestGroupsResponse](ctx, c, "ResolveRequestGroups", in, opts)
}

func (c *Client) RebuildCache(ctx context.Context, in *RebuildCacheRequest, opts ...grpc.CallOption) (*RebuildCacheResponse, error) {
	return invoke[RebuildCacheResponse](ctx, c, "RebuildCache", in, opts)
}

func (c *Client) GenerateCharacter(ctx context.Context, in *GenerateCharacterRequest, opts ...grpc.CallOption) (*GenerateCharacterResponse, error) {
	return invoke[GenerateCharacterResponse](ctx, c, "GenerateCharacter", in, opts)
}
