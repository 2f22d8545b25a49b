package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "courtledger.v1.BookingService"

// Method names served by BookingService.
const (
	MethodCreateBooking      = "CreateBooking"
	MethodCancelBooking      = "CancelBooking"
	MethodCompleteBooking    = "CompleteBooking"
	MethodFindAvailableCourt = "FindAvailableCourt"
	MethodGetAvailableSlots  = "GetAvailableSlots"
	MethodGetBalance         = "GetBalance"
	MethodValidateBalance    = "ValidateBalance"
	MethodRecordPayment      = "RecordPayment"
)

// BookingServiceServer is the server API for courtledger.v1.BookingService.
// Every message is a google.protobuf.Struct.
type BookingServiceServer interface {
	CreateBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompleteBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FindAvailableCourt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAvailableSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBalance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateBalance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structHandler func(BookingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call structHandler) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			request := new(structpb.Struct)
			if err := dec(request); err != nil {
				return nil, err
			}
			server := srv.(BookingServiceServer)
			if interceptor == nil {
				return call(server, ctx, request)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(server, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, request, info, handler)
		},
	}
}

// ServiceDesc describes courtledger.v1.BookingService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodCreateBooking, BookingServiceServer.CreateBooking),
		unaryHandler(MethodCancelBooking, BookingServiceServer.CancelBooking),
		unaryHandler(MethodCompleteBooking, BookingServiceServer.CompleteBooking),
		unaryHandler(MethodFindAvailableCourt, BookingServiceServer.FindAvailableCourt),
		unaryHandler(MethodGetAvailableSlots, BookingServiceServer.GetAvailableSlots),
		unaryHandler(MethodGetBalance, BookingServiceServer.GetBalance),
		unaryHandler(MethodValidateBalance, BookingServiceServer.ValidateBalance),
		unaryHandler(MethodRecordPayment, BookingServiceServer.RecordPayment),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "courtledger/v1/booking.proto",
}

// RegisterBookingServiceServer registers server on registrar.
func RegisterBookingServiceServer(registrar grpc.ServiceRegistrar, server BookingServiceServer) {
	registrar.RegisterService(&ServiceDesc, server)
}

// Client invokes BookingService methods over a client connection.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Call invokes method with a request built from fields.
func (client *Client) Call(ctx context.Context, method string, fields map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	request, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	response := new(structpb.Struct)
	if err := client.conn.Invoke(ctx, "/"+ServiceName+"/"+method, request, response, opts...); err != nil {
		return nil, err
	}
	return response, nil
}
