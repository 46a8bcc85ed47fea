package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/core/service"
)

// CatalogServiceName is the fully qualified gRPC service name.
const CatalogServiceName = "catalog.v1.Catalog"

// The catalog service exchanges JSON messages. Clients select it with
// grpc.CallContentSubtype(JSONCodecName).
const JSONCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type GetProductRequest struct {
	ID int64 `json:"id"`
}

type ListProductsRequest struct {
	Search   string `json:"search,omitempty"`
	Ordering string `json:"ordering,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

type ListProductsResponse struct {
	Count   int               `json:"count"`
	Results []ProductResponse `json:"results"`
}

type ProductInfoRequest struct{}

// CatalogServer is the read-only catalog exposed over gRPC.
type CatalogServer interface {
	GetProduct(ctx context.Context, req *GetProductRequest) (*ProductResponse, error)
	ListProducts(ctx context.Context, req *ListProductsRequest) (*ListProductsResponse, error)
	ProductInfo(ctx context.Context, req *ProductInfoRequest) (*ProductInfoResponse, error)
}

type GRPCHandler struct {
	products *service.ProductService
}

func NewGRPCHandler(products *service.ProductService) *GRPCHandler {
	return &GRPCHandler{products: products}
}

// Register attaches the catalog service to s.
func (h *GRPCHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&catalogServiceDesc, h)
}

func (h *GRPCHandler) GetProduct(ctx context.Context, req *GetProductRequest) (*ProductResponse, error) {
	p, err := h.products.Get(ctx, req.ID)
	if err != nil {
		return nil, grpcError(err)
	}
	resp := mapProduct(p)
	return &resp, nil
}

// ListProducts has the same semantics as GET /products: in-stock products only.
func (h *GRPCHandler) ListProducts(ctx context.Context, req *ListProductsRequest) (*ListProductsResponse, error) {
	filter := domain.ProductFilter{
		Search:      req.Search,
		Sort:        domain.ParseProductSort(req.Ordering),
		InStockOnly: true,
	}

	page, err := h.products.List(ctx, filter, domain.NewPageRequest(req.Page, req.PageSize))
	if err != nil {
		return nil, grpcError(err)
	}
	return &ListProductsResponse{Count: page.Total, Results: mapProducts(page.Items)}, nil
}

func (h *GRPCHandler) ProductInfo(ctx context.Context, _ *ProductInfoRequest) (*ProductInfoResponse, error) {
	info, err := h.products.Info(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	resp := mapProductInfo(info)
	return &resp, nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidPage):
		return status.Error(codes.NotFound, err.Error())
	case domain.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}

// UnaryLogger logs every unary call with its status code and duration.
func UnaryLogger(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	slog.InfoContext(ctx, "grpc request",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: CatalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetProduct",
			Handler:    getProductHandler,
		},
		{
			MethodName: "ListProducts",
			Handler:    listProductsHandler,
		},
		{
			MethodName: "ProductInfo",
			Handler:    productInfoHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog/v1/catalog.proto",
}

var (
	getProductHandler = unaryHandler("GetProduct", func(srv CatalogServer, ctx context.Context, req *GetProductRequest) (any, error) {
		return srv.GetProduct(ctx, req)
	})
	listProductsHandler = unaryHandler("ListProducts", func(srv CatalogServer, ctx context.Context, req *ListProductsRequest) (any, error) {
		return srv.ListProducts(ctx, req)
	})
	productInfoHandler = unaryHandler("ProductInfo", func(srv CatalogServer, ctx context.Context, req *ProductInfoRequest) (any, error) {
		return srv.ProductInfo(ctx, req)
	})
)

// unaryHandler adapts a typed method to grpc.MethodHandler, decoding the
// request and running any configured interceptor.
func unaryHandler[Req any](method string, call func(CatalogServer, context.Context, *Req) (any, error)) grpc.MethodHandler {
	fullMethod := "/" + CatalogServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CatalogServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CatalogServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
