// Package authz implements the Envoy ext_authz v3 Check RPC: the data-plane
// authorization decision engine (credential extraction, key lookup, and
// dynamic-metadata/header composition).
package authz

import (
	"context"
	"log/slog"
	"time"

	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	authv3 "github.com/envoyproxy/go-control-plane/envoy/service/auth/v3"
	typev3 "github.com/envoyproxy/go-control-plane/envoy/type/v3"
	"google.golang.org/genproto/googleapis/rpc/code"
	statuspb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ADORSYS-GIS/lightbridge-authz/internal/telemetry"
	"github.com/ADORSYS-GIS/lightbridge-authz/pkg/apikey"
)

// injectedUserHeader is the header added to the upstream request on ALLOW.
const injectedUserHeader = "x-custom-lightbridge-authz-user-id"

// store is the subset of apikey.Store the authorization engine depends on.
type store interface {
	FindForAuthz(ctx context.Context, token string) (apikey.ApiKey, error)
}

// Server implements authv3.AuthorizationServer.
type Server struct {
	authv3.UnimplementedAuthorizationServer
	store  store
	logger *slog.Logger
}

// NewServer builds a Server backed by store.
func NewServer(store store, logger *slog.Logger) *Server {
	return &Server{store: store, logger: logger}
}

// Check decides ALLOW or DENY for a single upstream request, per the
// credential-extraction and decision algorithm this package implements.
func (s *Server) Check(ctx context.Context, req *authv3.CheckRequest) (*authv3.CheckResponse, error) {
	start := time.Now()
	defer func() { telemetry.CheckDuration.Observe(time.Since(start).Seconds()) }()

	httpReq := req.GetAttributes().GetRequest().GetHttp()
	token := extractCredential(httpReq.GetHeaders(), httpReq.GetHeaderMap())
	if token == "" {
		telemetry.CheckRequestsTotal.WithLabelValues("deny").Inc()
		return denyResponse("API key missing"), nil
	}

	key, err := s.store.FindForAuthz(ctx, token)
	if err != nil {
		telemetry.CheckRequestsTotal.WithLabelValues("deny").Inc()
		return denyResponse("Invalid API key"), nil
	}

	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
		telemetry.CheckRequestsTotal.WithLabelValues("deny").Inc()
		return denyResponse("Invalid API key"), nil
	}

	metadata, err := buildDynamicMetadata(key)
	if err != nil {
		s.logger.Error("building dynamic metadata", "error", err, "api_key_id", key.ID)
		telemetry.CheckRequestsTotal.WithLabelValues("deny").Inc()
		return denyResponse("Invalid API key"), nil
	}

	telemetry.CheckRequestsTotal.WithLabelValues("allow").Inc()
	return allowResponse(key.UserID, metadata), nil
}

func allowResponse(userID string, metadata *structpb.Struct) *authv3.CheckResponse {
	return &authv3.CheckResponse{
		Status: &statuspb.Status{Code: int32(code.Code_OK)},
		HttpResponse: &authv3.CheckResponse_OkResponse{
			OkResponse: &authv3.OkHttpResponse{
				Headers: []*corev3.HeaderValueOption{
					{
						Header:       &corev3.HeaderValue{Key: injectedUserHeader, Value: userID},
						AppendAction: corev3.HeaderValueOption_OVERWRITE_IF_EXISTS_OR_ADD,
					},
				},
			},
		},
		DynamicMetadata: metadata,
	}
}

func denyResponse(reason string) *authv3.CheckResponse {
	return &authv3.CheckResponse{
		Status: &statuspb.Status{Code: int32(code.Code_PERMISSION_DENIED), Message: reason},
		HttpResponse: &authv3.CheckResponse_DeniedResponse{
			DeniedResponse: &authv3.DeniedHttpResponse{
				Status: &typev3.HttpStatus{Code: typev3.StatusCode_Unauthorized},
				Body:   reason,
			},
		},
	}
}
