package v1

import (
	context "context"

	http "github.com/go-kratos/kratos/v2/transport/http"
)

const OperationPlacesNearby = "/places.v1.Places/Nearby"
const OperationPlacesReverse = "/places.v1.Places/Reverse"
const OperationPlacesGetPlace = "/places.v1.Places/GetPlace"
const OperationPlacesStatus = "/places.v1.Places/Status"

type PlacesHTTPServer interface {
	Nearby(context.Context, *NearbyRequest) (*PlacesReply, error)
	Reverse(context.Context, *ReverseRequest) (*PlacesReply, error)
	GetPlace(context.Context, *GetPlaceRequest) (*GetPlaceReply, error)
	Status(context.Context, *StatusRequest) (*StatusReply, error)
}

func RegisterPlacesHTTPServer(s *http.Server, srv PlacesHTTPServer) {
	r := s.Route("/")
	r.GET("/v1/places/nearby", _Places_Nearby0_HTTP_Handler(srv))
	r.GET("/v1/places/reverse", _Places_Reverse0_HTTP_Handler(srv))
	r.GET("/v1/places/{id}", _Places_GetPlace0_HTTP_Handler(srv))
	r.GET("/status", _Places_Status0_HTTP_Handler(srv))
}

func _Places_Nearby0_HTTP_Handler(srv PlacesHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in NearbyRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationPlacesNearby)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Nearby(ctx, req.(*NearbyRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*PlacesReply)
		return ctx.Result(200, reply)
	}
}

func _Places_Reverse0_HTTP_Handler(srv PlacesHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in ReverseRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationPlacesReverse)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Reverse(ctx, req.(*ReverseRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*PlacesReply)
		return ctx.Result(200, reply)
	}
}

func _Places_GetPlace0_HTTP_Handler(srv PlacesHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in GetPlaceRequest
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationPlacesGetPlace)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetPlace(ctx, req.(*GetPlaceRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*GetPlaceReply)
		return ctx.Result(200, reply)
	}
}

func _Places_Status0_HTTP_Handler(srv PlacesHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in StatusRequest
		http.SetOperation(ctx, OperationPlacesStatus)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Status(ctx, req.(*StatusRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*StatusReply)
		return ctx.Result(200, reply)
	}
}
