package service

import (
	"context"
	"time"

	v1 "geo-places/api/places/v1"
	"geo-places/internal/biz"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-playground/validator/v10"
)

// Version 由构建时 -ldflags 注入。
var Version = "dev"

// PlacesService 实现 HTTP 入口，调用 biz 层。
type PlacesService struct {
	log      *log.Helper
	places   *biz.PlaceUsecase
	validate *validator.Validate
}

var serviceStartTime = time.Now()

func NewPlacesService(logger log.Logger, places *biz.PlaceUsecase) *PlacesService {
	return &PlacesService{
		log:      log.NewHelper(log.With(logger, "module", "service/places")),
		places:   places,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *PlacesService) Nearby(ctx context.Context, req *v1.NearbyRequest) (*v1.PlacesReply, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Infof("Nearby lat=%f lon=%f", req.GetLat(), req.GetLon())
	items, err := s.places.Nearby(ctx, biz.NearbyParams{
		Lat:    req.GetLat(),
		Lon:    req.GetLon(),
		Radius: req.Radius,
	})
	if err != nil {
		return nil, err
	}
	return &v1.PlacesReply{Places: mapRanked(items)}, nil
}

func (s *PlacesService) Reverse(ctx context.Context, req *v1.ReverseRequest) (*v1.PlacesReply, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Infof("Reverse lat=%f lon=%f weighted=%t", req.GetLat(), req.GetLon(), req.Weighted)
	items, err := s.places.ReverseGeolocate(ctx, biz.ReverseParams{
		Lat:      req.GetLat(),
		Lon:      req.GetLon(),
		Weighted: req.Weighted,
	})
	if err != nil {
		return nil, err
	}
	return &v1.PlacesReply{Places: mapRanked(items)}, nil
}

func (s *PlacesService) GetPlace(ctx context.Context, req *v1.GetPlaceRequest) (*v1.GetPlaceReply, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	p, err := s.places.Get(ctx, req.Id)
	if err != nil {
		return nil, err
	}
	return &v1.GetPlaceReply{Place: mapPlace(p)}, nil
}

func (s *PlacesService) Status(ctx context.Context, _ *v1.StatusRequest) (*v1.StatusReply, error) {
	uptime := time.Since(serviceStartTime).Round(time.Second).String()
	dbStatus := "ok"
	if err := s.places.Ping(ctx); err != nil {
		s.log.WithContext(ctx).Warnf("ping store: %v", err)
		dbStatus = "unavailable"
	}
	return &v1.StatusReply{Version: Version, DbStatus: dbStatus, Uptime: uptime}, nil
}

// check 把 validator 的错误转为 400。
func (s *PlacesService) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return errors.BadRequest(biz.InvalidArgument, err.Error()).WithCause(err)
	}
	return nil
}

func mapRanked(items []biz.RankedPlace) []*v1.Place {
	out := make([]*v1.Place, 0, len(items))
	for _, it := range items {
		p := mapPlace(&it.Place)
		d := it.Distance
		p.Distance = &d
		out = append(out, p)
	}
	return out
}

func mapPlace(p *biz.Place) *v1.Place {
	return &v1.Place{
		Id:         p.ID,
		Name:       p.Name,
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		Center:     p.CenterGeoJSON(),
		Polygon:    p.PolygonGeoJSON(),
		Popularity: p.Popularity,
	}
}
