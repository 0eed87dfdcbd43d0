package service

import (
	"context"
	"math"
	"testing"

	v1 "geo-places/api/places/v1"
	"geo-places/internal/biz"
	"geo-places/internal/geo"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	rows    []biz.PlaceRow
	pingErr error
}

func (r *memRepo) ListPlaces(context.Context, geo.Query) ([]biz.PlaceRow, error) { return r.rows, nil }

func (r *memRepo) GetPlace(_ context.Context, id int64) (*biz.Place, error) {
	for _, row := range r.rows {
		if row.Place.ID == id {
			return row.Place, nil
		}
	}
	return nil, biz.ErrPlaceNotFound
}

func (r *memRepo) SavePlace(_ context.Context, p *biz.Place) (*biz.Place, error) { return p, nil }

func (r *memRepo) Ping(context.Context) error { return r.pingErr }

func ptr(v float64) *float64 { return &v }

func newService(repo biz.PlaceRepo) *PlacesService {
	return NewPlacesService(log.DefaultLogger, biz.NewPlaceUsecase(repo, nil, log.DefaultLogger))
}

func TestRequestValidation(t *testing.T) {
	s := newService(&memRepo{})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"missing lat", func() error {
			_, err := s.Nearby(ctx, &v1.NearbyRequest{Lon: ptr(1)})
			return err
		}},
		{"nan lon", func() error {
			_, err := s.Nearby(ctx, &v1.NearbyRequest{Lat: ptr(1), Lon: ptr(math.NaN())})
			return err
		}},
		{"negative radius", func() error {
			_, err := s.Nearby(ctx, &v1.NearbyRequest{Lat: ptr(1), Lon: ptr(1), Radius: ptr(-1)})
			return err
		}},
		{"reverse lat out of range", func() error {
			_, err := s.Reverse(ctx, &v1.ReverseRequest{Lat: ptr(-91), Lon: ptr(1)})
			return err
		}},
		{"zero id", func() error {
			_, err := s.GetPlace(ctx, &v1.GetPlaceRequest{})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, errors.IsBadRequest(err))
		})
	}
}

func TestNearbyMapsDistance(t *testing.T) {
	place := &biz.Place{
		ID:        3,
		Name:      "Central Park",
		Latitude:  40.764356,
		Longitude: -73.973057,
		Center:    orb.Point{-73.973057, 40.764356},
	}
	s := newService(&memRepo{rows: []biz.PlaceRow{{Place: place, Distance: 1580.6}}})

	reply, err := s.Nearby(context.Background(), &v1.NearbyRequest{Lat: ptr(0), Lon: ptr(0)})
	require.NoError(t, err)
	require.Len(t, reply.GetPlaces(), 1)
	got := reply.GetPlaces()[0]
	assert.Equal(t, int64(3), got.Id)
	assert.Equal(t, 1580.6, got.GetDistance())
	assert.Nil(t, got.Polygon)
	assert.Equal(t, orb.Point{-73.973057, 40.764356}, got.Center.Geometry())

	one, err := s.GetPlace(context.Background(), &v1.GetPlaceRequest{Id: 3})
	require.NoError(t, err)
	assert.Nil(t, one.GetPlace().Distance)
}

func TestStatusReportsStore(t *testing.T) {
	s := newService(&memRepo{pingErr: errors.ServiceUnavailable("DOWN", "down")})

	reply, err := s.Status(context.Background(), &v1.StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, "unavailable", reply.DbStatus)
	assert.Equal(t, Version, reply.Version)
}
