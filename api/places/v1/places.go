// Package v1 定义 places 服务的 HTTP/JSON 消息。
package v1

import (
	"github.com/paulmach/orb/geojson"
)

type NearbyRequest struct {
	Lat    *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon    *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	Radius *float64 `json:"radius" validate:"omitempty,gte=0"`
}

func (x *NearbyRequest) GetLat() float64 {
	if x != nil && x.Lat != nil {
		return *x.Lat
	}
	return 0
}

func (x *NearbyRequest) GetLon() float64 {
	if x != nil && x.Lon != nil {
		return *x.Lon
	}
	return 0
}

type ReverseRequest struct {
	Lat      *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon      *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	Weighted bool     `json:"weighted"`
}

func (x *ReverseRequest) GetLat() float64 {
	if x != nil && x.Lat != nil {
		return *x.Lat
	}
	return 0
}

func (x *ReverseRequest) GetLon() float64 {
	if x != nil && x.Lon != nil {
		return *x.Lon
	}
	return 0
}

type GetPlaceRequest struct {
	Id int64 `json:"id" validate:"gt=0"`
}

type StatusRequest struct{}

// Place 是返回给调用方的地点。Distance 只在查询结果中出现。
type Place struct {
	Id         int64             `json:"id"`
	Name       string            `json:"name"`
	Latitude   float64           `json:"latitude"`
	Longitude  float64           `json:"longitude"`
	Center     *geojson.Geometry `json:"center"`
	Polygon    *geojson.Geometry `json:"polygon,omitempty"`
	Popularity int64             `json:"popularity"`
	Distance   *float64          `json:"distance,omitempty"`
}

func (x *Place) GetDistance() float64 {
	if x != nil && x.Distance != nil {
		return *x.Distance
	}
	return 0
}

type PlacesReply struct {
	Places []*Place `json:"places"`
}

func (x *PlacesReply) GetPlaces() []*Place {
	if x != nil {
		return x.Places
	}
	return nil
}

type GetPlaceReply struct {
	Place *Place `json:"place"`
}

func (x *GetPlaceReply) GetPlace() *Place {
	if x != nil {
		return x.Place
	}
	return nil
}

type StatusReply struct {
	Version  string `json:"version"`
	DbStatus string `json:"db_status"`
	Uptime   string `json:"uptime"`
}
