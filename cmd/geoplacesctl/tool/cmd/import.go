package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"geo-places/internal/biz"

	"github.com/fatih/color"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
)

var importPath string

// importCmd loads places from a GeoJSON FeatureCollection
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "从 GeoJSON FeatureCollection 导入地点",
	Long: `每个 Feature 对应一个地点，properties.name 必填，properties.popularity 可选。
Point 要素可在 properties.polygon 中附带多边形；Polygon 要素可在 properties.center 中给出中心点，
缺省时取外包框中心。Feature 带数字 id 时按 id 覆盖写入。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if importPath == "" {
			return fmt.Errorf("必须提供 -f")
		}
		f, err := os.Open(importPath)
		if err != nil {
			return err
		}
		defer f.Close()
		places, err := readPlaces(f)
		if err != nil {
			return err
		}

		uc, cleanup, err := openUsecase()
		if err != nil {
			return err
		}
		defer cleanup()
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Hour)
		defer cancel()
		for i, p := range places {
			if _, err := uc.Save(ctx, p); err != nil {
				return fmt.Errorf("feature %d (%s): %w", i, p.Name, err)
			}
		}
		color.Green("imported %d places from %s", len(places), importPath)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importPath, "file", "f", "", "GeoJSON 文件路径")
	rootCmd.AddCommand(importCmd)
}

// readPlaces 解析整个 FeatureCollection，任一要素非法即返回错误。
func readPlaces(r io.Reader) ([]*biz.Place, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	places := make([]*biz.Place, 0, len(fc.Features))
	for i, f := range fc.Features {
		p, err := placeFromFeature(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		places = append(places, p)
	}
	return places, nil
}

func placeFromFeature(f *geojson.Feature) (*biz.Place, error) {
	p := &biz.Place{
		Name:       strings.TrimSpace(f.Properties.MustString("name", "")),
		Popularity: int64(f.Properties.MustFloat64("popularity", 0)),
	}
	if p.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	id, err := featureID(f.ID)
	if err != nil {
		return nil, err
	}
	p.ID = id

	switch g := f.Geometry.(type) {
	case orb.Point:
		p.Center = g
		if raw, ok := f.Properties["polygon"]; ok && raw != nil {
			geom, err := propertyGeometry(raw)
			if err != nil {
				return nil, fmt.Errorf("polygon: %w", err)
			}
			poly, ok := geom.(orb.Polygon)
			if !ok {
				return nil, fmt.Errorf("polygon: unexpected %s", geom.GeoJSONType())
			}
			p.Polygon = poly
		}
	case orb.Polygon:
		p.Polygon = g
		p.Center = g.Bound().Center()
		if raw, ok := f.Properties["center"]; ok && raw != nil {
			geom, err := propertyGeometry(raw)
			if err != nil {
				return nil, fmt.Errorf("center: %w", err)
			}
			pt, ok := geom.(orb.Point)
			if !ok {
				return nil, fmt.Errorf("center: unexpected %s", geom.GeoJSONType())
			}
			p.Center = pt
		}
	case nil:
		return nil, fmt.Errorf("missing geometry")
	default:
		return nil, fmt.Errorf("unsupported geometry %s", g.GeoJSONType())
	}
	p.Longitude, p.Latitude = p.Center.Lon(), p.Center.Lat()
	if err := biz.ValidatePlace(p); err != nil {
		return nil, err
	}
	return p, nil
}

// propertyGeometry 接受 GeoJSON 几何对象或 [lon, lat] 数组。
func propertyGeometry(raw any) (orb.Geometry, error) {
	if arr, ok := raw.([]any); ok && len(arr) == 2 {
		lon, ok1 := arr[0].(float64)
		lat, ok2 := arr[1].(float64)
		if ok1 && ok2 {
			return orb.Point{lon, lat}, nil
		}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	g, err := geojson.UnmarshalGeometry(b)
	if err != nil {
		return nil, err
	}
	if g.Coordinates == nil {
		return nil, fmt.Errorf("empty geometry")
	}
	return g.Coordinates, nil
}

func featureID(v any) (int64, error) {
	switch id := v.(type) {
	case nil:
		return 0, nil
	case float64:
		if id <= 0 || id != float64(int64(id)) {
			return 0, fmt.Errorf("invalid id %v", id)
		}
		return int64(id), nil
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid id %q", id)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid id %v", v)
	}
}
