package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"geo-places/internal/biz"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	queryLat, queryLon float64
	queryRadius        float64
	queryWeighted      bool
)

// nearbyCmd lists places whose center lies within the radius
var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "查询半径内的地点（按距离升序）",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := biz.NearbyParams{Lat: queryLat, Lon: queryLon}
		if cmd.Flags().Changed("radius") {
			params.Radius = &queryRadius
		}
		return withUsecase(cmd, func(ctx context.Context, uc *biz.PlaceUsecase) ([]biz.RankedPlace, error) {
			return uc.Nearby(ctx, params)
		})
	},
}

// reverseCmd lists places whose polygon covers the point
var reverseCmd = &cobra.Command{
	Use:   "reverse",
	Short: "逆地理编码：查询多边形覆盖该点的地点",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := biz.ReverseParams{Lat: queryLat, Lon: queryLon, Weighted: queryWeighted}
		return withUsecase(cmd, func(ctx context.Context, uc *biz.PlaceUsecase) ([]biz.RankedPlace, error) {
			return uc.ReverseGeolocate(ctx, params)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{nearbyCmd, reverseCmd} {
		c.Flags().Float64Var(&queryLat, "lat", 0, "纬度")
		c.Flags().Float64Var(&queryLon, "lon", 0, "经度")
		_ = c.MarkFlagRequired("lat")
		_ = c.MarkFlagRequired("lon")
	}
	nearbyCmd.Flags().Float64Var(&queryRadius, "radius", 0, "半径（米），不设置使用配置默认值")
	reverseCmd.Flags().BoolVar(&queryWeighted, "weighted", false, "按热度加权排序")
	rootCmd.AddCommand(nearbyCmd, reverseCmd)
}

func withUsecase(cmd *cobra.Command, fn func(context.Context, *biz.PlaceUsecase) ([]biz.RankedPlace, error)) error {
	uc, cleanup, err := openUsecase()
	if err != nil {
		return err
	}
	defer cleanup()
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	places, err := fn(ctx, uc)
	if err != nil {
		return err
	}
	printPlaces(cmd.OutOrStdout(), places)
	return nil
}

func printPlaces(w io.Writer, places []biz.RankedPlace) {
	if len(places) == 0 {
		fmt.Fprintln(w, color.YellowString("no places"))
		return
	}
	fmt.Fprintln(w, color.New(color.FgCyan, color.Bold).Sprintf("%-8s %-32s %11s %11s %10s %12s",
		"ID", "NAME", "LAT", "LON", "POPULARITY", "DISTANCE(m)"))
	for _, p := range places {
		fmt.Fprintf(w, "%-8d %-32s %11.6f %11.6f %10d %12.1f\n",
			p.Place.ID, p.Place.Name, p.Place.Latitude, p.Place.Longitude, p.Place.Popularity, p.Distance)
	}
}
