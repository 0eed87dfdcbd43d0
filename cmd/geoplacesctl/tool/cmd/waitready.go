package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	v1 "geo-places/api/places/v1"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	waitURL      string
	waitTimeout  time.Duration
	waitInterval time.Duration
)

// waitreadyCmd waits until geoplaces reports a healthy store
var waitreadyCmd = &cobra.Command{
	Use:   "waitready",
	Short: "等待 geoplaces /status 返回 db_status=ok（部署编排用）",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), waitTimeout)
		defer cancel()
		return waitReady(ctx, http.DefaultClient, waitURL, waitInterval)
	},
}

func init() {
	waitreadyCmd.Flags().StringVar(&waitURL, "url", "http://127.0.0.1:8000/status", "就绪探针 URL")
	waitreadyCmd.Flags().DurationVar(&waitTimeout, "timeout", 10*time.Minute, "等待超时")
	waitreadyCmd.Flags().DurationVar(&waitInterval, "interval", 2*time.Second, "探测间隔")
	rootCmd.AddCommand(waitreadyCmd)
}

func waitReady(ctx context.Context, client *http.Client, url string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if ready(ctx, client, url) {
			color.Green("ready: %s", url)
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waitready 超时：%s", url)
		case <-ticker.C:
		}
	}
}

func ready(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var status v1.StatusReply
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false
	}
	return status.DbStatus == "ok"
}
