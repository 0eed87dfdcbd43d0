package conf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bootstrap 对应 configs/config.yaml 的顶层结构。
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Geo    *Geo    `json:"geo"`
}

type Server struct {
	Http      *Server_HTTP      `json:"http"`
	RateLimit *Server_RateLimit `json:"rate_limit"`
}

type Server_HTTP struct {
	Network string    `json:"network"`
	Addr    string    `json:"addr"`
	Timeout *Duration `json:"timeout"`
}

type Server_RateLimit struct {
	// 每秒请求数，<=0 关闭限流
	Rps float64 `json:"rps"`
}

type Data struct {
	Database *Data_Database `json:"database"`
	Cache    *Data_Cache    `json:"cache"`
}

type Data_Database struct {
	Driver        string    `json:"driver"`
	Source        string    `json:"source"`
	Debug         bool      `json:"debug"`
	SlowThreshold *Duration `json:"slow_threshold"`
}

type Data_Cache struct {
	// 查询结果缓存时长，0 表示不缓存
	Ttl *Duration `json:"ttl"`
}

// Geo 覆盖查询策略的默认常量，零值表示使用内置默认值。
type Geo struct {
	DefaultRadius   float64 `json:"default_radius"`
	IntersectBuffer float64 `json:"intersect_buffer"`
	Limit           int     `json:"limit"`
}

// Duration 支持 "1s"、"500ms" 形式的配置，也接受以秒为单位的数字。
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		d.Duration = time.Duration(t * float64(time.Second))
		return nil
	case string:
		parsed, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("conf: invalid duration %q: %w", t, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("conf: invalid duration %s", string(b))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// AsDuration 与 durationpb 保持同名，nil 返回 0。
func (d *Duration) AsDuration() time.Duration {
	if d == nil {
		return 0
	}
	return d.Duration
}
