package health

import (
	"context"
	"time"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/kvstore"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/metrics"
)

var startTime = time.Now()

// Component 는 상태 구성 요소다.
type Component struct {
	Status string         `json:"status"`
	Detail map[string]any `json:"detail"`
}

// Response 는 상태 응답 본문이다.
type Response struct {
	Status     string               `json:"status"`
	Components map[string]Component `json:"components"`
}

// Collect 는 헬스 상태를 수집한다. deepChecks 가 켜지면 저장소에 실제 핑을 보낸다.
func Collect(ctx context.Context, cfg *config.Config, store *kvstore.Store, stats *metrics.Store, deepChecks bool) Response {
	components := make(map[string]Component)

	components["app"] = buildAppStatus(stats)
	components["store"] = buildStoreStatus(ctx, cfg, store, deepChecks)
	components["providers"] = buildProvidersStatus(cfg)

	overall := "ok"
	for _, component := range components {
		if component.Status != "ok" {
			overall = "degraded"
			break
		}
	}

	return Response{
		Status:     overall,
		Components: components,
	}
}

func buildAppStatus(stats *metrics.Store) Component {
	detail := map[string]any{
		"uptime_seconds": int(time.Since(startTime).Seconds()),
	}
	if stats != nil {
		detail["provider_calls"] = stats.Snapshot()
	}
	return Component{
		Status: "ok",
		Detail: detail,
	}
}

func buildStoreStatus(ctx context.Context, cfg *config.Config, store *kvstore.Store, deepChecks bool) Component {
	storeEnabled := false
	storeURL := ""
	if cfg != nil {
		storeEnabled = cfg.Store.Enabled
		storeURL = cfg.Store.URL
	}
	if ctx == nil {
		ctx = context.Background()
	}

	backend := "memory"
	if storeEnabled {
		backend = "valkey"
	}

	reachable := !storeEnabled
	pingErr := ""
	if storeEnabled && deepChecks && store != nil {
		checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()

		if err := store.Ping(checkCtx); err != nil {
			pingErr = err.Error()
		} else {
			reachable = true
		}
	} else if storeEnabled {
		// shallow 검사는 연결 상태를 가정한다. 기동 시 접속 실패는 이미 로그에 남는다.
		reachable = store != nil && store.IsEnabled()
	}

	status := "ok"
	if storeEnabled && !reachable {
		status = "degraded"
	}

	detail := map[string]any{
		"store_enabled":   storeEnabled,
		"store_connected": reachable,
		"backend":         backend,
		"store_url":       storeURL,
		"deep_checked":    deepChecks,
	}
	if pingErr != "" {
		detail["ping_error"] = pingErr
	}

	return Component{
		Status: status,
		Detail: detail,
	}
}

func buildProvidersStatus(cfg *config.Config) Component {
	names := []string{}
	keyed := 0
	if cfg != nil {
		for _, entry := range cfg.Providers.Entries {
			names = append(names, entry.Name)
			if entry.Key() != "" {
				keyed++
			}
		}
	}

	status := "ok"
	if len(names) == 0 || keyed == 0 {
		status = "degraded"
	}

	return Component{
		Status: status,
		Detail: map[string]any{
			"configured":   names,
			"keyed_count":  keyed,
			"total_count":  len(names),
			"order_source": "config",
		},
	}
}
