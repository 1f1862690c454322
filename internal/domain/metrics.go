package domain

// MetricsSnapshot is an aggregate view of gateway activity for the
// GET /v1/metrics/gateway endpoint.
type MetricsSnapshot struct {
	TotalOperations   int64   `json:"total_operations"`
	ErrorRate         float64 `json:"error_rate"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	TokenRefreshes    int64   `json:"token_refreshes"`
	WebhookRejections int64   `json:"webhook_rejections"`
	Period            string  `json:"period"`
}
