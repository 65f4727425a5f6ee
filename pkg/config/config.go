package config

import "time"

// Server defaults
const (
	DefaultPort        = "8080"
	ServerReadTimeout  = 15 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ShutdownTimeout    = 10 * time.Second
)

// Plot buffer sizing. Live buffers hold two hours of one-second samples;
// archive buffers hold those plus the widest binned backfill response.
const (
	DefaultLiveBufferSize    = 7200
	DefaultArchiveBufferSize = 18000
)

// Backfill request planning
const (
	DefaultOptimizedBins       = 2000
	DefaultRawThresholdSeconds = 86400
	DefaultRequestTimeout      = 30 * time.Second
)

// Archiver response cache
const (
	DefaultCacheTTL      = 24 * time.Hour
	CacheGCInterval      = 10 * time.Minute
	CacheGCDiscardRatio  = 0.5
	DefaultCacheInMemory = false
)

// Live update fan-out
const (
	BroadcastInterval = 1 * time.Second
)

// WebSocket configuration
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSBroadcastBuffer = 256
	WSChannelBuffer   = 10
	WSWriteDeadline   = 10 * time.Second
	WSReadDeadline    = 60 * time.Second
	WSPingInterval    = 30 * time.Second
	WSReconnectWait   = 5 * time.Second
)

// Export defaults and limits
const (
	DefaultExportFormat = "json"
)
