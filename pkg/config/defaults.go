package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "tripdesk"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLeadsPageSize = 20
	MaxLeadsPageSize     = 100

	// Leads with no activity for this long are swept to the stale stage.
	DefaultStaleThreshold = 7 * 24 * time.Hour

	DefaultSMTPPort  = 587
	DefaultEmailFrom = "no-reply@tripdesk.example"

	DefaultKafkaLeadEventsTopic = "lead-events"
)
