package container

import (
	"retroboard/internal/broadcast"
	"retroboard/internal/config"
	"retroboard/internal/service"
	"retroboard/internal/service/gif"
	"retroboard/pkg/logger"
	"retroboard/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	RedisClient *redis.Client
	Broadcaster broadcast.Broadcaster
	Services    *service.Services
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *logger.Logger) (*Container, error) {
	// Initialize Redis client if Redis URL is configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, falling back to in-process broadcast")
		} else {
			redisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Info("Redis URL not configured, using in-process broadcast")
	}

	// Select the broadcast transport: Redis Pub/Sub when a broker is
	// available, the in-process hub otherwise.
	var broadcaster broadcast.Broadcaster
	if redisClient != nil {
		broadcaster = broadcast.NewRedisBroadcaster(redisClient, logger.Logger)
	} else {
		broadcaster = broadcast.NewMemoryBroadcaster(logger.Logger)
	}

	// Initialize services
	gifService := gif.NewService(cfg.TenorAPIKey, logger)

	services := &service.Services{
		Gif: gifService,
	}

	return &Container{
		Config:      cfg,
		Logger:      logger,
		RedisClient: redisClient,
		Broadcaster: broadcaster,
		Services:    services,
	}, nil
}

// Close releases resources held by the container
func (c *Container) Close() error {
	if c.RedisClient != nil {
		return c.RedisClient.Close()
	}
	return nil
}

// GetGifService returns the GIF proxy service
func (c *Container) GetGifService() service.GifService {
	return c.Services.Gif
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// GetBroadcaster returns the snapshot broadcaster
func (c *Container) GetBroadcaster() broadcast.Broadcaster {
	return c.Broadcaster
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
