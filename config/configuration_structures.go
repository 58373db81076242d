package config

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Local    bool   `yaml:"local"`
}

type JWTConfig struct {
	SecretKey string `yaml:"secret_key"`
}

type TTL struct {
	// S3AndRedis — срок жизни pre-signed URL и кэша документов, секунды
	S3AndRedis int `yaml:"s3_and_redis"`
}

type RoutingConfig struct {
	// NotifyQueuePrefix — префикс redis-очередей уведомлений
	NotifyQueuePrefix string `yaml:"notify_queue_prefix"`
}
