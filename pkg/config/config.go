package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPPort        string        `envconfig:"HTTP_PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	StorageBackend string        `envconfig:"STORAGE_BACKEND" default:"redis"` // redis | mongo | memory
	CartTTL        time.Duration `envconfig:"CART_TTL" default:"2160h"`        // 90 days

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DB_NAME" default:"teashop"`

	CatalogBaseURL string `envconfig:"CATALOG_BASE_URL" default:"http://localhost:5000"`
	OrdersBaseURL  string `envconfig:"ORDERS_BASE_URL" default:"http://localhost:5001"`

	FreeShippingThreshold float64 `envconfig:"FREE_SHIPPING_THRESHOLD" default:"100.00"`
	FlatShippingFee       float64 `envconfig:"FLAT_SHIPPING_FEE" default:"10.00"`
	TaxRate               float64 `envconfig:"TAX_RATE" default:"0.15"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
