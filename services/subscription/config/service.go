package config

import "github.com/ispadmin-io/ispadmin/pkg/config"

type SubscriptionConfig struct {
	Postgres    config.Postgres   `koanf:"postgres"`
	Http        config.HttpServer `koanf:"http"`
	NATS        config.NATS       `koanf:"nats"`
	Redis       config.Redis      `koanf:"redis"`
	RouterAgent config.IspService `koanf:"router_agent"`
}
