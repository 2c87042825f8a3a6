package config

type Postgres struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	DB       string `koanf:"db"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"ssl_mode"`
}

type HttpServer struct {
	Address string `koanf:"address"`
}

type NATS struct {
	URL string `koanf:"url"`
}

type Redis struct {
	Address string `koanf:"address"`
}

// IspService is the base address of another back-office service this
// service calls over HTTP.
type IspService struct {
	BaseURL string `koanf:"base_url"`
}
