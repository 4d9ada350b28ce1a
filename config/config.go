package config

// Config contains all application settings
type Config struct {
	BindPort      int    `mapstructure:"PORT" yaml:"port"`
	BindHost      string `mapstructure:"HOST" yaml:"host"`
	DatabaseURL   string `mapstructure:"DATABASE_URL" yaml:"database_url"`
	NATSServerURL string `mapstructure:"NATS_URL" yaml:"nats_url"`
	JWTSecret     string `mapstructure:"JWT_SECRET" yaml:"jwt_secret"`

	// Call signaling settings, both in seconds. A ringing call older than
	// RingTimeout is reclaimed by the sweeper which runs every SweepInterval.
	RingTimeout   int `mapstructure:"RING_TIMEOUT" yaml:"ring_timeout"`
	SweepInterval int `mapstructure:"SWEEP_INTERVAL" yaml:"sweep_interval"`

	// Version
	BuildVersion string `yaml:"-"`
	BuildHash    string `yaml:"-"`
	BuildTime    string `yaml:"-"`
}
