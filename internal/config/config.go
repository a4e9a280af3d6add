package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SPI selects the SPI port used by the "spi" and "nrz" drivers.
type SPI struct {
	Dev     string `yaml:"dev"`      // e.g. /dev/spidev0.0; empty picks the first port
	SpeedHz int    `yaml:"speed_hz"` // bit clock; 0 uses the driver default
}

// StatusLED configures the auxiliary connectivity indicator.
type StatusLED struct {
	Enabled bool   `yaml:"enabled"`
	GPIO    string `yaml:"gpio"` // pin for the onboard/status LED
	Chip    string `yaml:"chip"` // chip variant of that single LED
}

// Config is read once at boot. Changing the LED count or pins means a
// restart, not a runtime protocol.
type Config struct {
	Listen     string    `yaml:"listen"`      // UDP bind address for sACN
	LEDs       int       `yaml:"leds"`        // strip length
	Chip       string    `yaml:"chip"`        // ws2812 | ws2812b | sk6812
	ColorOrder string    `yaml:"color_order"` // wire order, usually GRB
	Driver     string    `yaml:"driver"`      // stream | spi | nrz | sim
	GPIO       string    `yaml:"gpio"`        // data pin for the "stream" driver
	SPI        SPI       `yaml:"spi,omitempty"`
	FPS        int       `yaml:"fps"`
	IdleColor  [3]uint8  `yaml:"idle_color"` // shown until the first packet
	HTTP       string    `yaml:"http"`       // preview/health listen addr; empty disables
	Status     StatusLED `yaml:"status"`
}

// Default mirrors the board this started on: 50 WS2812B pixels on GPIO9,
// onboard WS2812 status LED on GPIO8, idle dim cyan.
func Default() *Config {
	return &Config{
		Listen:     ":5568",
		LEDs:       50,
		Chip:       "ws2812b",
		ColorOrder: "GRB",
		Driver:     "sim",
		GPIO:       "GPIO9",
		FPS:        30,
		IdleColor:  [3]uint8{0, 33, 16},
		HTTP:       ":8080",
		Status: StatusLED{
			Enabled: true,
			GPIO:    "GPIO8",
			Chip:    "ws2812",
		},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the config back out.
func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) Validate() error {
	if c.LEDs <= 0 {
		return fmt.Errorf("leds must be positive, got %d", c.LEDs)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if len(c.ColorOrder) != 3 {
		return fmt.Errorf("color_order must name three channels, got %q", c.ColorOrder)
	}
	switch c.Driver {
	case "stream", "spi", "nrz", "sim":
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	return nil
}
