// Package env wires a machine, its drivers and the serial bridge from
// command line configuration.
package env

import (
	"flag"
	"os"
	"time"

	"github.com/robotalks/genlink/pkg/hw"
	"github.com/robotalks/genlink/pkg/serial"
)

// Config provides options to set up a machine and its link.
type Config struct {
	// Port is the serial port name, "ext" or "ctrl2".
	Port string
	// Interrupt selects interrupt driven receive.
	Interrupt bool
	// Overflow is the ring buffer overflow policy, "overwrite" or "reject".
	Overflow string
	// BufLen is the ring buffer size.
	BufLen int
	// Attempts bounds hardware polls, 0 polls forever.
	Attempts int
	// Interval is the main loop polling interval.
	Interval time.Duration

	// MMIO is the device file to map registers from. Empty simulates the machine.
	MMIO string
	// Loopback connects the simulated transmit line to the receive line.
	Loopback bool
	// Firmware is a Z80 program image uploaded at start.
	Firmware string

	// LinkURL selects the bridge transport, e.g.
	// mqtt://host:1883/prefix/, ws://host/path, tcp://host:port, tty:///dev/ttyUSB0
	LinkURL string
	// DeviceID names the device on the link.
	DeviceID string
}

var defaultConfig = Config{
	Port:      serial.IoPortExt.String(),
	Interrupt: true,
	Overflow:  serial.OverflowOverwrite.String(),
	BufLen:    serial.SerialBufLen,
	Attempts:  hw.Unbounded,
	Interval:  10 * time.Millisecond,
	LinkURL:   "mqtt://localhost:1883/genlink/",
}

func init() {
	if val := os.Getenv("GENLINK_LINK_URL"); val != "" {
		defaultConfig.LinkURL = val
	}
	if val := os.Getenv("GENLINK_MMIO"); val != "" {
		defaultConfig.MMIO = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port: ext or ctrl2.")
	flag.BoolVar(&defaultConfig.Interrupt, "irq", defaultConfig.Interrupt, "Interrupt driven receive.")
	flag.StringVar(&defaultConfig.Overflow, "overflow", defaultConfig.Overflow, "Ring buffer overflow policy: overwrite or reject.")
	flag.IntVar(&defaultConfig.BufLen, "buflen", defaultConfig.BufLen, "Ring buffer size.")
	flag.IntVar(&defaultConfig.Attempts, "attempts", defaultConfig.Attempts, "Hardware poll bound, 0 for unbounded.")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Main loop polling interval.")
	flag.StringVar(&defaultConfig.MMIO, "mmio", defaultConfig.MMIO, "Device file to map registers from, simulated if empty.")
	flag.BoolVar(&defaultConfig.Loopback, "loopback", defaultConfig.Loopback, "Loop simulated serial output back to input.")
	flag.StringVar(&defaultConfig.Firmware, "z80", defaultConfig.Firmware, "Z80 program image to upload.")
	flag.StringVar(&defaultConfig.LinkURL, "link", defaultConfig.LinkURL, "Bridge transport URL.")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID, machine ID by default.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	if conf.DeviceID == "" {
		conf.DeviceID = DeviceID()
	}
	return &conf
}

// SerialOptions converts the config into serial.Options.
func (c *Config) SerialOptions() (serial.PortID, serial.Options, error) {
	port, err := serial.ParsePort(c.Port)
	if err != nil {
		return 0, serial.Options{}, err
	}
	policy, err := serial.ParseOverflowPolicy(c.Overflow)
	if err != nil {
		return 0, serial.Options{}, err
	}
	return port, serial.Options{
		Interrupt: c.Interrupt,
		BufLen:    c.BufLen,
		Overflow:  policy,
		Attempts:  c.Attempts,
	}, nil
}
