// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ffutop/modbus-adu/modbus/field"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config defines the global configuration structure
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Serial  SerialConfig  `mapstructure:"serial"`
	Frame   FrameConfig   `mapstructure:"frame"`
	Capture CaptureConfig `mapstructure:"capture"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// SerialConfig defines RTU settings
type SerialConfig struct {
	Device      string        `mapstructure:"device"`
	BaudRate    int           `mapstructure:"baud_rate"`
	DataBits    int           `mapstructure:"data_bits"`
	Parity      string        `mapstructure:"parity"`
	StopBits    int           `mapstructure:"stop_bits"`
	Timeout     time.Duration `mapstructure:"timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"` // Close the port after this long without traffic

	// RS485 specific
	RS485              bool          `mapstructure:"rs485"`
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`
}

// FrameConfig holds defaults for frames built on the command line.
type FrameConfig struct {
	Station   uint8  `mapstructure:"station"`
	ByteOrder string `mapstructure:"byte_order"` // "big" or "little"
}

// CaptureConfig names the file exchanged frames are appended to. Empty
// disables capturing.
type CaptureConfig struct {
	Path string `mapstructure:"path"`
}

// Order returns the byte order named by ByteOrder.
func (f FrameConfig) Order() (binary.ByteOrder, error) {
	return ParseByteOrder(f.ByteOrder)
}

// ParseByteOrder maps "big" and "little" to the remote byte order presets.
func ParseByteOrder(name string) (binary.ByteOrder, error) {
	switch strings.ToLower(name) {
	case "", "big", "be":
		return field.RemoteBigEndian, nil
	case "little", "le":
		return field.RemoteLittleEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte order %q", name)
	}
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-file":     "log.file",
	"device":       "serial.device",
	"baud-rate":    "serial.baud_rate",
	"data-bits":    "serial.data_bits",
	"parity":       "serial.parity",
	"stop-bits":    "serial.stop_bits",
	"timeout":      "serial.timeout",
	"station":      "frame.station",
	"byte-order":   "frame.byte_order",
	"capture-file": "capture.path",
}

// LoadConfig loads configuration from file. A missing config.yaml in the
// default locations is not an error; an explicitly named file must exist.
// Flags present in flags override file values.
func LoadConfig(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/mbframe/")
		v.AddConfigPath("$HOME/.mbframe")
		v.AddConfigPath(".")
	}

	// Set defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("serial.device", "/dev/ttyUSB0")
	v.SetDefault("serial.baud_rate", 19200)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.parity", "E")
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.timeout", 500*time.Millisecond)
	v.SetDefault("serial.idle_timeout", 60*time.Second)
	v.SetDefault("frame.station", 1)
	v.SetDefault("frame.byte_order", "big")

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate / Fixups
	fixupSerial(&config.Serial)
	if _, err := config.Frame.Order(); err != nil {
		return nil, fmt.Errorf("invalid frame.byte_order: %w", err)
	}

	return &config, nil
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.Timeout == 0 {
		s.Timeout = 500 * time.Millisecond
	}
}
