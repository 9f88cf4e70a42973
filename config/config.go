// Package config centralizes the tunable parameters of the arena server.
// Defaults live here; Load applies .env and environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalidValue is returned when an environment override cannot be parsed.
var ErrInvalidValue = errors.New("invalid config value")

// SnakeConfig tunes creature kinematics and growth.
type SnakeConfig struct {
	BaseSpeed       float64 // units per second
	Radius          float64
	BoostMultiplier float64
	SegmentSpacing  float64
	TurnRate        float64 // radians per second
	InitialSegments int
	MaxSegments     int
	SpawnDelay      time.Duration // no movement or steering until this elapses
}

// FoodConfig tunes pellet population.
type FoodConfig struct {
	Radius          float64
	TargetCount     int
	PerTickSpawnMax int
	DeathDropMax    int // pellets left behind by a body-collision death
	Colors          []int
}

// UpdateRates are the broadcast divisors per distance band: a session is sent
// an update every N ticks.
type UpdateRates struct {
	VeryClose int
	Close     int
	Medium    int
	Far       int
	VeryFar   int
}

// DistanceBands are the upper bounds of each update-rate band.
type DistanceBands struct {
	VeryClose float64
	Close     float64
	Medium    float64
	Far       float64
}

// TailSubsampling reduces body detail for creatures far from the observer.
type TailSubsampling struct {
	Enabled         bool
	NearDistance    float64
	MediumDistance  float64
	FarDistance     float64
	NearSegments    int
	MediumSegments  int
	FarSegments     int
	VeryFarSegments int
}

// NetworkConfig tunes synchronization and transport.
type NetworkConfig struct {
	Codec                 string // "msgpack" or "json"
	MaxMessageSize        int64
	HeartbeatInterval     time.Duration
	WriteWait             time.Duration
	SendQueueSize         int
	InputRateLimit        float64 // inputs per second, also the burst size
	ViewRadius            float64
	BackpressureBytes     int
	BackpressureThreshold float64 // fraction of BackpressureBytes
	DeltaEpsilon          float64
	UpdateRates           UpdateRates
	Distances             DistanceBands
	Tail                  TailSubsampling
}

// Config holds every parameter of a server instance.
type Config struct {
	Host            string
	Port            string
	LogLevel        string
	TickPeriod      time.Duration
	MaxCatchupTicks int
	WorldWidth      float64
	WorldHeight     float64
	GridCellSize    float64
	BotCount        int
	Snake           SnakeConfig
	Food            FoodConfig
	Network         NetworkConfig
}

// Default returns the production defaults.
func Default() Config {
	return Config{
		Host:            "",
		Port:            "8080",
		LogLevel:        "info",
		TickPeriod:      30 * time.Millisecond,
		MaxCatchupTicks: 5,
		WorldWidth:      3000,
		WorldHeight:     3000,
		GridCellSize:    64,
		BotCount:        50,
		Snake: SnakeConfig{
			BaseSpeed:       120,
			Radius:          14,
			BoostMultiplier: 2,
			SegmentSpacing:  2,
			TurnRate:        math.Pi * 1.5,
			InitialSegments: 20,
			MaxSegments:     2000,
			SpawnDelay:      time.Second,
		},
		Food: FoodConfig{
			Radius:          3,
			TargetCount:     600,
			PerTickSpawnMax: 10,
			DeathDropMax:    10,
			Colors: []int{
				0xff0000, 0x00ff00, 0x0000ff, 0xffff00, 0xff00ff,
				0x00ffff, 0xff8000, 0x8000ff, 0xff0080, 0x80ff00,
			},
		},
		Network: NetworkConfig{
			Codec:                 "msgpack",
			MaxMessageSize:        64 * 1024,
			HeartbeatInterval:     5 * time.Second,
			WriteWait:             5 * time.Second,
			SendQueueSize:         256,
			InputRateLimit:        40,
			ViewRadius:            600,
			BackpressureBytes:     256 * 1024,
			BackpressureThreshold: 0.8,
			DeltaEpsilon:          0.1,
			UpdateRates: UpdateRates{
				VeryClose: 1,
				Close:     1,
				Medium:    2,
				Far:       4,
				VeryFar:   8,
			},
			Distances: DistanceBands{
				VeryClose: 225,
				Close:     450,
				Medium:    900,
				Far:       1200,
			},
			Tail: TailSubsampling{
				Enabled:         true,
				NearDistance:    300,
				MediumDistance:  600,
				FarDistance:     900,
				NearSegments:    999,
				MediumSegments:  30,
				FarSegments:     15,
				VeryFarSegments: 10,
			},
		},
	}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Load reads the given .env files (or ./.env when none are given) and applies
// environment overrides to Default. A missing .env file is not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := Default()
	cfg.Host = GetEnv("HOST", cfg.Host)
	cfg.Port = GetEnv("PORT", cfg.Port)
	cfg.LogLevel = strings.ToLower(GetEnv("LOG_LEVEL", cfg.LogLevel))

	tickMs, err := getEnvInt("TICK_MS", int(cfg.TickPeriod/time.Millisecond))
	if err != nil {
		return Config{}, err
	}
	if tickMs <= 0 {
		return Config{}, fmt.Errorf("TICK_MS=%d: %w", tickMs, ErrInvalidValue)
	}
	cfg.TickPeriod = time.Duration(tickMs) * time.Millisecond

	if cfg.WorldWidth, err = getEnvFloat("WORLD_WIDTH", cfg.WorldWidth); err != nil {
		return Config{}, err
	}
	if cfg.WorldHeight, err = getEnvFloat("WORLD_HEIGHT", cfg.WorldHeight); err != nil {
		return Config{}, err
	}
	if cfg.WorldWidth <= 0 || cfg.WorldHeight <= 0 {
		return Config{}, fmt.Errorf("world %vx%v: %w", cfg.WorldWidth, cfg.WorldHeight, ErrInvalidValue)
	}
	if cfg.BotCount, err = getEnvInt("BOT_COUNT", cfg.BotCount); err != nil {
		return Config{}, err
	}
	if cfg.Food.TargetCount, err = getEnvInt("FOOD_TARGET", cfg.Food.TargetCount); err != nil {
		return Config{}, err
	}
	if cfg.Network.ViewRadius, err = getEnvFloat("VIEW_RADIUS", cfg.Network.ViewRadius); err != nil {
		return Config{}, err
	}

	cfg.Network.Codec = strings.ToLower(GetEnv("CODEC", cfg.Network.Codec))
	switch cfg.Network.Codec {
	case "msgpack", "json":
	default:
		return Config{}, fmt.Errorf("CODEC=%q: %w", cfg.Network.Codec, ErrInvalidValue)
	}

	return cfg, nil
}

// GetEnv returns the value of the environment variable named by the key,
// or fallback if the variable is not set.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", key, raw, ErrInvalidValue)
	}
	return v, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s=%q: %w", key, raw, ErrInvalidValue)
	}
	return v, nil
}
