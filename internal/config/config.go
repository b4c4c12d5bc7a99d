package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const EnvConfigFile = "LETTERS_CONFIG"

// Cfg holds the runtime configuration. Values come from, in increasing
// precedence: built-in defaults, the TOML file named by LETTERS_CONFIG, and
// environment variables (a .env file in the working directory is loaded
// into the environment first).
type Cfg struct {
	Port string `toml:"port"` // PORT

	// Model
	Backend      string `toml:"backend"`       // MODEL_BACKEND: onnx | static
	ModelPath    string `toml:"model_path"`    // MODEL_PATH
	MetadataPath string `toml:"metadata_path"` // METADATA_PATH
	RuntimeLib   string `toml:"runtime_lib"`   // ONNXRUNTIME_LIB, empty uses the loader default
	AllowReload  bool   `toml:"allow_reload"`  // ALLOW_RELOAD

	// HTTP
	StaticDir    string   `toml:"static_dir"`     // STATIC_DIR
	CorsOrigins  []string `toml:"cors_origins"`   // CORS_ORIGINS, comma separated
	MaxUploadMB  int      `toml:"max_upload_mb"`  // MAX_UPLOAD_MB
	MaxImageSide int      `toml:"max_image_side"` // MAX_IMAGE_SIDE, pixels per side
	BatchLimit   int      `toml:"batch_limit"`    // BATCH_LIMIT
	BatchWorkers int      `toml:"batch_workers"`  // BATCH_WORKERS

	// Logging
	LogLevel  string `toml:"log_level"`  // LOG_LEVEL
	LogPretty bool   `toml:"log_pretty"` // LOG_PRETTY
}

func Default() Cfg {
	return Cfg{
		Port:         "10000",
		Backend:      "onnx",
		ModelPath:    "models/az_letters_model.onnx",
		MetadataPath: "models/az_letters_metadata.json",
		CorsOrigins:  []string{"*"},
		MaxUploadMB:  10,
		MaxImageSide: 4096,
		BatchLimit:   64,
		BatchWorkers: 4,
		LogLevel:     "info",
	}
}

// Load reads .env (if present), the optional TOML file, then the environment.
func Load() (*Cfg, error) {
	// Best-effort: load .env from current directory
	_ = godotenv.Load()

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Cfg) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Cfg) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.Backend, "MODEL_BACKEND")
	setString(&cfg.ModelPath, "MODEL_PATH")
	setString(&cfg.MetadataPath, "METADATA_PATH")
	setString(&cfg.RuntimeLib, "ONNXRUNTIME_LIB")
	setString(&cfg.StaticDir, "STATIC_DIR")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	if raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); raw != "" {
		var origins []string
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CorsOrigins = origins
	}

	for key, dst := range map[string]*bool{
		"ALLOW_RELOAD": &cfg.AllowReload,
		"LOG_PRETTY":   &cfg.LogPretty,
	} {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			continue
		}
		*dst = raw == "1" || strings.EqualFold(raw, "true")
	}

	for key, dst := range map[string]*int{
		"MAX_UPLOAD_MB":  &cfg.MaxUploadMB,
		"MAX_IMAGE_SIDE": &cfg.MaxImageSide,
		"BATCH_LIMIT":    &cfg.BatchLimit,
		"BATCH_WORKERS":  &cfg.BatchWorkers,
	} {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", key, raw)
		}
		*dst = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Cfg) Validate() error {
	switch c.Backend {
	case "onnx":
		if c.ModelPath == "" {
			return fmt.Errorf("model_path is required for the onnx backend")
		}
	case "static":
	default:
		return fmt.Errorf("unknown model backend %q", c.Backend)
	}
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB)
	}
	if c.MaxImageSide <= 0 {
		return fmt.Errorf("max_image_side must be positive, got %d", c.MaxImageSide)
	}
	if c.BatchLimit <= 0 {
		return fmt.Errorf("batch_limit must be positive, got %d", c.BatchLimit)
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("batch_workers must be positive, got %d", c.BatchWorkers)
	}
	return nil
}

// ListenAddr is the address passed to the HTTP server.
func (c *Cfg) ListenAddr() string {
	return ":" + c.Port
}

func (c *Cfg) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
