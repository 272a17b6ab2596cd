package config

import (
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type AppConfig struct {
	ServiceName string `mapstructure:"service_name" validate:"required"`
	Port        string `mapstructure:"port" validate:"required"`
	LogLevel    string `mapstructure:"log_level" validate:"required"`

	Interview InterviewConfig `mapstructure:"interview" validate:"required"`
	Client    ClientConfig    `mapstructure:"client" validate:"required"`
	GCP       GCPConfig       `mapstructure:"gcp"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Stores    StoreConfig     `mapstructure:",squash"`
	Worker    WorkerConfig    `mapstructure:"worker" validate:"required"`
}

// InterviewConfig holds the session level knobs shared by the run loop and the service.
type InterviewConfig struct {
	MaxQuestions        int    `mapstructure:"max_questions" validate:"min=1,max=50"`
	ReadSeconds         int    `mapstructure:"read_seconds" validate:"min=1"`
	FollowUpCueSeconds  int    `mapstructure:"follow_up_cue_seconds" validate:"min=0"`
	AnswerBudgetSeconds int    `mapstructure:"answer_budget_seconds" validate:"min=0"`
	Language            string `mapstructure:"language" validate:"required"`
}

func (c InterviewConfig) ReadDuration() time.Duration {
	return time.Duration(c.ReadSeconds) * time.Second
}

func (c InterviewConfig) FollowUpCueDuration() time.Duration {
	return time.Duration(c.FollowUpCueSeconds) * time.Second
}

// ClientConfig is what the interview CLI needs to reach the interview service.
type ClientConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"required,url"`
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"min=1"`
	VideoDevice    string `mapstructure:"video_device"`
	AudioDevice    string `mapstructure:"audio_device"`
}

func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type GCPConfig struct {
	ProjectID     string `mapstructure:"project_id"`
	Location      string `mapstructure:"location"`
	ModelName     string `mapstructure:"model_name"`
	Bucket        string `mapstructure:"bucket"`
	STTEncoding   string `mapstructure:"stt_encoding"`
	STTSampleRate int    `mapstructure:"stt_sample_rate"`
	TTSVoice      string `mapstructure:"tts_voice"`
	DisableTTS    bool   `mapstructure:"disable_tts"`
}

// AuthConfig verifies caller tokens on the server. Issuer and Audience are optional.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

// StoreConfig keeps the flat env names used in deployments (MONGO_URI, POSTGRES_URI,
// REDIS_ADDR). Only the server needs them, so emptiness is checked at connect time.
type StoreConfig struct {
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDB       string `mapstructure:"mongo_db"`
	MongoTLS12    bool   `mapstructure:"mongo_force_tls12"`
	PostgresURI   string `mapstructure:"postgres_uri"`
	PostgresConns int    `mapstructure:"postgres_max_conns" validate:"min=1"`
	RedisAddr     string `mapstructure:"redis_addr"`
}

type WorkerConfig struct {
	NumWorkers int    `mapstructure:"num_workers" validate:"min=1"`
	Stream     string `mapstructure:"stream" validate:"required"`
	Group      string `mapstructure:"group" validate:"required"`
}

// InitConfig reads .env (or ENV_PATH) and the environment. Nested keys use "__",
// e.g. INTERVIEW__MAX_QUESTIONS.
func InitConfig() (*viper.Viper, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("__"))

	v.AddConfigPath(".")
	v.SetConfigName(".env")
	if path := os.Getenv("ENV_PATH"); path != "" {
		log.Printf("env path %v", path)
		v.SetConfigFile(path)
	}
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDefault(v)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, err
		}
	}
	return v, nil
}

// Every key needs a default, otherwise Unmarshal never looks at the environment.
func setDefault(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "mockinterview")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("INTERVIEW__MAX_QUESTIONS", 5)
	v.SetDefault("INTERVIEW__READ_SECONDS", 10)
	v.SetDefault("INTERVIEW__FOLLOW_UP_CUE_SECONDS", 2)
	v.SetDefault("INTERVIEW__ANSWER_BUDGET_SECONDS", 300)
	v.SetDefault("INTERVIEW__LANGUAGE", "en")

	v.SetDefault("CLIENT__BASE_URL", "http://localhost:8080")
	v.SetDefault("CLIENT__TOKEN", "")
	v.SetDefault("CLIENT__TIMEOUT_SECONDS", 60)
	v.SetDefault("CLIENT__VIDEO_DEVICE", "/dev/video0")
	v.SetDefault("CLIENT__AUDIO_DEVICE", "default")

	v.SetDefault("GCP__PROJECT_ID", "")
	v.SetDefault("GCP__LOCATION", "us-central1")
	v.SetDefault("GCP__MODEL_NAME", "gemini-1.5-flash")
	v.SetDefault("GCP__BUCKET", "")
	v.SetDefault("GCP__STT_ENCODING", "WEBM_OPUS")
	v.SetDefault("GCP__STT_SAMPLE_RATE", 48000)
	v.SetDefault("GCP__TTS_VOICE", "en-US-Neural2-F")
	v.SetDefault("GCP__DISABLE_TTS", false)

	v.SetDefault("AUTH__JWT_SECRET", "")
	v.SetDefault("AUTH__ISSUER", "")
	v.SetDefault("AUTH__AUDIENCE", "")

	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DB", "mockinterview")
	v.SetDefault("MONGO_FORCE_TLS12", false)
	v.SetDefault("POSTGRES_URI", "")
	v.SetDefault("POSTGRES_MAX_CONNS", 20)
	v.SetDefault("REDIS_ADDR", "")

	v.SetDefault("WORKER__NUM_WORKERS", 3)
	v.SetDefault("WORKER__STREAM", "answer:stream")
	v.SetDefault("WORKER__GROUP", "feedback-workers")
}

func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is InitConfig followed by GetApplicationConfig.
func Load() (*AppConfig, error) {
	v, err := InitConfig()
	if err != nil {
		return nil, err
	}
	return GetApplicationConfig(v)
}
