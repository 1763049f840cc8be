package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	Redis       Redis         `yaml:"redis"`
	Server      Server        `yaml:"server"`
	Providers   Providers     `yaml:"providers"`
	TTS         TTS           `yaml:"tts"`
	FFmpeg      FFmpeg        `yaml:"ffmpeg"`
	Render      Render        `yaml:"render"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Provider holds the per-vendor endpoint and its hard duration limits.
// RequestDelay is the throttle between consecutive submits to the vendor.
type Provider struct {
	Endpoint     string        `yaml:"endpoint"`
	APIKey       string        `yaml:"api_key"`
	MinSeconds   float64       `yaml:"min_seconds"`
	MaxSeconds   float64       `yaml:"max_seconds"`
	RequestDelay time.Duration `yaml:"request_delay"`
}

type Providers struct {
	Veo3 Provider `yaml:"veo3"`
	XAI  Provider `yaml:"xai"`
}

type TTS struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Voice    string `yaml:"voice"`
}

type FFmpeg struct {
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
}

// Render controls the polling cadence for clip generation. The
// orchestrator has no internal timer; the job drivers tick it with
// these values.
type Render struct {
	TargetClipSeconds float64       `yaml:"target_clip_seconds"`
	AspectRatio       string        `yaml:"aspect_ratio"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	MaxPollTicks      int           `yaml:"max_poll_ticks"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host: viper.GetString("rabbitmq_host"),
		Port: viper.GetInt("rabbitmq_port"),
		User: viper.GetString("rabbitmq_user"),
		Pass: viper.GetString("rabbitmq_pass"),
		Kind: viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		Redis: Redis{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Providers: Providers{
			Veo3: Provider{
				Endpoint:     viper.GetString("providers.veo3.endpoint"),
				APIKey:       viper.GetString("providers.veo3.api_key"),
				MinSeconds:   viper.GetFloat64("providers.veo3.min_seconds"),
				MaxSeconds:   viper.GetFloat64("providers.veo3.max_seconds"),
				RequestDelay: viper.GetDuration("providers.veo3.request_delay"),
			},
			XAI: Provider{
				Endpoint:     viper.GetString("providers.xai.endpoint"),
				APIKey:       viper.GetString("providers.xai.api_key"),
				MinSeconds:   viper.GetFloat64("providers.xai.min_seconds"),
				MaxSeconds:   viper.GetFloat64("providers.xai.max_seconds"),
				RequestDelay: viper.GetDuration("providers.xai.request_delay"),
			},
		},
		TTS: TTS{
			Endpoint: viper.GetString("tts.endpoint"),
			APIKey:   viper.GetString("tts.api_key"),
			Voice:    viper.GetString("tts.voice"),
		},
		FFmpeg: FFmpeg{
			FFmpegPath:  viper.GetString("ffmpeg.ffmpeg_path"),
			FFprobePath: viper.GetString("ffmpeg.ffprobe_path"),
		},
		Render: Render{
			TargetClipSeconds: viper.GetFloat64("render.target_clip_seconds"),
			AspectRatio:       viper.GetString("render.aspect_ratio"),
			PollInterval:      viper.GetDuration("render.poll_interval"),
			MaxPollTicks:      viper.GetInt("render.max_poll_ticks"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
	}, nil
}
