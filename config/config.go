package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Deployment modes for conversation persistence.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

type Config struct {
	Debug                    bool     `envconfig:"debug"`
	Port                     int      `envconfig:"port" default:"8000"`
	Env                      string   `envconfig:"env"`
	Mode                     string   `envconfig:"mode" default:"local"`
	DatabasePath             string   `envconfig:"database_path" default:"memorybox.db"`
	RemoteAPIURL             string   `envconfig:"remote_api_url" default:"http://localhost:8001"`
	OCRServiceURL            string   `envconfig:"ocr_service_url" default:"http://localhost:8001"`
	Categories               []string `envconfig:"categories" default:"Friends,Family,Work,Relationship,Group Chats,Other"`
	SelfSenders              []string `envconfig:"self_senders" default:"You,Me"`
	PreviewDir               string   `envconfig:"preview_dir" default:"./media/previews"`
	WebDir                   string   `envconfig:"web_dir" default:"./web"`
	AccessControlAllowOrigin string   `envconfig:"access_control_allow_origin"`
}

func Load() (*Config, error) {
	env := os.Getenv("GIN_MODE")
	if env != "release" {
		if err := godotenv.Load("./.env"); err != nil {
			log.Printf("couldn't load env vars: %v", err)
		}
	}

	c := &Config{}
	err := envconfig.Process("memorybox", c)
	if err != nil {
		return nil, err
	}
	return c, nil
}
