package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Host       string     `koanf:"host"`
	Port       int        `koanf:"port"`
	Frontend   Frontend   `koanf:"frontend"`
	Google     Google     `koanf:"google"`
	Database   Database   `koanf:"db"`
	Allocation Allocation `koanf:"allocation"`
	Session    Session    `koanf:"session"`
}

type Frontend struct {
	Enabled bool `koanf:"enabled"`
	// Origins lists frontends, besides Host, that a login may return to.
	Origins []string `koanf:"origins"`
}

type Google struct {
	ClientId     string `koanf:"clientid"`
	ClientSecret string `koanf:"clientsecret"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Allocation struct {
	// WeeklyLimit is the cross-project hour cap per user and week.
	WeeklyLimit int `koanf:"weeklylimit"`
	// CheckUrl points at a remote check-overallocation endpoint. Empty means the local checker is authoritative.
	CheckUrl string `koanf:"checkurl"`
	// CheckTimeoutSec bounds a single remote check call.
	CheckTimeoutSec int `koanf:"checktimeout"`
}

func (a Allocation) CheckTimeout() time.Duration {
	return time.Duration(a.CheckTimeoutSec) * time.Second
}

type Session struct {
	TtlHours int `koanf:"ttlhours"`
}

func (s Session) Ttl() time.Duration {
	return time.Duration(s.TtlHours) * time.Hour
}

func Defaults() Application {
	return Application{
		Host: "http://localhost:3000",
		Port: 8181,
		Frontend: Frontend{
			Enabled: true,
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "tppms",
			Pass:   "",
			Name:   "tppms",
			Schema: "tppms",
		},
		Allocation: Allocation{
			WeeklyLimit:     40,
			CheckUrl:        "",
			CheckTimeoutSec: 5,
		},
		Session: Session{
			TtlHours: 24,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "TPPMS_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "TPPMS_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
