package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

// reading config error is fatal, and exists main thread
func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

func readFile(path string, cfg *Configuration) {
	f, err := os.Open(path)
	if err != nil {
		processError(err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		processError(err)
	}
}

func readEnv(cfg *Configuration) {
	err := envconfig.Process("", cfg)
	if err != nil {
		processError(err)
	}
}

func setDefaults(cfg *Configuration) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.LogDir == "" {
		cfg.Server.LogDir = "logs"
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "xrpl.prover"
	}
	if cfg.ProofRelayInterval == 0 {
		cfg.ProofRelayInterval = 3 * time.Second
	}
}

func Init() {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yml"
	}
	readFile(path, &Config)
	readEnv(&Config)
	setDefaults(&Config)
}
