package main

import (
	"log"

	corecmd "github.com/m3rciful/voicebot/core/cmd"
	"github.com/m3rciful/voicebot/internal/config"
)

func main() {
	err := corecmd.Run(corecmd.Options[*config.Config]{
		DefaultConfigPath: "config.yaml",
		StopTimeout:       drainTimeout,
		LoadConfig:        config.Load,
		Bootstrap: func(cfg *config.Config) (corecmd.TelegramApp, error) {
			return newApp(cfg)
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
