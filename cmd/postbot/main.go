package main

import (
	"log"

	"github.com/m3rciful/postbot/app"
	"github.com/m3rciful/postbot/config"
	corecmd "github.com/m3rciful/postbot/core/cmd"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.Bootstrap(carrier.(*config.Config))
		},
	})
	if err != nil {
		log.Fatalf("postbot: %v", err)
	}
}
