package main

import (
	"log"

	"github.com/kosma/geocatalog/internal/app"
	"github.com/kosma/geocatalog/internal/config"
)

func main() {
	realMain()
}

func realMain() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalln("failed to load config: ", err)
	}

	app.Run(cfg)
}
