package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/mailseal/internal/client/cli"
	"github.com/dmitrijs2005/mailseal/internal/client/config"
)

func main() {

	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}

}
