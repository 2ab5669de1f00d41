package main

import (
	"context"
	"log"

	"github.com/philipmoss2002/life-app-sub008/internal/app"
	"github.com/philipmoss2002/life-app-sub008/internal/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	a.Run(ctx)

}
