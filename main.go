package main

import (
	"context"
	"embed"
	"log"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"querydesk/internal/app"
	"querydesk/internal/config"
	"querydesk/internal/logger"
)

var Version string = "0.1.0"

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfg, err := config.Load("", nil)
	if err != nil {
		log.Fatal(err)
	}
	zl := logger.New(cfg.LogJSON, cfg.LogLevel)
	defer func() { _ = zl.Sync() }()

	svc, err := app.Open(context.Background(), cfg, zl)
	if err != nil {
		zl.Fatalw("open backend", "error", err)
	}

	a := app.NewApp(Version, svc)
	err = wails.Run(&options.App{
		Title:  "QueryDesk",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 0x1e, G: 0x1e, B: 0x2e, A: 0xff},
		OnStartup:        a.Startup,
		OnShutdown:       a.Shutdown,
		Bind: []interface{}{
			a,
		},
	})
	if err != nil {
		zl.Fatalw("run", "error", err)
	}
}
