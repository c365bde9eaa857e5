package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/EdenYYT/RapidGMPE/internal/adapter/geotiff"
	"github.com/EdenYYT/RapidGMPE/internal/cli"
	"github.com/EdenYYT/RapidGMPE/internal/observability"
)

func main() {
	_ = godotenv.Load()

	logger := observability.NewLogger("warn", "text", os.Stderr)
	os.Exit(cli.Execute(context.Background(), cli.Deps{
		Opener: geotiff.NewOpener(logger),
		Writer: geotiff.NewWriter(),
	}))
}
