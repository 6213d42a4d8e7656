package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aniview/aniview/internal/bootstrap"
	"github.com/aniview/aniview/pkg/contextkeys"
)

func main() {
	rootCtx, cancelRootCtx := context.WithCancel(context.Background())
	defer cancelRootCtx()

	appCtx := context.WithValue(rootCtx, contextkeys.RequestIDKey, "app-main")

	app, cleanup, err := bootstrap.InitializeApp(appCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := app.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Application run failed: %v\n", err)
		os.Exit(1)
	}
}
