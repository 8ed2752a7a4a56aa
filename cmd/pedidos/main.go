package main

import (
	"context"
	"time"

	"github.com/nicolasbarcena/KazaroPedidos/config"
	"github.com/nicolasbarcena/KazaroPedidos/internal/app"
	"github.com/nicolasbarcena/KazaroPedidos/pkg/sigctx"
)

const closeTimeout = 5 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	pedidosService := app.New(sigCtx, cfg)

	pedidosService.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	pedidosService.Close(ctx)
}
