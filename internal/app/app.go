package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/twmb/franz-go/pkg/sr"

	"github.com/nicolasbarcena/KazaroPedidos/config"
	"github.com/nicolasbarcena/KazaroPedidos/internal/adapter/emailer"
	"github.com/nicolasbarcena/KazaroPedidos/internal/adapter/httphandler"
	"github.com/nicolasbarcena/KazaroPedidos/internal/adapter/kafka"
	"github.com/nicolasbarcena/KazaroPedidos/internal/adapter/policysource"
	"github.com/nicolasbarcena/KazaroPedidos/internal/adapter/sheets"
	"github.com/nicolasbarcena/KazaroPedidos/internal/adapter/stocksync"
	"github.com/nicolasbarcena/KazaroPedidos/internal/adapter/storage"
	"github.com/nicolasbarcena/KazaroPedidos/internal/core/service"
	"github.com/nicolasbarcena/KazaroPedidos/pkg/schema"
)

type adapters struct {
	catalog  sheets.CatalogLoader
	policies policysource.Loader
	stock    stocksync.Client
	mailer   emailer.EmailJS
	sqldb    storage.SQLDB
	remitos  storage.RemitosRepository
	events   kafka.RemitosProducer
}

type App struct {
	ctx         context.Context
	cfg         config.Config
	remitoSerde schema.Serde
	adapters    adapters
	service     *service.Service
	httpServer  httphandler.HTTPServer
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initSerde()
	app.initOutboundAdapters()
	app.initCoreService()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initSerde() {
	const op = "App.initSerde"

	srClient, err := sr.NewClient(sr.URLs(app.cfg.Broker.SchemaRegistryURLs...))
	if err != nil {
		app.fallDown(op, err)
	}

	schemaCreater := schema.NewSchemaCreater(srClient)

	subject := app.cfg.Broker.OrderEventsTopic + "-value"
	remitoSerde, err := schema.NewSerdeRemitoV1(
		app.ctx,
		schema.SubjectOpt(subject),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.remitoSerde = remitoSerde
}

func (app *App) initOutboundAdapters() {
	const op = "App.initOutboundAdapters"

	app.adapters.catalog = sheets.NewCatalogLoader(app.cfg.Sources.CatalogCSVURL)
	app.adapters.policies = policysource.New(app.cfg.Sources.PolicySource)
	app.adapters.stock = stocksync.New(app.cfg.Sources.StockSyncURL)
	app.adapters.mailer = emailer.NewEmailJS(emailer.EmailJSConfig{
		URL:        app.cfg.EmailJS.URL,
		ServiceID:  app.cfg.EmailJS.ServiceID,
		TemplateID: app.cfg.EmailJS.TemplateID,
		PublicKey:  app.cfg.EmailJS.PublicKey,
	})

	sqldb, err := storage.NewSQLDB(app.ctx, app.cfg.SQLDB)
	if err != nil {
		app.fallDown(op, err)
	}
	app.adapters.sqldb = sqldb
	app.adapters.remitos = storage.NewRemitosRepository(sqldb)

	events, err := kafka.NewRemitosProducer(
		kafka.ProducerClientOpt(
			app.ctx, app.cfg.Broker.SeedBrokers, app.cfg.Broker.OrderEventsTopic,
		),
		kafka.ProducerEncoderOpt(app.remitoSerde),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.adapters.events = events
}

func (app *App) initCoreService() {
	app.service = service.New(
		app.adapters.catalog,
		app.adapters.policies,
		app.adapters.stock,
		app.adapters.mailer,
		app.adapters.remitos,
		app.adapters.events,
		app.cfg.PageSize,
	)
}

func (app *App) initInboundAdapters() {
	mux := http.NewServeMux()
	httphandler.RegisterSessions(mux, app.service)
	httphandler.RegisterCatalog(mux, app.service)
	httphandler.RegisterCart(mux, app.service)
	httphandler.RegisterOrders(mux, app.service)

	handler := httphandler.AllowJSON(mux)
	app.httpServer = httphandler.NewHTTPServer(app.cfg.HTTPServerAddr, handler)
}

func (app *App) Run(stopFn context.CancelFunc) {
	go app.httpServer.Run(stopFn)

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)
	app.service.AwaitReconcile()
	app.adapters.events.Close()
	app.adapters.sqldb.Close()

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
