package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/database/postgres"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/orders"
	"storefront/internal/realtime"
	"storefront/internal/sla"
)

const usage = `usage:
  storefront                               run the HTTP server
  storefront migrate                       apply Postgres migrations
  storefront admin create <email> <password> [name]`

func main() {
	config.Load()

	log, err := config.NewLogger(config.AppEnv.LogLevel, config.AppEnv.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("invalid logging configuration")
	}

	args := os.Args[1:]
	switch {
	case len(args) == 0 || args[0] == "serve":
		err = serve(log)
	case args[0] == "migrate":
		err = migrateCmd(log)
	case len(args) >= 4 && args[0] == "admin" && args[1] == "create":
		name := "Admin"
		if len(args) > 4 {
			name = args[4]
		}
		err = createAdmin(log, args[2], args[3], name)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).Fatal("storefront stopped")
	}
}

func migrateCmd(log *logrus.Logger) error {
	if config.AppEnv.PostgresURL == "" {
		return errors.New("POSTGRES_URL is required")
	}
	return postgres.Migrate(config.AppEnv.PostgresURL, log)
}

func createAdmin(log *logrus.Logger, email, password, name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := database.Connect(ctx, config.AppEnv.MongoURI)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	admin, err := database.NewAccounts(client.Database(config.AppEnv.DBName)).UpsertAdmin(ctx, name, email, password)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"admin": admin.ID, "email": admin.Email}).Info("admin account ready")
	return nil
}

// orderBackend is the order store and the change feed that mirrors it.
type orderBackend struct {
	store orders.Store
	feed  realtime.Feed
	ping  func(ctx context.Context) error
	close func()
}

func openOrderBackend(ctx context.Context, db *mongo.Database, log *logrus.Logger) (orderBackend, error) {
	if config.AppEnv.OrderStore != config.OrderStorePostgres {
		return orderBackend{
			store: database.NewOrders(db),
			feed:  database.NewOrderFeed(db),
			close: func() {},
		}, nil
	}

	if err := postgres.Migrate(config.AppEnv.PostgresURL, log); err != nil {
		return orderBackend{}, fmt.Errorf("postgres migrations: %w", err)
	}
	pool, err := postgres.Connect(ctx, config.AppEnv.PostgresURL)
	if err != nil {
		return orderBackend{}, fmt.Errorf("postgres connect: %w", err)
	}
	store := postgres.NewOrders(pool)
	return orderBackend{
		store: store,
		feed:  postgres.NewOrderFeed(pool, store),
		ping:  pool.Ping,
		close: pool.Close,
	}, nil
}

// boardLoader reads every open order plus the ones closed today.
func boardLoader(svc *orders.Service) realtime.Loader {
	return func(ctx context.Context) ([]models.Order, error) {
		open, err := svc.List(ctx, orders.Query{Statuses: []models.OrderStatus{
			models.StatusNew, models.StatusInPreparation, models.StatusOutForDelivery,
		}})
		if err != nil {
			return nil, err
		}
		now := time.Now()
		closed, err := svc.List(ctx, orders.Query{
			Statuses: []models.OrderStatus{models.StatusCompleted, models.StatusCancelled},
			Since:    time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		})
		if err != nil {
			return nil, err
		}
		return append(open, closed...), nil
	}
}

func newNotifier(log *logrus.Logger) notify.Notifier {
	if !config.AppEnv.TelegramEnabled() {
		return notify.NewLogNotifier(log)
	}
	tg, err := notify.NewTelegram(config.AppEnv.TelegramToken, config.AppEnv.TelegramChatID, log)
	if err != nil {
		log.WithError(err).Warn("telegram unavailable, new orders will only be logged")
		return notify.NewLogNotifier(log)
	}
	return tg
}

func serve(log *logrus.Logger) error {
	if err := config.AppEnv.Validate(); err != nil {
		return err
	}
	handlers.SetLogger(log)
	if err := handlers.RegisterValidators(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := database.Connect(ctx, config.AppEnv.MongoURI)
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(config.AppEnv.DBName)
	log.WithField("database", db.Name()).Info("MongoDB connected")

	if err := database.EnsureIndexes(db, log); err != nil {
		log.WithError(err).Warn("some indexes are missing")
	}

	backend, err := openOrderBackend(ctx, db, log)
	if err != nil {
		return err
	}
	defer backend.close()

	confirm, err := orders.NewSecretConfirmer(config.AppEnv.AdminConfirmSecret)
	if err != nil {
		return err
	}

	catalog := database.NewCatalog(db)
	settings := database.NewSettings(db)
	board := realtime.NewBoard(log)
	board.OnNewOrder(newNotifier(log).NewOrder)

	orderSvc := orders.NewService(backend.store, board, confirm, settings, log)
	cartSvc := cart.NewService(database.NewCarts(db), catalog, log)
	uploads := handlers.NewUploads(config.AppEnv.UploadDir)

	go realtime.Sync(ctx, board, boardLoader(orderSvc), backend.feed, log)

	health := handlers.PingFunc(func(ctx context.Context) error {
		if err := database.Ping(ctx, db); err != nil {
			return err
		}
		if backend.ping != nil {
			return backend.ping(ctx)
		}
		return nil
	})

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes(r, routeDeps{
		health:   health,
		catalog:  catalog,
		settings: settings,
		accounts: database.NewAccounts(db),
		carts:    cartSvc,
		orders:   orderSvc,
		board:    board,
		uploads:  uploads,
		sla:      config.AppEnv.SLAThresholds(),
	})

	srv := &http.Server{
		Addr:              ":" + config.AppEnv.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", config.AppEnv.Port).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type routeDeps struct {
	health   handlers.Pinger
	catalog  *database.Catalog
	settings *database.Settings
	accounts *database.Accounts
	carts    *cart.Service
	orders   *orders.Service
	board    *realtime.Board
	uploads  *handlers.Uploads
	sla      sla.Thresholds
}

func routes(r *gin.Engine, d routeDeps) {
	r.Static(handlers.UploadsURLPrefix, d.uploads.Root())
	r.GET("/health", handlers.Health(d.health))

	r.GET("/products", handlers.GetProducts(d.catalog))
	r.GET("/products/:id", handlers.GetProduct(d.catalog))
	r.POST("/products/:id/selection", handlers.ToggleSelection(d.catalog))
	r.GET("/categories", handlers.GetCategories(d.catalog))
	r.GET("/banners", handlers.GetBanners(d.catalog))
	r.GET("/settings", handlers.GetSettings(d.settings))

	shop := r.Group("/cart")
	shop.Use(middleware.CartSession())
	{
		shop.GET("", handlers.GetCart(d.carts))
		shop.DELETE("", handlers.ClearCart(d.carts))
		shop.POST("/items", handlers.AddCartItem(d.carts))
		shop.PATCH("/items/:key", handlers.UpdateCartItem(d.carts))
		shop.DELETE("/items/:key", handlers.RemoveCartItem(d.carts))
		shop.POST("/checkout", handlers.Checkout(d.carts, d.orders))
	}

	r.POST("/admin/login", handlers.AdminLogin(d.accounts, config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL))

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(config.AppEnv.JWTSecret))
	{
		admin.GET("/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"id": middleware.Subject(c)})
		})

		admin.GET("/orders", handlers.ListOrders(d.orders, d.board))
		admin.GET("/orders/board", handlers.OrdersBoard(d.board))
		admin.GET("/orders/history", handlers.OrderHistory(d.orders, time.Local))
		admin.GET("/orders/stream", handlers.OrderStream(d.board, d.sla))
		admin.GET("/orders/:id", handlers.GetOrder(d.orders, d.sla))
		admin.GET("/orders/:id/ticket", handlers.OrderTicket(d.orders, d.settings, time.Local))
		admin.GET("/orders/:id/timer", handlers.OrderTimer(d.board, sla.NewWatcher(d.sla)))
		for _, ev := range []orders.Event{orders.EventAccept, orders.EventDispatch, orders.EventDeliver, orders.EventReopen} {
			admin.POST("/orders/:id/"+string(ev), handlers.TransitionOrder(d.orders, ev))
		}
		admin.POST("/orders/:id/cancel", handlers.CancelOrder(d.orders))
		admin.DELETE("/orders/:id", handlers.DeleteOrder(d.orders))
		admin.PUT("/orders/:id/items", handlers.SaveOrderItems(d.orders))
		admin.POST("/orders/:id/items", handlers.AddOrderItem(d.orders, d.catalog))
		admin.PATCH("/orders/:id/items/:position", handlers.UpdateOrderItem(d.orders))
		admin.DELETE("/orders/:id/items/:position", handlers.RemoveOrderItem(d.orders))
		admin.GET("/reports/financial", handlers.FinancialReport(d.orders))

		admin.GET("/products", handlers.GetAllProducts(d.catalog))
		admin.GET("/products/:id", handlers.GetAdminProduct(d.catalog))
		admin.POST("/products", handlers.CreateProduct(d.catalog, d.uploads))
		admin.PUT("/products/:id", handlers.UpdateProduct(d.catalog, d.uploads))
		admin.DELETE("/products/:id", handlers.DeleteProduct(d.catalog, d.uploads))

		admin.GET("/categories", handlers.GetAllCategories(d.catalog))
		admin.POST("/categories", handlers.CreateCategory(d.catalog))
		admin.PUT("/categories/:id", handlers.UpdateCategory(d.catalog))
		admin.DELETE("/categories/:id", handlers.DeleteCategory(d.catalog))

		admin.GET("/banners", handlers.GetAllBanners(d.catalog))
		admin.POST("/banners", handlers.CreateBanner(d.catalog))
		admin.PUT("/banners/:id", handlers.UpdateBanner(d.catalog))
		admin.DELETE("/banners/:id", handlers.DeleteBanner(d.catalog, d.uploads))

		admin.GET("/extras/groups", handlers.GetExtrasGroups(d.catalog))
		admin.GET("/extras/groups/:id", handlers.GetExtrasGroup(d.catalog))
		admin.POST("/extras/groups", handlers.CreateExtrasGroup(d.catalog))
		admin.PUT("/extras/groups/:id", handlers.UpdateExtrasGroup(d.catalog))
		admin.DELETE("/extras/groups/:id", handlers.DeleteExtrasGroup(d.catalog))
		admin.POST("/extras/groups/:id/options", handlers.CreateExtrasOption(d.catalog))
		admin.PUT("/extras/groups/:id/options/:optionId", handlers.UpdateExtrasOption(d.catalog))
		admin.DELETE("/extras/groups/:id/options/:optionId", handlers.DeleteExtrasOption(d.catalog))

		admin.GET("/settings", handlers.GetSettings(d.settings))
		admin.PUT("/settings", handlers.UpdateSettings(d.settings, d.uploads))
		admin.POST("/uploads", handlers.UploadImage(d.uploads))
	}
}
