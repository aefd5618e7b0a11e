package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/stylefit/api/internal/handlers"
	"github.com/stylefit/api/internal/payments"
	"github.com/stylefit/api/internal/platform/auth"
	"github.com/stylefit/api/internal/platform/config"
	pfirestore "github.com/stylefit/api/internal/platform/firestore"
	"github.com/stylefit/api/internal/platform/jobs"
	"github.com/stylefit/api/internal/platform/observability"
	platformstorage "github.com/stylefit/api/internal/platform/storage"
	firestoreRepo "github.com/stylefit/api/internal/repositories/firestore"
	"github.com/stylefit/api/internal/services"
)

// Services bundles the service-layer contracts assembled for runtime use.
type Services struct {
	Users   services.UserService
	Catalog services.CatalogService
	Designs services.DesignService
	Fitting services.FittingService
	Orders  services.OrderService
}

// Container wires repositories, services, handlers, and supporting
// infrastructure into a ready-to-serve HTTP router.
type Container struct {
	Config        config.Config
	Authenticator *auth.Authenticator
	Services      Services
	Router        http.Handler

	firestoreProvider *pfirestore.Provider
	pubsubClient      *pubsub.Client
	logger            *zap.Logger
}

// NewContainer constructs the runtime dependency graph from configuration.
// Asset signing is optional: when no service account credentials file is
// configured, signed URL endpoints respond with service unavailable instead
// of failing startup.
func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger, build handlers.BuildInfo) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("di: initialise firestore client: %w", err)
	}

	userRepo, err := firestoreRepo.NewUserRepository(firestoreProvider)
	if err != nil {
		return nil, fmt.Errorf("di: initialise user repository: %w", err)
	}
	productRepo, err := firestoreRepo.NewProductRepository(firestoreProvider)
	if err != nil {
		return nil, fmt.Errorf("di: initialise product repository: %w", err)
	}
	designRepo, err := firestoreRepo.NewDesignRepository(firestoreProvider)
	if err != nil {
		return nil, fmt.Errorf("di: initialise design repository: %w", err)
	}
	tryOnRepo, err := firestoreRepo.NewTryOnRepository(firestoreProvider)
	if err != nil {
		return nil, fmt.Errorf("di: initialise try-on repository: %w", err)
	}
	orderRepo, err := firestoreRepo.NewOrderRepository(firestoreProvider)
	if err != nil {
		return nil, fmt.Errorf("di: initialise order repository: %w", err)
	}

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		return nil, fmt.Errorf("di: initialise firebase verifier: %w", err)
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier, auth.WithUserGetter(firebaseVerifier))

	pubsubProject := strings.TrimSpace(cfg.Jobs.ProjectID)
	if pubsubProject == "" {
		pubsubProject = strings.TrimSpace(cfg.Firestore.ProjectID)
	}
	pubsubClient, err := pubsub.NewClient(ctx, pubsubProject)
	if err != nil {
		return nil, fmt.Errorf("di: initialise pubsub client: %w", err)
	}
	fittingTopic := pubsubClient.Topic(cfg.Jobs.FittingTopic)
	orderTopic := pubsubClient.Topic(cfg.Jobs.OrderTopic)
	publisher, err := jobs.NewPubSubEventPublisher(fittingTopic, orderTopic)
	if err != nil {
		closePubSub(pubsubClient, logger)
		return nil, fmt.Errorf("di: initialise event publisher: %w", err)
	}

	if strings.TrimSpace(cfg.PSP.StripeAPIKey) == "" {
		closePubSub(pubsubClient, logger)
		return nil, errors.New("di: stripe api key is required for checkout")
	}
	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey:    cfg.PSP.StripeAPIKey,
		AccountID: cfg.PSP.StripeAccountID,
		Logger:    payments.StripeLogger(observability.EventLogger()),
		Clock:     time.Now,
	})
	if err != nil {
		closePubSub(pubsubClient, logger)
		return nil, fmt.Errorf("di: initialise stripe provider: %w", err)
	}

	var storageClient *platformstorage.Client
	if credentials := strings.TrimSpace(cfg.Firebase.CredentialsFile); credentials != "" {
		signer, err := platformstorage.NewServiceAccountSignerFromFile(credentials)
		if err != nil {
			closePubSub(pubsubClient, logger)
			return nil, fmt.Errorf("di: initialise storage signer: %w", err)
		}
		storageClient, err = platformstorage.NewClient(signer, cfg.Storage.AssetsBucket)
		if err != nil {
			closePubSub(pubsubClient, logger)
			return nil, fmt.Errorf("di: initialise storage client: %w", err)
		}
	} else {
		logger.Warn("di: no credentials file configured; signed asset urls disabled")
	}

	svc, err := buildServices(serviceDeps{
		users:     userRepo,
		products:  productRepo,
		designs:   designRepo,
		tryOns:    tryOnRepo,
		orders:    orderRepo,
		publisher: publisher,
		provider:  stripeProvider,
		logger:    observability.EventLogger(),
		newID:     func() string { return ulid.Make().String() },
	})
	if err != nil {
		closePubSub(pubsubClient, logger)
		return nil, err
	}

	router := buildRouter(routerDeps{
		cfg:           cfg,
		authenticator: authenticator,
		services:      svc,
		storage:       storageClient,
		build:         build,
		firestore:     firestoreClient,
		fittingTopic:  fittingTopic,
		logger:        logger,
	})

	return &Container{
		Config:            cfg,
		Authenticator:     authenticator,
		Services:          svc,
		Router:            router,
		firestoreProvider: firestoreProvider,
		pubsubClient:      pubsubClient,
		logger:            logger,
	}, nil
}

// Close releases client connections held by the container.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.pubsubClient != nil {
		if err := c.pubsubClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pubsub client: %w", err))
		}
	}
	if c.firestoreProvider != nil {
		if err := c.firestoreProvider.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close firestore provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

type serviceDeps struct {
	users     *firestoreRepo.UserRepository
	products  *firestoreRepo.ProductRepository
	designs   *firestoreRepo.DesignRepository
	tryOns    *firestoreRepo.TryOnRepository
	orders    *firestoreRepo.OrderRepository
	publisher services.EventPublisher
	provider  payments.Provider
	logger    func(context.Context, string, map[string]any)
	newID     func() string
}

func buildServices(deps serviceDeps) (Services, error) {
	var svc Services

	userSvc, err := services.NewUserService(services.UserServiceDeps{
		Users: deps.users,
		Clock: time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build user service: %w", err)
	}
	svc.Users = userSvc

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products:    deps.products,
		Clock:       time.Now,
		IDGenerator: deps.newID,
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	designSvc, err := services.NewDesignService(services.DesignServiceDeps{
		Designs:     deps.designs,
		Clock:       time.Now,
		IDGenerator: deps.newID,
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build design service: %w", err)
	}
	svc.Designs = designSvc

	fittingSvc, err := services.NewFittingService(services.FittingServiceDeps{
		Products:    deps.products,
		Designs:     deps.designs,
		Users:       deps.users,
		TryOns:      deps.tryOns,
		Publisher:   deps.publisher,
		Clock:       time.Now,
		IDGenerator: deps.newID,
		Logger:      deps.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build fitting service: %w", err)
	}
	svc.Fitting = fittingSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:      deps.orders,
		Products:    deps.products,
		Designs:     deps.designs,
		Provider:    deps.provider,
		Publisher:   deps.publisher,
		Clock:       time.Now,
		IDGenerator: deps.newID,
		Logger:      deps.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build order service: %w", err)
	}
	svc.Orders = orderSvc

	return svc, nil
}

type routerDeps struct {
	cfg           config.Config
	authenticator *auth.Authenticator
	services      Services
	storage       *platformstorage.Client
	build         handlers.BuildInfo
	firestore     *firestore.Client
	fittingTopic  *pubsub.Topic
	logger        *zap.Logger
}

func buildRouter(deps routerDeps) http.Handler {
	meHandlers := handlers.NewMeHandlers(deps.authenticator, deps.services.Users)
	productHandlers := handlers.NewProductHandlers(deps.services.Catalog)
	designHandlers := handlers.NewDesignHandlers(deps.authenticator, deps.services.Designs)
	fittingHandlers := handlers.NewFittingHandlers(deps.authenticator, deps.services.Fitting)
	orderHandlers := handlers.NewOrderHandlers(deps.authenticator, deps.services.Orders)
	assetHandlers := handlers.NewAssetHandlers(deps.authenticator, deps.storage, deps.services.Designs)

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(deps.build),
		handlers.WithReadinessProbe("firestore", firestoreProbe(deps.firestore)),
		handlers.WithReadinessProbe("pubsub", pubsubProbe(deps.fittingTopic)),
	)

	projectID := strings.TrimSpace(deps.cfg.Firebase.ProjectID)
	if projectID == "" {
		projectID = strings.TrimSpace(deps.cfg.Firestore.ProjectID)
	}
	httpLogger := deps.logger.Named("http")

	opts := []handlers.Option{
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(httpLogger),
			observability.TraceMiddleware(projectID),
			observability.RecoveryMiddleware(httpLogger),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithProductRoutes(productHandlers.Routes),
		handlers.WithMeRoutes(meHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithAssetRoutes(assetHandlers.Routes),
		handlers.WithAdminRoutes(func(r chi.Router) {
			productHandlers.AdminRoutes(r)
			assetHandlers.AdminRoutes(r)
		}),
		handlers.WithAdminMiddlewares(deps.authenticator.RequireFirebaseAuth(auth.RoleStaff, auth.RoleAdmin)),
	}

	if deps.cfg.Features.EnableVirtualFitting {
		opts = append(opts, handlers.WithFittingRoutes(fittingHandlers.Routes))
	}
	if deps.cfg.Features.EnableCustomDesigns {
		opts = append(opts, handlers.WithDesignRoutes(designHandlers.Routes))
	}

	return handlers.NewRouter(opts...)
}

func firestoreProbe(client *firestore.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("firestore client not initialised")
		}
		iter := client.Collections(ctx)
		if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
			return err
		}
		return nil
	}
}

func pubsubProbe(topic *pubsub.Topic) func(context.Context) error {
	return func(ctx context.Context) error {
		if topic == nil {
			return errors.New("pubsub topic not initialised")
		}
		exists, err := topic.Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("pubsub topic %s does not exist", topic.ID())
		}
		return nil
	}
}

func closePubSub(client *pubsub.Client, logger *zap.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil && logger != nil {
		logger.Warn("di: pubsub close error", zap.Error(err))
	}
}
