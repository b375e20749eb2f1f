package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Smartdevs17/supply-chain-payment/api/controllers"
	"github.com/Smartdevs17/supply-chain-payment/api/middleware"
	"github.com/Smartdevs17/supply-chain-payment/internal/accounts"
	"github.com/Smartdevs17/supply-chain-payment/internal/disputes"
	"github.com/Smartdevs17/supply-chain-payment/internal/escrow"
	"github.com/Smartdevs17/supply-chain-payment/internal/ledger"
	"github.com/Smartdevs17/supply-chain-payment/internal/platform"
	"github.com/Smartdevs17/supply-chain-payment/internal/suppliers"
	"github.com/Smartdevs17/supply-chain-payment/pkg/config"
	"github.com/Smartdevs17/supply-chain-payment/pkg/db"
	"github.com/Smartdevs17/supply-chain-payment/pkg/enums"
	"github.com/Smartdevs17/supply-chain-payment/pkg/logger"
	"github.com/Smartdevs17/supply-chain-payment/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	accountsService accounts.Service,
	suppliersService suppliers.Service,
	escrowService escrow.Service,
	disputesService disputes.Service,
	platformService platform.Service,
	ledgerService ledger.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(accountsService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(accountsService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/me", controllers.AccountMe(accountsService, logg))
			r.Post("/deposit", controllers.AccountDeposit(accountsService, logg))
			r.Get("/me/ledger", controllers.AccountLedger(ledgerService, logg))
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Post("/", controllers.SupplierRegister(suppliersService, logg))
			r.Get("/", controllers.SupplierList(suppliersService, logg))
			r.Get("/{accountId}", controllers.SupplierGet(suppliersService, logg))
			r.With(middleware.RequireRole(string(enums.AccountRoleArbiter), logg)).
				Post("/{accountId}/verify", controllers.SupplierVerify(suppliersService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(escrowService, logg))
			r.Get("/", controllers.OrderList(escrowService, logg))
			r.Get("/{orderId}", controllers.OrderGet(escrowService, logg))
			r.Get("/{orderId}/ledger", controllers.OrderLedger(escrowService, ledgerService, logg))
			r.Post("/{orderId}/milestones", controllers.OrderAddMilestone(escrowService, logg))
			r.Post("/{orderId}/start", controllers.OrderStart(escrowService, logg))
			r.Post("/{orderId}/milestones/{milestoneId}/complete", controllers.OrderCompleteMilestone(escrowService, logg))
			r.Post("/{orderId}/milestones/{milestoneId}/approve", controllers.OrderApproveMilestone(escrowService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(escrowService, logg))
			r.Post("/{orderId}/dispute", controllers.DisputeRaise(disputesService, logg))
			r.With(middleware.RequireRole(string(enums.AccountRoleArbiter), logg)).
				Post("/{orderId}/resolve", controllers.DisputeResolve(disputesService, logg))
		})

		r.Route("/platform", func(r chi.Router) {
			r.Get("/", controllers.PlatformSummary(platformService, logg))
			r.With(middleware.RequireRole(string(enums.AccountRoleArbiter), logg)).
				Patch("/fee", controllers.PlatformUpdateFee(platformService, logg))
			r.With(middleware.RequireRole(string(enums.AccountRoleArbiter), logg)).
				Post("/withdraw", controllers.PlatformWithdrawFees(platformService, logg))
		})
	})

	return r
}
