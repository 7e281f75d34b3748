package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcochiesi/editorial-access-manager/internal/routing"
	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/ports"
	"github.com/marcochiesi/editorial-access-manager/modules/access/infrastructure/persistence"
	"github.com/marcochiesi/editorial-access-manager/modules/access/presentation/controllers"
	"github.com/marcochiesi/editorial-access-manager/modules/access/services"
	"github.com/marcochiesi/editorial-access-manager/pkg/authz"
	"github.com/marcochiesi/editorial-access-manager/pkg/capability"
	"github.com/marcochiesi/editorial-access-manager/pkg/nonce"
	"github.com/marcochiesi/editorial-access-manager/pkg/requestid"
)

const entrypoint = "eam"

// HandlerOptions overrides the stores the handler would otherwise build. With
// a Pool the Postgres stores are used; with neither, an empty MemoryStore.
type HandlerOptions struct {
	Config    Config
	Logger    *slog.Logger
	Pool      *pgxpool.Pool
	Meta      ports.MetaStore
	Items     ports.ItemStore
	Roles     ports.RoleResolver
	Directory ports.Directory
}

type pinger interface {
	Ping(ctx context.Context) error
}

func NewHandlerWithOptions(opts HandlerOptions) (http.Handler, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a, err := routing.LoadAllowlist(cfg.AllowlistPath)
	if err != nil {
		return nil, err
	}
	classifier, err := routing.NewClassifier(a, entrypoint)
	if err != nil {
		return nil, err
	}

	var db pinger
	if opts.Pool != nil {
		db = opts.Pool
		dir := persistence.NewDirectoryPGStore(opts.Pool)
		if opts.Meta == nil {
			opts.Meta = persistence.NewMetaPGStore(opts.Pool)
		}
		if opts.Items == nil {
			opts.Items = dir
		}
		if opts.Roles == nil {
			opts.Roles = dir
		}
		if opts.Directory == nil {
			opts.Directory = dir
		}
	}
	if opts.Meta == nil || opts.Items == nil || opts.Roles == nil || opts.Directory == nil {
		logger.Warn("no database configured, using in-memory content store")
		mem := persistence.NewMemoryStore()
		if opts.Meta == nil {
			opts.Meta = mem
		}
		if opts.Items == nil {
			opts.Items = mem
		}
		if opts.Roles == nil {
			opts.Roles = mem
		}
		if opts.Directory == nil {
			opts.Directory = mem
		}
	}

	policies := persistence.NewPolicyStore(opts.Meta)

	stage, err := newAccessStage(cfg.PolicyEngine, policies, opts.Roles)
	if err != nil {
		return nil, err
	}

	mode, err := authz.ParseMode(cfg.AuthzMode, cfg.AuthzUnsafeAllowDisabled)
	if err != nil {
		return nil, err
	}
	authorizer, err := authz.NewAuthorizer(cfg.AuthzModelPath, cfg.AuthzPolicyPath, mode)
	if err != nil {
		return nil, err
	}
	rules, err := capability.LoadRules(cfg.CapabilitiesPath)
	if err != nil {
		return nil, err
	}
	mapper := capability.NewMapper(rules, itemLookup(opts.Items))
	checker := capability.NewChecker(mapper, capability.NewPipeline(stage), opts.Roles, authorizer)

	nonces, err := nonce.New([]byte(cfg.NonceKey), cfg.NonceLifetime)
	if err != nil {
		return nil, err
	}
	if cfg.NonceKey == "" {
		logger.Warn("EAM_NONCE_KEY unset, form tokens will not survive a restart")
	}

	form := controllers.AccessFormController{
		Actor:      currentActor,
		ItemID:     itemIDParam,
		Items:      opts.Items,
		Policies:   policies,
		Directory:  opts.Directory,
		Roles:      opts.Roles,
		Checker:    checker,
		Nonces:     nonces,
		Writer:     services.NewPolicyWriter(policies, opts.Items, checker, nonces),
		Logger:     logger,
		WriteError: writeUIError,
	}

	router := routing.NewRouter(classifier, logger)
	router.Handle(routing.RouteClassOps, http.MethodGet, "/health", handleHealth(nil))
	router.Handle(routing.RouteClassOps, http.MethodGet, "/healthz", handleHealth(db))
	router.Handle(routing.RouteClassUI, http.MethodGet, "/items/{item_id}/access", http.HandlerFunc(form.HandleShow))
	router.Handle(routing.RouteClassUI, http.MethodPost, "/items/{item_id}/access", http.HandlerFunc(form.HandleSave))
	router.Handle(routing.RouteClassInternalAPI, http.MethodPost, "/internal/api/capabilities/check", handleCapabilityCheck(checker, logger))

	if missing := router.Unlisted(a); len(missing) > 0 {
		return nil, fmt.Errorf("server: routes missing from allowlist: %s", strings.Join(missing, ", "))
	}

	logger.Info("handler ready",
		"policy_engine", cfg.PolicyEngine,
		"authz_mode", string(authorizer.Mode()),
		"storage", storageKind(opts.Pool),
	)
	return requestid.Middleware(withAccessLog(logger, withActor(classifier, cfg.ActorHeader, router))), nil
}

func newAccessStage(engine string, policies ports.PolicyReader, roles ports.RoleResolver) (capability.Stage, error) {
	switch engine {
	case PolicyEngineRego:
		return services.NewRegoEvaluator(context.Background(), policies, roles)
	case PolicyEngineNative, "":
		return services.NewEvaluator(policies, roles), nil
	default:
		return nil, fmt.Errorf("server: unknown policy engine %q", engine)
	}
}

func itemLookup(items ports.ItemStore) capability.ObjectLookup {
	return capability.ObjectLookupFunc(func(ctx context.Context, id int64) (capability.Object, bool, error) {
		it, found, err := items.GetItem(ctx, id)
		if err != nil || !found {
			return capability.Object{}, found, err
		}
		return capability.Object{ID: it.ID, Type: it.Type, Status: it.Status, AuthorID: it.AuthorID}, true, nil
	})
}

func itemIDParam(r *http.Request) string {
	return routing.PathParam(r.Context(), "item_id")
}

func writeUIError(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	routing.WriteError(w, r, routing.RouteClassUI, status, code, message)
}

// handleHealth reports liveness; with db it also requires a successful ping.
func handleHealth(db pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				routing.WriteError(w, r, routing.RouteClassOps, http.StatusServiceUnavailable, "db_unavailable", "database unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
}

func storageKind(pool *pgxpool.Pool) string {
	if pool != nil {
		return "postgres"
	}
	return "memory"
}
