package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/nutra/internal/cache"
	"github.com/Additional-Code/nutra/internal/config"
	"github.com/Additional-Code/nutra/internal/database"
	"github.com/Additional-Code/nutra/internal/logger"
	"github.com/Additional-Code/nutra/internal/messaging"
	"github.com/Additional-Code/nutra/internal/observability"
	repositorycheckout "github.com/Additional-Code/nutra/internal/repository/checkout"
	repositoryorder "github.com/Additional-Code/nutra/internal/repository/order"
	repositoryproduct "github.com/Additional-Code/nutra/internal/repository/product"
	repositoryuser "github.com/Additional-Code/nutra/internal/repository/user"
	grpcserver "github.com/Additional-Code/nutra/internal/server/grpc"
	httpserver "github.com/Additional-Code/nutra/internal/server/http"
	serviceauth "github.com/Additional-Code/nutra/internal/service/auth"
	servicecheckout "github.com/Additional-Code/nutra/internal/service/checkout"
	serviceorder "github.com/Additional-Code/nutra/internal/service/order"
	serviceproduct "github.com/Additional-Code/nutra/internal/service/product"
	transporthttp "github.com/Additional-Code/nutra/internal/transport/http"
	"github.com/Additional-Code/nutra/internal/worker"
	workerorder "github.com/Additional-Code/nutra/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryuser.Module,
	repositoryproduct.Module,
	repositoryorder.Module,
	repositorycheckout.Module,
	serviceauth.Module,
	serviceproduct.Module,
	serviceorder.Module,
	servicecheckout.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP plus the gRPC health
// surface, which stays idle unless enabled in config).
var Module = fx.Options(
	HTTP,
	grpcserver.Module,
)
