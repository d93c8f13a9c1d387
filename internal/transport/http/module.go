package http

import (
	"go.uber.org/fx"

	authtransport "github.com/Additional-Code/nutra/internal/transport/http/auth"
	ordertransport "github.com/Additional-Code/nutra/internal/transport/http/order"
	producttransport "github.com/Additional-Code/nutra/internal/transport/http/product"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	authtransport.Module,
	ordertransport.Module,
	producttransport.Module,
)
