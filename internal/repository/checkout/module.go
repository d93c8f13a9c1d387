package checkout

import "go.uber.org/fx"

// Module provides the checkout transaction store to Fx.
var Module = fx.Provide(NewStore)
