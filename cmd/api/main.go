package main

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/nutra/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
