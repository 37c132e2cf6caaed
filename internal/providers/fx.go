package providers

import (
	"github.com/somagouache/gouache/internal/providers/email"
	"github.com/somagouache/gouache/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
