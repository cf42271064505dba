package engine

import (
	"github.com/tusklang/tusk-go/internal/registry"
	"github.com/tusklang/tusk-go/modules/adaptive"
	"github.com/tusklang/tusk-go/modules/cachectl"
	"github.com/tusklang/tusk-go/modules/collections"
	"github.com/tusklang/tusk-go/modules/database"
	"github.com/tusklang/tusk-go/modules/datetime"
	"github.com/tusklang/tusk-go/modules/env_vars"
	"github.com/tusklang/tusk-go/modules/filesystem"
	"github.com/tusklang/tusk-go/modules/http_client"
	"github.com/tusklang/tusk-go/modules/metrics"
	"github.com/tusklang/tusk-go/modules/scripting"
	"github.com/tusklang/tusk-go/modules/security"
	"github.com/tusklang/tusk-go/modules/socketio"
	"github.com/tusklang/tusk-go/modules/validation"
)

// coreModules is the definitive list of all operator modules compiled into
// the tsk binary.
var coreModules = []registry.Module{
	&env_vars.Module{},
	&datetime.Module{},
	&database.Module{},
	&cachectl.Module{},
	&http_client.Module{},
	&filesystem.Module{},
	&security.Module{},
	&validation.Module{},
	&adaptive.Module{},
	&collections.Module{},
	&metrics.Module{},
	&scripting.Module{},
	&socketio.Module{},
}
