package compiler

import (
	"strings"

	"github.com/google/uuid"

	"github.com/timzifer/ld2450/entity"
)

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/timzifer/ld2450"))

// controllerID returns the declared id or one derived from the root name.
func controllerID(explicit, root string) entity.Handle {
	if id := strings.TrimSpace(explicit); id != "" {
		return entity.Handle(id)
	}
	return entity.Handle(uuid.NewSHA1(idNamespace, []byte("ld2450:"+root)).String())
}

// entityID returns the declared id or one derived from the controller and
// the declaration path, so recompiling the same input yields the same ids.
func entityID(ctrl entity.Handle, explicit, path string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	return uuid.NewSHA1(idNamespace, []byte(string(ctrl)+"/"+path)).String()
}
