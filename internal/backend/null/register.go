package null

import (
	"github.com/lanikai/gopcm/internal/backend"
	"github.com/lanikai/gopcm/internal/resolver"
)

func init() {
	resolver.Register("null", func(path string, dir backend.Direction) (backend.Backend, error) {
		return New(path, dir), nil
	})
}
