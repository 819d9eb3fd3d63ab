package transcriber

import (
	"fmt"

	tapi "github.com/CC90210/ECHOES-APP/internal/pkg/transcriber/api"
)

// StaticProvider always returns the same transcriber instance
// used when no consul discovery is configured
type StaticProvider struct {
	tr   tapi.Transcriber
	name string
}

// NewStaticProvider creates provider instance
func NewStaticProvider(tr tapi.Transcriber, name string) (*StaticProvider, error) {
	if tr == nil {
		return nil, fmt.Errorf("no transcriber")
	}
	return &StaticProvider{tr: tr, name: name}, nil
}

// Get returns the configured transcriber
func (p *StaticProvider) Get() (tapi.Transcriber, string, error) {
	return p.tr, p.name, nil
}
