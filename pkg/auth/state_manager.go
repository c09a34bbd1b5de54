package auth

import (
	"strings"
	"sync"

	"github.com/toolfront/openapi-bridge/pkg/models"
)

// StateManager tracks the currently mounted spec rows by endpoint so the
// HTTP transport can look up per-spec tokens while the poller swaps the
// set underneath it.
type StateManager struct {
	specs map[string]*models.APISpec
	mutex sync.RWMutex
}

func NewStateManager() *StateManager {
	return &StateManager{
		specs: make(map[string]*models.APISpec),
	}
}

func (sm *StateManager) UpdateSpecs(specs []*models.APISpec) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.specs = make(map[string]*models.APISpec)
	for _, spec := range specs {
		endpoint := strings.TrimPrefix(spec.EndpointPath, "/")
		sm.specs[endpoint] = spec
	}
}

func (sm *StateManager) GetSpec(endpoint string) (*models.APISpec, bool) {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	spec, exists := sm.specs[endpoint]
	return spec, exists
}
