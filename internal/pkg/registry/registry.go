package registry

import (
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ModuleContext carries the shared resources a module needs to wire itself.
type ModuleContext struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Router *gin.Engine
}

// Module is a self-contained domain unit: it builds its own repository,
// service and handler stack and registers its routes.
type Module interface {
	Name() string

	// Init performs dependency injection and route registration.
	Init(ctx *ModuleContext) error

	// Priority orders initialization; lower runs first. Session comes before
	// payment and reminder, which depend on its repository.
	Priority() int
}

var moduleRegistry = make(map[string]Module)

// Register is called from each module's init().
func Register(module Module) {
	moduleRegistry[module.Name()] = module
}

// GetModules returns the registered modules.
func GetModules() map[string]Module {
	return moduleRegistry
}

// InitModules initializes all registered modules in priority order.
func InitModules(ctx *ModuleContext) error {
	modules := make([]Module, 0, len(moduleRegistry))
	for _, m := range moduleRegistry {
		modules = append(modules, m)
	}

	sort.Slice(modules, func(i, j int) bool {
		return modules[i].Priority() < modules[j].Priority()
	})

	for _, module := range modules {
		if err := module.Init(ctx); err != nil {
			return err
		}
	}
	return nil
}
