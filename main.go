package TabulaDB

import (
	"github.com/nickyhof/TabulaDB/core"
	"github.com/nickyhof/TabulaDB/db"
	"github.com/nickyhof/TabulaDB/ps"
)

type Instance struct {
	Persistence *ps.Persistence
}

func Open(persistence *ps.Persistence) *Instance {
	return &Instance{
		Persistence: persistence,
	}
}

func (instance *Instance) Engine(identity core.Identity) *db.Engine {
	return db.NewEngine(instance.Persistence, identity)
}

func (instance *Instance) EngineWithOptions(identity core.Identity, options db.Options) (*db.Engine, error) {
	return db.NewEngineWithOptions(instance.Persistence, identity, options)
}
