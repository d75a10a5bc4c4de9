package config

import (
	"errors"

	"github.com/andrej220/wpdeploy/pkg/config/configstore"
	"github.com/andrej220/wpdeploy/pkg/config/filestore"
	"github.com/andrej220/wpdeploy/pkg/config/mongostore"
)

type StoreType int

const (
	FileStore StoreType = iota
	MongoStore
)

var ErrInvalidStoreType = errors.New("invalid store type")

// InventoryStoreType picks the inventory back end; a Mongo URI wins over the file path.
func (c *Config) InventoryStoreType() StoreType {
	if c.Mongo.URI != "" {
		return MongoStore
	}
	return FileStore
}

// NewInventoryStore opens the store the inventory is read from.
func NewInventoryStore(c *Config) (configstore.ConfigStore, error) {
	switch c.InventoryStoreType() {
	case FileStore:
		return filestore.New(c.InventoryPath), nil
	case MongoStore:
		return mongostore.New(c.Mongo.URI, c.Mongo.DBName, c.Mongo.CollName, c.Mongo.ID)
	default:
		return nil, ErrInvalidStoreType
	}
}
