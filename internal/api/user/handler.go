package user

import (
	"github.com/georace/georace/internal/config"
	"github.com/georace/georace/internal/pubsub"
	"gorm.io/gorm"
)

// Handler holds all dependencies for the user API handlers.
type Handler struct {
	cfg    *config.Config
	db     *gorm.DB
	broker *pubsub.Broker
}

// NewHandler creates a new user handler with its dependencies.
func NewHandler(cfg *config.Config, db *gorm.DB) *Handler {
	return &Handler{
		cfg:    cfg,
		db:     db,
		broker: pubsub.GetBroker(),
	}
}
