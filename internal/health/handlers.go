package health

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const serviceName = "daoverse-api"

type Handlers struct {
	Rdb *redis.Client
	DB  DBPinger
}

// JSON serves the machine-readable health report.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := CollectHealth(c.Context(), h.Rdb, h.DB)
	return c.JSON(fiber.Map{
		"service":      serviceName,
		"status":       result.Status,
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
	})
}

// Live is the bare liveness probe.
func (h *Handlers) Live(c *fiber.Ctx) error {
	return c.SendString("ok")
}
