package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/dojo-go-api/internal/config"
	"github.com/noah-isme/dojo-go-api/internal/utils"
)

// HealthResponse is the payload of the liveness endpoint. It reports the
// configured execution binaries so operators can spot a misconfigured host
// before the first submission fails.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	PythonBin   string    `json:"python_bin"`
	GoBin       string    `json:"go_bin"`
}

// HealthCheck returns a handler reporting service liveness and runner setup.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			PythonBin:   cfg.PythonBin,
			GoBin:       cfg.GoBin,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
