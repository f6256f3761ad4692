package climate

import (
	"database/sql"
	"log/slog"
	"net/http"

	"surfsup-server/internal/modules/climate/controller"
	"surfsup-server/internal/modules/climate/repository"
	"surfsup-server/internal/modules/climate/service"
)

func RegisterFeature(mux *http.ServeMux, db *sql.DB, logger *slog.Logger) {
	climateRepository := repository.NewRepository(db)
	climateService := service.NewService(climateRepository, logger)
	climateController := controller.NewClimateController(climateService)
	climateController.RegisterRoutes(mux)
}
