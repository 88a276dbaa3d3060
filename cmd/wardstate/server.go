package main

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/wardstate/internal/config"
	"github.com/ehr/wardstate/internal/domain/autopsy"
	"github.com/ehr/wardstate/internal/domain/bed"
	"github.com/ehr/wardstate/internal/domain/billing"
	"github.com/ehr/wardstate/internal/domain/communication"
	"github.com/ehr/wardstate/internal/domain/labtest"
	"github.com/ehr/wardstate/internal/domain/medication"
	"github.com/ehr/wardstate/internal/domain/messaging"
	"github.com/ehr/wardstate/internal/domain/patient"
	"github.com/ehr/wardstate/internal/domain/prescription"
	"github.com/ehr/wardstate/internal/hospital"
	"github.com/ehr/wardstate/internal/platform/middleware"
	"github.com/ehr/wardstate/internal/platform/websocket"
)

// newServer wires the HTTP console and the live update hub. stop detaches
// the hub from the stores.
func newServer(cfg *config.Config, h *hospital.Hospital, d hospital.Dispatcher, logger zerolog.Logger) (e *echo.Echo, stop func()) {
	e = echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))

	api := e.Group("/api")
	hospital.NewHandler(h, d).RegisterRoutes(api)

	hub := websocket.NewHub(logger)
	stops := []func(){
		websocket.Watch[patient.Patient](hub, h.Patients.Kind(), h.Patients),
		websocket.Watch[bed.Bed](hub, h.Beds.Kind(), h.Beds),
		websocket.Watch[prescription.Prescription](hub, h.Prescriptions.Kind(), h.Prescriptions),
		websocket.Watch[labtest.LabTest](hub, h.LabTests.Kind(), h.LabTests),
		websocket.Watch[billing.Invoice](hub, h.Invoices.Kind(), h.Invoices),
		websocket.Watch[medication.Medication](hub, h.Medications.Kind(), h.Medications),
		websocket.Watch[communication.Communication](hub, h.Communications.Kind(), h.Communications),
		websocket.Watch[messaging.Message](hub, h.Messages.Kind(), h.Messages),
		websocket.Watch[autopsy.Case](hub, h.Autopsies.Kind(), h.Autopsies),
	}
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(api)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"status": "ok", "clients": hub.ClientCount()})
	})

	return e, func() {
		for _, s := range stops {
			s()
		}
	}
}
