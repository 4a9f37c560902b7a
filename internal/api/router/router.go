package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/hospital-voicebot/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/hospital-voicebot/internal/http/middleware"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes unmounted.
type Config struct {
	Logger             *logging.Logger
	Health             *handlers.HealthHandler
	Doctors            *handlers.DoctorHandler
	Appointments       *handlers.AppointmentHandler
	Voice              *handlers.VoiceHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// WebhookLimiter throttles the voice platform webhooks when set.
	WebhookLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Health)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.Doctors != nil {
			api.Post("/search-doctors", cfg.Doctors.SearchDoctors)
			api.Get("/doctor/{name}", cfg.Doctors.GetDoctor)
			api.Get("/specialty/{specialty}", cfg.Doctors.GetSpecialty)
			api.Get("/hospital/info", cfg.Doctors.HospitalInfo)
		}

		if cfg.Appointments != nil {
			api.Route("/appointments", func(appts chi.Router) {
				appts.Post("/book", cfg.Appointments.Book)
				appts.Get("/upcoming", cfg.Appointments.Upcoming)
				appts.Get("/stats", cfg.Appointments.Stats)
				appts.Get("/availability/{doctorName}", cfg.Appointments.Availability)
				appts.Get("/{id}", cfg.Appointments.Get)
				appts.Post("/{id}/cancel", cfg.Appointments.Cancel)
				appts.Post("/{id}/reschedule", cfg.Appointments.Reschedule)
			})
		}

		if cfg.Voice != nil {
			webhooks := api.With()
			if cfg.WebhookLimiter != nil {
				webhooks = api.With(cfg.WebhookLimiter.Middleware)
			}
			webhooks.Post("/vapi/webhook", cfg.Voice.VapiWebhook)
			webhooks.Post("/vapi/tool-calls", cfg.Voice.VapiToolCalls)
			webhooks.Post("/retell/webhook", cfg.Voice.RetellWebhook)

			api.Post("/vapi/setup-assistant", cfg.Voice.VapiSetupAssistant)
			api.Post("/retell/create-web-call", cfg.Voice.RetellCreateWebCall)
			api.Post("/retell/setup-agent", cfg.Voice.RetellSetupAgent)
			api.Post("/retell/update-agent-functions", cfg.Voice.RetellUpdateAgentFunctions)
		}
	})

	return r
}
